// SPDX-License-Identifier: MIT

package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type recordingResolver struct {
	mu       sync.Mutex
	resolved []string
	err      error
	block    chan struct{} // optional: hold workers until closed
}

func (r *recordingResolver) Resolve(ctx context.Context, mediaID string) (string, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	r.mu.Lock()
	r.resolved = append(r.resolved, mediaID)
	r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	return "https://cdn/" + mediaID + ".mp3", nil
}

func (r *recordingResolver) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.resolved...)
}

func TestPoolResolvesEnqueuedIDs(t *testing.T) {
	defer goleak.VerifyNone(t)

	res := &recordingResolver{}
	pool := New(res, Config{Workers: 2, QueueSize: 8}, zerolog.Nop())
	pool.Start()

	pool.Enqueue("abc123", "def456", "")

	assert.Eventually(t, func() bool {
		return len(res.seen()) == 2
	}, time.Second, 5*time.Millisecond)

	pool.Stop()
	assert.ElementsMatch(t, []string{"abc123", "def456"}, res.seen())
}

func TestPoolSwallowsFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	res := &recordingResolver{err: errors.New("resolution failed")}
	pool := New(res, Config{Workers: 2, QueueSize: 8}, zerolog.Nop())
	pool.Start()

	pool.Enqueue("bad1", "bad2", "bad3")

	assert.Eventually(t, func() bool {
		return len(res.seen()) == 3
	}, time.Second, 5*time.Millisecond, "failures must not stop sibling jobs")

	pool.Stop()
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	res := &recordingResolver{block: make(chan struct{})}
	pool := New(res, Config{Workers: 1, QueueSize: 1}, zerolog.Nop())
	pool.Start()

	// Worker is blocked; one job fits the queue, the rest must be
	// dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		pool.Enqueue("a", "b", "c", "d", "e")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue must never block the caller")
	}

	close(res.block)
	pool.Stop()
}

func TestPoolDedupesInflight(t *testing.T) {
	res := &recordingResolver{block: make(chan struct{})}
	pool := New(res, Config{Workers: 1, QueueSize: 8}, zerolog.Nop())
	pool.Start()

	pool.Enqueue("abc123")
	pool.Enqueue("abc123")
	pool.Enqueue("abc123")

	close(res.block)
	pool.Stop()

	assert.Len(t, res.seen(), 1, "queued duplicates of one identifier collapse")
}

func TestPoolEnqueueDuringStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	res := &recordingResolver{}
	pool := New(res, Config{Workers: 2, QueueSize: 4}, zerolog.Nop())
	pool.Start()

	// Hammer the queue from another goroutine while Stop closes it.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			pool.Enqueue(fmt.Sprintf("id-%d", i))
		}
	}()

	pool.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue must keep returning after Stop")
	}
}

func TestPoolStopIsIdempotent(t *testing.T) {
	pool := New(&recordingResolver{}, Config{}, zerolog.Nop())
	pool.Start()
	pool.Stop()
	pool.Stop()
}
