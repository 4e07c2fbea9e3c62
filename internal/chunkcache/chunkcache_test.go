// SPDX-License-Identifier: MIT

package chunkcache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFetchCachesFirstChunk(t *testing.T) {
	c := New(0)

	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("opening-bytes"), nil
	}

	chunk, err := c.GetOrFetch("https://cdn/x.mp3", fetch)
	require.NoError(t, err)
	assert.Equal(t, []byte("opening-bytes"), chunk)

	chunk, err = c.GetOrFetch("https://cdn/x.mp3", func() ([]byte, error) {
		t.Fatal("second call must be served from cache")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("opening-bytes"), chunk)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetchErrorNotCached(t *testing.T) {
	c := New(0)

	_, err := c.GetOrFetch("https://cdn/x.mp3", func() ([]byte, error) {
		return nil, errors.New("upstream reset")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	chunk, err := c.GetOrFetch("https://cdn/x.mp3", func() ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), chunk)
}

func TestGetOrFetchSingleFlight(t *testing.T) {
	c := New(0)

	var calls atomic.Int64
	gate := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunk, err := c.GetOrFetch("https://cdn/x.mp3", func() ([]byte, error) {
				calls.Add(1)
				<-gate
				return []byte("shared"), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, []byte("shared"), chunk)
		}()
	}

	close(gate)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int64(2),
		"concurrent callers for one location must share fetches")
}

func TestForget(t *testing.T) {
	c := New(0)

	_, err := c.GetOrFetch("https://cdn/x.mp3", func() ([]byte, error) {
		return []byte("bytes"), nil
	})
	require.NoError(t, err)

	c.Forget("https://cdn/x.mp3")
	_, ok := c.Get("https://cdn/x.mp3")
	assert.False(t, ok)
}

func TestLRUCap(t *testing.T) {
	c := New(3)

	for i := 0; i < 5; i++ {
		loc := fmt.Sprintf("https://cdn/%d.mp3", i)
		_, err := c.GetOrFetch(loc, func() ([]byte, error) {
			return []byte{byte(i)}, nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, c.Len())

	_, ok := c.Get("https://cdn/0.mp3")
	assert.False(t, ok, "oldest entries are evicted")
	_, ok = c.Get("https://cdn/4.mp3")
	assert.True(t, ok, "newest entries survive")
}

func TestLRUTouchOnGet(t *testing.T) {
	c := New(2)

	_, _ = c.GetOrFetch("a", func() ([]byte, error) { return []byte("a"), nil })
	_, _ = c.GetOrFetch("b", func() ([]byte, error) { return []byte("b"), nil })

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	_, _ = c.GetOrFetch("c", func() ([]byte, error) { return []byte("c"), nil })

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}
