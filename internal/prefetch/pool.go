// SPDX-License-Identifier: MIT

// Package prefetch warms the stream cache for batches of media
// identifiers off the request path, so the first playback of a search
// result does not pay the multi-second extraction cost.
package prefetch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fluxaudio/fluxd/internal/metrics"
)

// Resolver is the subset of the resolution service the pool needs.
type Resolver interface {
	Resolve(ctx context.Context, mediaID string) (string, error)
}

// Config defines pool sizing.
type Config struct {
	Workers   int
	QueueSize int
}

// Pool resolves identifiers on a fixed set of workers. The queue is
// bounded; when it is full, submissions are dropped rather than blocking
// the HTTP path that triggered them.
type Pool struct {
	resolver Resolver
	logger   zerolog.Logger

	jobs    chan string
	workers int

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once

	// sendMu orders queue submission against shutdown so Enqueue can
	// never race the channel close.
	sendMu  sync.RWMutex
	stopped bool

	// inflight dedupes identifiers already queued or being resolved.
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// New creates a stopped pool; call Start before enqueuing.
func New(resolver Resolver, cfg Config, logger zerolog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		resolver: resolver,
		logger:   logger,
		jobs:     make(chan string, cfg.QueueSize),
		workers:  cfg.Workers,
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				for id := range p.jobs {
					p.handle(id)
				}
			}()
		}
		p.logger.Info().
			Int("workers", p.workers).
			Int("queue_size", cap(p.jobs)).
			Msg("prefetch pool started")
	})
}

// Stop cancels in-flight resolutions, stops accepting jobs and waits for
// the workers to drain.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.sendMu.Lock()
		p.stopped = true
		close(p.jobs)
		p.sendMu.Unlock()
		p.wg.Wait()
	})
}

// Enqueue submits a batch of identifiers for background resolution.
// Fire-and-forget: duplicates, overflow and submissions after Stop are
// dropped silently.
func (p *Pool) Enqueue(ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}

		p.inflightMu.Lock()
		if _, ok := p.inflight[id]; ok {
			p.inflightMu.Unlock()
			metrics.IncPrefetch("dedup")
			continue
		}
		p.inflight[id] = struct{}{}
		p.inflightMu.Unlock()

		if p.trySubmit(id) {
			metrics.IncPrefetch("queued")
			continue
		}
		// queue full or pool stopped -> drop
		p.clearInflight(id)
		metrics.IncPrefetch("dropped")
		p.logger.Debug().Str("media_id", id).Msg("prefetch queue full, dropping")
	}
}

func (p *Pool) trySubmit(id string) bool {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if p.stopped {
		return false
	}
	select {
	case p.jobs <- id:
		return true
	default:
		return false
	}
}

func (p *Pool) handle(id string) {
	defer p.clearInflight(id)

	if p.ctx.Err() != nil {
		return
	}

	if _, err := p.resolver.Resolve(p.ctx, id); err != nil {
		// Individual failures are expected (removed media, region locks)
		// and must not affect sibling jobs.
		metrics.IncPrefetch("failed")
		p.logger.Debug().Err(err).Str("media_id", id).Msg("prefetch resolution failed")
		return
	}
	metrics.IncPrefetch("resolved")
}

func (p *Pool) clearInflight(id string) {
	p.inflightMu.Lock()
	delete(p.inflight, id)
	p.inflightMu.Unlock()
}
