// SPDX-License-Identifier: MIT

package streamcache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemoryStore is the in-memory Store implementation. A janitor goroutine
// sweeps expired entries on a fixed interval for the lifetime of the store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	stats   Stats

	now     func() time.Time
	onEvict EvictFunc
	logger  zerolog.Logger

	janitor *janitor
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects a clock, used by tests to control expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithEvictFunc registers a callback fired when entries leave the store.
func WithEvictFunc(fn EvictFunc) MemoryOption {
	return func(s *MemoryStore) { s.onEvict = fn }
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) MemoryOption {
	return func(s *MemoryStore) { s.logger = l }
}

// NewMemoryStore creates an in-memory store. sweepInterval <= 0 disables
// the background sweep (tests drive SweepExpired directly).
func NewMemoryStore(sweepInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if sweepInterval > 0 {
		s.janitor = &janitor{
			interval: sweepInterval,
			stop:     make(chan struct{}),
		}
		go s.janitor.run(s)
	}

	return s
}

// Get returns the entry for id if present and not yet expired. Expired
// entries report a miss and are left for the sweep or the next Put.
func (s *MemoryStore) Get(_ context.Context, id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !s.now().Before(e.ExpiresAt) {
		s.stats.Misses++
		return Entry{}, false
	}

	s.stats.Hits++
	return e, true
}

// Put stores a location for id, replacing any existing entry.
func (s *MemoryStore) Put(_ context.Context, id, location string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[id]; ok && old.Location != location && s.onEvict != nil {
		s.onEvict(id, old)
	}
	s.entries[id] = Entry{
		Location:  location,
		ExpiresAt: s.now().Add(ttl),
	}
	s.stats.Sets++
}

// Delete removes the entry for id.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[id]; ok {
		delete(s.entries, id)
		if s.onEvict != nil {
			s.onEvict(id, old)
		}
	}
}

// Snapshot returns a point-in-time copy of all live entries.
func (s *MemoryStore) Snapshot(_ context.Context) map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		if now.Before(e.ExpiresAt) {
			out[id] = e
		}
	}
	return out
}

// Restore bulk-loads entries, typically from a durable snapshot. Existing
// entries win over restored ones.
func (s *MemoryStore) Restore(entries map[string]Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range entries {
		if _, ok := s.entries[id]; !ok {
			s.entries[id] = e
		}
	}
}

// Stats returns cache counters.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.CurrentSize = len(s.entries)
	return stats
}

// SweepExpired removes all entries past their expiry. Returns the number of
// entries removed.
func (s *MemoryStore) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for id, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, id)
			if s.onEvict != nil {
				s.onEvict(id, e)
			}
			count++
		}
	}
	s.stats.Evictions += int64(count)

	if count > 0 {
		s.logger.Debug().Int("evicted", count).Msg("swept expired stream locations")
	}
	return count
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	if s.janitor != nil {
		s.janitor.stopOnce.Do(func() { close(s.janitor.stop) })
	}
	return nil
}

// janitor performs the periodic expired-entry sweep.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func (j *janitor) run(s *MemoryStore) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepExpired()
		case <-j.stop:
			return
		}
	}
}
