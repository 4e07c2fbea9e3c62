// SPDX-License-Identifier: MIT

// Package streamcache maps media identifiers to resolved, time-limited
// stream locations. It is shared by all request handlers and the background
// prefetcher; a durable snapshot survives process restarts.
package streamcache

import (
	"context"
	"time"
)

// Entry is a resolved stream location with its expiry instant.
type Entry struct {
	Location  string
	ExpiresAt time.Time
}

// Store provides thread-safe storage of resolved stream locations.
type Store interface {
	// Get returns the entry for id if present and not expired.
	Get(ctx context.Context, id string) (Entry, bool)
	// Put stores a location for id with the given TTL, replacing any
	// existing entry.
	Put(ctx context.Context, id, location string, ttl time.Duration)
	// Delete removes the entry for id.
	Delete(ctx context.Context, id string)
	// Snapshot returns a point-in-time copy of all live entries.
	Snapshot(ctx context.Context) map[string]Entry
	// Stats returns cache counters.
	Stats() Stats
	// Close releases background resources (janitor, connections).
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

// EvictFunc is invoked when an entry leaves the store, either swept by the
// janitor or replaced by a Put with a different location. The first-chunk
// cache hooks in here so its entries share the resolution lifecycle.
type EvictFunc func(id string, e Entry)
