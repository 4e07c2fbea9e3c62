// SPDX-License-Identifier: MIT

// Package chunkcache caches the opening chunk of a resolved stream
// location so repeated playback starts skip the upstream round trip for
// the earliest bytes. Keys are resolved locations, not media identifiers:
// a re-resolved identifier yields a new location and therefore a fresh
// first chunk.
package chunkcache

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxEntries caps the cache so it does not grow with every
// location the process ever resolved.
const DefaultMaxEntries = 256

// Cache is an LRU-bounded map from resolved location to first chunk.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	max     int

	group singleflight.Group

	hits   int64
	misses int64
}

type chunkEntry struct {
	location string
	chunk    []byte
}

// New creates a Cache holding at most maxEntries chunks. maxEntries <= 0
// selects DefaultMaxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		max:     maxEntries,
	}
}

// Get returns the cached first chunk for location.
func (c *Cache) Get(location string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[location]
	if !ok {
		c.misses++
		return nil, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return el.Value.(*chunkEntry).chunk, true
}

// GetOrFetch returns the cached chunk for location, or invokes fetch once
// to obtain and store it. Concurrent callers for the same location share a
// single fetch. Fetch failures are not cached.
func (c *Cache) GetOrFetch(location string, fetch func() ([]byte, error)) ([]byte, error) {
	if chunk, ok := c.Get(location); ok {
		return chunk, nil
	}

	v, err, _ := c.group.Do(location, func() (any, error) {
		if chunk, ok := c.Get(location); ok {
			return chunk, nil
		}
		chunk, err := fetch()
		if err != nil {
			return nil, err
		}
		c.put(location, chunk)
		return chunk, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Forget drops the chunk for location. Wired to the stream cache's evict
// hook so chunk entries share the resolution entry lifecycle.
func (c *Cache) Forget(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[location]; ok {
		c.order.Remove(el)
		delete(c.entries, location)
	}
}

// Len returns the number of cached chunks.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// HitsMisses returns lookup counters.
func (c *Cache) HitsMisses() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) put(location string, chunk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[location]; ok {
		c.order.MoveToFront(el)
		el.Value.(*chunkEntry).chunk = chunk
		return
	}

	c.entries[location] = c.order.PushFront(&chunkEntry{location: location, chunk: chunk})

	for len(c.entries) > c.max {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*chunkEntry).location)
	}
}
