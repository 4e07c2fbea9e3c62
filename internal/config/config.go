// SPDX-License-Identifier: MIT

// Package config loads the fluxd runtime configuration from the
// environment. The reference deployment uses compile-time constants for
// these values; here they are exposed as FLUXD_* variables with the same
// defaults.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// AppConfig holds all runtime settings for the daemon.
type AppConfig struct {
	// ListenAddr is the HTTP listen address, e.g. ":5000".
	ListenAddr string

	// DataDir is where durable state (the stream cache snapshot) lives.
	DataDir string

	// CacheTTL is the lifetime of a resolved stream location.
	CacheTTL time.Duration

	// SweepInterval is the period of the expired-entry sweep.
	SweepInterval time.Duration

	// PrefetchWorkers is the size of the background resolution pool.
	PrefetchWorkers int

	// PrefetchQueue is the capacity of the prefetch job queue.
	PrefetchQueue int

	// ChunkSize is the default relay chunk size in bytes.
	ChunkSize int

	// UpstreamTimeout bounds upstream connect/response time.
	UpstreamTimeout time.Duration

	// YTDLPPath is the extractor binary invoked for resolution and search.
	YTDLPPath string

	// SearchLimit caps the number of catalog search results.
	SearchLimit int

	// RedisAddr selects the Redis cache backend when non-empty; the
	// in-memory store is used otherwise.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RateLimitRPS is the per-client request rate limit (0 disables).
	RateLimitRPS int
}

// Defaults mirrored from the reference deployment.
const (
	DefaultCacheTTL        = 300 * time.Second
	DefaultSweepInterval   = 300 * time.Second
	DefaultPrefetchWorkers = 4
	DefaultPrefetchQueue   = 64
	DefaultChunkSize       = 4096
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultSearchLimit     = 10
)

// SnapshotFile is the durable cache snapshot filename inside DataDir.
const SnapshotFile = "stream_cache.json"

// FromEnv assembles an AppConfig from FLUXD_* environment variables.
func FromEnv() AppConfig {
	return AppConfig{
		ListenAddr:      ParseString("FLUXD_LISTEN", ":5000"),
		DataDir:         ParseString("FLUXD_DATA", "."),
		CacheTTL:        ParseDuration("FLUXD_CACHE_TTL", DefaultCacheTTL),
		SweepInterval:   ParseDuration("FLUXD_SWEEP_INTERVAL", DefaultSweepInterval),
		PrefetchWorkers: ParseInt("FLUXD_PREFETCH_WORKERS", DefaultPrefetchWorkers),
		PrefetchQueue:   ParseInt("FLUXD_PREFETCH_QUEUE", DefaultPrefetchQueue),
		ChunkSize:       ParseInt("FLUXD_CHUNK_SIZE", DefaultChunkSize),
		UpstreamTimeout: ParseDuration("FLUXD_UPSTREAM_TIMEOUT", DefaultUpstreamTimeout),
		YTDLPPath:       ParseString("FLUXD_YTDLP_PATH", "yt-dlp"),
		SearchLimit:     ParseInt("FLUXD_SEARCH_LIMIT", DefaultSearchLimit),
		RedisAddr:       ParseString("FLUXD_REDIS_ADDR", ""),
		RedisPassword:   ParseString("FLUXD_REDIS_PASSWORD", ""),
		RedisDB:         ParseInt("FLUXD_REDIS_DB", 0),
		RateLimitRPS:    ParseInt("FLUXD_RATE_LIMIT_RPS", 0),
	}
}

// SnapshotPath returns the absolute snapshot file path.
func (c AppConfig) SnapshotPath() string {
	return filepath.Join(c.DataDir, SnapshotFile)
}

// Validate rejects configurations the daemon cannot run with.
func (c AppConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen address is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache TTL must be positive, got %s", c.CacheTTL)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("config: sweep interval must be positive, got %s", c.SweepInterval)
	}
	if c.PrefetchWorkers <= 0 {
		return fmt.Errorf("config: prefetch workers must be positive, got %d", c.PrefetchWorkers)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("config: chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("config: upstream timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("config: search limit must be positive, got %d", c.SearchLimit)
	}
	return nil
}
