// SPDX-License-Identifier: MIT

package streamcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "fluxd:stream:"

// RedisStore is a Redis-backed Store. Expiry is delegated to Redis TTLs,
// so no janitor is needed; multiple fluxd instances can share one cache.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type redisEntry struct {
	Location  string `json:"location"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis stream cache")

	return &RedisStore{client: client, logger: logger}, nil
}

// Get returns the entry for id if Redis still holds it.
func (s *RedisStore) Get(ctx context.Context, id string) (Entry, bool) {
	val, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		s.stats.misses.Add(1)
		return Entry{}, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("redis get failed")
		s.stats.misses.Add(1)
		return Entry{}, false
	}

	var e redisEntry
	if err := json.Unmarshal(val, &e); err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("redis entry unmarshal failed")
		s.stats.misses.Add(1)
		return Entry{}, false
	}

	s.stats.hits.Add(1)
	return Entry{Location: e.Location, ExpiresAt: time.Unix(e.ExpiresAt, 0)}, true
}

// Put stores a location for id with the given TTL.
func (s *RedisStore) Put(ctx context.Context, id, location string, ttl time.Duration) {
	data, err := json.Marshal(redisEntry{
		Location:  location,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("redis entry marshal failed")
		return
	}

	if err := s.client.Set(ctx, redisKeyPrefix+id, data, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("redis set failed")
		return
	}
	s.stats.sets.Add(1)
}

// Delete removes the entry for id.
func (s *RedisStore) Delete(ctx context.Context, id string) {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("redis delete failed")
	}
}

// Snapshot scans all live entries. Used for the shutdown snapshot; with a
// shared Redis backend the result may interleave with concurrent writers,
// which is acceptable for a best-effort dump.
func (s *RedisStore) Snapshot(ctx context.Context) map[string]Entry {
	out := make(map[string]Entry)

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var e redisEntry
		if err := json.Unmarshal(val, &e); err != nil {
			continue
		}
		out[key[len(redisKeyPrefix):]] = Entry{
			Location:  e.Location,
			ExpiresAt: time.Unix(e.ExpiresAt, 0),
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("redis snapshot scan failed")
	}
	return out
}

// Stats returns cache counters. CurrentSize counts only fluxd keys.
func (s *RedisStore) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	size := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		size++
	}

	return Stats{
		Hits:        s.stats.hits.Load(),
		Misses:      s.stats.misses.Load(),
		Sets:        s.stats.sets.Load(),
		CurrentSize: size,
	}
}

// Ping checks Redis availability, used by the readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
