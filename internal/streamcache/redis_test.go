// SPDX-License-Identifier: MIT

package streamcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis starts a miniredis server and a RedisStore against it.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	store := &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger: zerolog.Nop(),
	}
	t.Cleanup(func() { _ = store.Close() })

	return mr, store
}

func TestRedisStorePutGet(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()

	store.Put(ctx, "abc123", "https://cdn/x.mp3", 5*time.Minute)

	e, ok := store.Get(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, "https://cdn/x.mp3", e.Location)

	_, ok = store.Get(ctx, "missing")
	assert.False(t, ok)

	assert.NoError(t, store.Ping(ctx))

	stats := store.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	store.Put(ctx, "abc123", "https://cdn/x.mp3", 300*time.Second)

	mr.FastForward(301 * time.Second)

	_, ok := store.Get(ctx, "abc123")
	assert.False(t, ok, "Redis TTL must expire the entry")
}

func TestRedisStoreDelete(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()

	store.Put(ctx, "abc123", "https://cdn/x.mp3", time.Minute)
	store.Delete(ctx, "abc123")

	_, ok := store.Get(ctx, "abc123")
	assert.False(t, ok)
}

func TestRedisStoreSnapshot(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()

	store.Put(ctx, "abc123", "https://cdn/x.mp3", time.Minute)
	store.Put(ctx, "def456", "https://cdn/y.mp3", time.Minute)

	snap := store.Snapshot(ctx)
	require.Len(t, snap, 2)
	assert.Equal(t, "https://cdn/x.mp3", snap["abc123"].Location)
	assert.Equal(t, "https://cdn/y.mp3", snap["def456"].Location)
}
