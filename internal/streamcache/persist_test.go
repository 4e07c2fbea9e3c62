// SPDX-License-Identifier: MIT

package streamcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_cache.json")

	clock := newFakeClock()
	store := NewMemoryStore(0, WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	store.Put(ctx, "abc123", "https://cdn/x.mp3", 300*time.Second)
	store.Put(ctx, "def456", "https://cdn/y.mp3", 600*time.Second)

	require.NoError(t, SaveFile(path, store.Snapshot(ctx)))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, "https://cdn/x.mp3", loaded["abc123"].Location)
	assert.Equal(t, "https://cdn/y.mp3", loaded["def456"].Location)
	assert.WithinDuration(t, clock.Now().Add(300*time.Second), loaded["abc123"].ExpiresAt, time.Millisecond)

	fresh := NewMemoryStore(0, WithClock(clock.Now))
	defer fresh.Close()
	fresh.Restore(loaded)

	e, ok := fresh.Get(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, "https://cdn/x.mp3", e.Location)
}

func TestLoadFileMissing(t *testing.T) {
	loaded, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLoadFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err, "corruption is reported to the caller, which logs and starts empty")
}

func TestLoadFileLegacyFormat(t *testing.T) {
	// Snapshot layout written by the original deployment: identifier to
	// [url, fractional epoch seconds].
	path := filepath.Join(t.TempDir(), "stream_cache.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"abc123": ["https://cdn/x.mp3", 1700000300.25], "bad": ["only-one-field"]}`), 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "malformed records are skipped")

	e := loaded["abc123"]
	assert.Equal(t, "https://cdn/x.mp3", e.Location)
	assert.Equal(t, int64(1700000300), e.ExpiresAt.Unix())
}

func TestSaveFileUnwritablePath(t *testing.T) {
	err := SaveFile(filepath.Join(t.TempDir(), "no", "such", "dir", "f.json"), map[string]Entry{})
	assert.Error(t, err)
}
