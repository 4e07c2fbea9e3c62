// SPDX-License-Identifier: MIT

//go:build !windows

package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestSearchParsesFlatOutput(t *testing.T) {
	stub := writeStub(t, `cat <<'EOF'
{"id":"abc123","title":"Track One","duration":215.0,"channel":"Artist A","thumbnails":[{"url":"https://img/1.jpg"}]}
{"id":"def456","title":"Track Two","duration":180.0,"uploader":"Artist B"}

{"title":"no id, skipped"}
EOF`)
	y := NewYTDLP(stub)

	tracks, err := y.Search(context.Background(), "some query", 10)
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, Track{
		Title:           "Track One",
		MediaID:         "abc123",
		Thumbnail:       "https://img/1.jpg",
		Artist:          "Artist A",
		DurationSeconds: 215,
	}, tracks[0])

	assert.Equal(t, "def456", tracks[1].MediaID)
	assert.Equal(t, "Artist B", tracks[1].Artist, "uploader fills in when channel is absent")
	assert.Equal(t, "https://i.ytimg.com/vi/def456/hqdefault.jpg", tracks[1].Thumbnail,
		"thumbnail falls back to the predictable CDN URL")
}

func TestSearchExtractorFailure(t *testing.T) {
	stub := writeStub(t, `echo 'ERROR: search backend down' >&2; exit 1`)
	y := NewYTDLP(stub)

	_, err := y.Search(context.Background(), "query", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search backend down")
}

func TestSearchEmptyResults(t *testing.T) {
	stub := writeStub(t, `exit 0`)
	y := NewYTDLP(stub)

	tracks, err := y.Search(context.Background(), "query", 10)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}
