// SPDX-License-Identifier: MIT

package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Client searches the catalog. Implementations are expected to be slow
// (network-bound) and must honor context cancellation.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]Track, error)
}

// YTDLP searches by invoking the yt-dlp binary in flat-playlist mode,
// which emits one JSON document per result line.
type YTDLP struct {
	Path string
}

// NewYTDLP creates a search client invoking the given binary.
func NewYTDLP(path string) *YTDLP {
	return &YTDLP{Path: path}
}

type flatEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Channel    string  `json:"channel"`
	Uploader   string  `json:"uploader"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// Search runs a flat catalog search and maps the raw entries to Tracks.
// Entries the extractor could not fully describe (no id) are skipped.
func (y *YTDLP) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	cmd := exec.CommandContext(ctx, y.Path,
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
		"--quiet",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("search %q: %w", query, ctx.Err())
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("search %q: %s: %w", query, detail, err)
		}
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var tracks []Track
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e flatEntry
		if err := json.Unmarshal(line, &e); err != nil || e.ID == "" {
			continue
		}
		tracks = append(tracks, Track{
			Title:           e.Title,
			MediaID:         e.ID,
			Thumbnail:       thumbnail(e),
			Artist:          artist(e),
			DurationSeconds: int(e.Duration),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("search %q: read extractor output: %w", query, err)
	}
	return tracks, nil
}

func artist(e flatEntry) string {
	if e.Channel != "" {
		return e.Channel
	}
	return e.Uploader
}

// thumbnail picks the extractor's first thumbnail, falling back to the
// predictable CDN art URL when flat extraction yields none.
func thumbnail(e flatEntry) string {
	if len(e.Thumbnails) > 0 && e.Thumbnails[0].URL != "" {
		return e.Thumbnails[0].URL
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", e.ID)
}
