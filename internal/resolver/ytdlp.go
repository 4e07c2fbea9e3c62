// SPDX-License-Identifier: MIT

package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
)

// YTDLP extracts stream locations by invoking the yt-dlp binary with a
// fixed request profile: best audio-only format, no playlist expansion,
// quiet output with warnings suppressed.
type YTDLP struct {
	// Path is the binary to invoke, e.g. "yt-dlp".
	Path string
	// WatchURLPrefix is prepended to the media identifier to form the
	// page URL handed to the extractor.
	WatchURLPrefix string
}

// DefaultWatchURLPrefix matches the reference deployment's source site.
const DefaultWatchURLPrefix = "https://www.youtube.com/watch?v="

// NewYTDLP creates an extractor invoking the given binary.
func NewYTDLP(path string) *YTDLP {
	return &YTDLP{Path: path, WatchURLPrefix: DefaultWatchURLPrefix}
}

type ytdlpInfo struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// BestAudio runs the extractor for one media identifier and returns the
// resolved location. The context bounds the subprocess lifetime.
func (y *YTDLP) BestAudio(ctx context.Context, mediaID string) (Resolution, error) {
	cmd := exec.CommandContext(ctx, y.Path,
		"--format", "bestaudio/best",
		"--dump-json",
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		y.watchURL(mediaID),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Resolution{}, y.classify(ctx, mediaID, err, stderr.String())
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return Resolution{}, &ResolveError{
			Sentinel: ErrExtractor,
			MediaID:  mediaID,
			Detail:   "malformed extractor output",
			Err:      err,
		}
	}
	if info.URL == "" {
		return Resolution{}, &ResolveError{
			Sentinel: ErrExtractor,
			MediaID:  mediaID,
			Detail:   "extractor returned no stream URL",
		}
	}

	return Resolution{
		URL:             info.URL,
		Title:           info.Title,
		DurationSeconds: int(info.Duration),
	}, nil
}

func (y *YTDLP) watchURL(mediaID string) string {
	prefix := y.WatchURLPrefix
	if prefix == "" {
		prefix = DefaultWatchURLPrefix
	}
	return prefix + mediaID
}

func (y *YTDLP) classify(ctx context.Context, mediaID string, err error, stderr string) error {
	switch {
	case ctx.Err() != nil:
		return &ResolveError{Sentinel: ErrTimeout, MediaID: mediaID, Err: ctx.Err()}
	case errors.Is(err, exec.ErrNotFound):
		return &ResolveError{Sentinel: ErrUnavailable, MediaID: mediaID, Err: err}
	}

	detail := lastLine(stderr)
	lower := strings.ToLower(detail)
	if strings.Contains(lower, "video unavailable") ||
		strings.Contains(lower, "private video") ||
		strings.Contains(lower, "removed") {
		return &ResolveError{Sentinel: ErrNotFound, MediaID: mediaID, Detail: detail, Err: err}
	}
	return &ResolveError{Sentinel: ErrExtractor, MediaID: mediaID, Detail: detail, Err: err}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
