// SPDX-License-Identifier: MIT

// Package search queries the external catalog for tracks matching a
// free-text query. Results feed the API response and the background
// prefetcher; this package never touches the stream caches itself.
package search

// Track is one playable catalog result.
type Track struct {
	Title           string `json:"title"`
	MediaID         string `json:"videoId"`
	Thumbnail       string `json:"thumbnail"`
	Artist          string `json:"artist"`
	DurationSeconds int    `json:"duration"`
}

// MinTrackSeconds is the shortest result treated as music; anything
// shorter is assumed to be non-music short-form content and dropped.
const MinTrackSeconds = 100

// FilterShortForm removes tracks under MinTrackSeconds.
func FilterShortForm(tracks []Track) []Track {
	out := make([]Track, 0, len(tracks))
	for _, tr := range tracks {
		if tr.DurationSeconds < MinTrackSeconds {
			continue
		}
		out = append(out, tr)
	}
	return out
}

// MediaIDs extracts the identifiers from a result set, in order.
func MediaIDs(tracks []Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, tr := range tracks {
		ids = append(ids, tr.MediaID)
	}
	return ids
}
