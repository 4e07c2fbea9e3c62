// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fluxaudio/fluxd/internal/log"
	"github.com/fluxaudio/fluxd/internal/relay"
	"github.com/fluxaudio/fluxd/internal/search"
)

// handleStream resolves a media identifier and returns the stream URL.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		writeMissingParam(w, "Missing videoId")
		return
	}

	location, err := s.resolver.Resolve(r.Context(), videoID)
	if err != nil {
		l := log.FromContext(r.Context())
		l.Warn().
			Err(err).
			Str("media_id", videoID).
			Msg("stream resolution failed")
		writeError(w, errorStatus(err), "Failed to fetch stream URL")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"streamUrl": location})
}

// handleStreamDirect proxies the resolved stream to the client, honoring
// Range semantics.
func (s *Server) handleStreamDirect(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("videoId")
	if videoID == "" {
		writeMissingParam(w, "Missing videoId")
		return
	}

	chunkSize := 0
	if raw := r.URL.Query().Get("chunkSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > relay.MaxChunkSize {
			writeMissingParam(w, "Invalid chunkSize")
			return
		}
		chunkSize = n
	}

	if err := s.streamer.Stream(w, r, videoID, chunkSize); err != nil {
		l := log.FromContext(r.Context())
		l.Warn().
			Err(err).
			Str("media_id", videoID).
			Msg("stream relay failed")
		writeError(w, errorStatus(err), "Streaming failed")
	}
}

// handleSearch queries the catalog and warms the stream cache for the
// result set after the response payload is assembled.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeMissingParam(w, "Missing query parameter")
		return
	}

	tracks, err := s.searcher.Search(r.Context(), query, s.cfg.SearchLimit)
	if err != nil {
		l := log.FromContext(r.Context())
		l.Warn().Err(err).Str("query", query).Msg("search failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	songs := search.FilterShortForm(tracks)

	// Fire-and-forget: playback of any result skips the extraction wait.
	s.prefetch.Enqueue(search.MediaIDs(songs)...)

	writeJSON(w, http.StatusOK, songs)
}

// handleSimilar searches for related tracks, used by the client's
// autoplay. Same shape as handleSearch but without prefetching.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	artist := r.URL.Query().Get("artist")
	if title == "" && artist == "" {
		writeMissingParam(w, "Missing title or artist")
		return
	}

	query := strings.TrimSpace(title + " " + artist)

	tracks, err := s.searcher.Search(r.Context(), query, s.cfg.SearchLimit)
	if err != nil {
		l := log.FromContext(r.Context())
		l.Warn().Err(err).Str("query", query).Msg("similar search failed")
		writeError(w, http.StatusInternalServerError, "Similar search failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, search.FilterShortForm(tracks))
}
