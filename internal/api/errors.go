// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fluxaudio/fluxd/internal/relay"
	"github.com/fluxaudio/fluxd/internal/resolver"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeMissingParam writes the 400 response for an absent query parameter.
func writeMissingParam(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

// errorStatus maps resolution and relay failures to client-visible codes.
// Resolution failures present as 500 (the daemon could not produce a
// stream URL); upstream transport failures present as 502.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, relay.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, resolver.ErrNotFound),
		errors.Is(err, resolver.ErrTimeout),
		errors.Is(err, resolver.ErrExtractor),
		errors.Is(err, resolver.ErrUnavailable):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
