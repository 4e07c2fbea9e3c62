// SPDX-License-Identifier: MIT

package resolver

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the HTTP boundary.
	ErrNotFound    = errors.New("resolver: media not found or removed")
	ErrTimeout     = errors.New("resolver: extraction timed out")
	ErrExtractor   = errors.New("resolver: extractor failed")
	ErrUnavailable = errors.New("resolver: extractor unavailable")
)

// ResolveError wraps a sentinel with the failing identifier and the
// underlying cause, preserved for logging.
type ResolveError struct {
	Sentinel error
	MediaID  string
	Detail   string
	Err      error
}

func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("resolve %s: %v", e.MediaID, e.Sentinel)
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResolveError) Unwrap() error {
	return e.Sentinel
}
