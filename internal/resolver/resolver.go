// SPDX-License-Identifier: MIT

// Package resolver turns opaque media identifiers into time-limited,
// upstream-issued stream locations, backed by the shared stream cache.
package resolver

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fluxaudio/fluxd/internal/metrics"
	"github.com/fluxaudio/fluxd/internal/streamcache"
)

// Resolution is the extractor's answer for one media identifier.
type Resolution struct {
	// URL is the time-limited byte-stream address.
	URL string
	// Title and DurationSeconds are informational; the relay only needs URL.
	Title           string
	DurationSeconds int
}

// Extractor is the external capability that produces a playable location
// for a media identifier. Calls are network-bound and may take seconds.
type Extractor interface {
	BestAudio(ctx context.Context, mediaID string) (Resolution, error)
}

// Service resolves identifiers through the stream cache. Concurrent misses
// for the same identifier share one extractor call; the reference behavior
// allowed redundant upstream calls, this implementation strengthens it to
// single-flight per identifier.
type Service struct {
	extractor Extractor
	store     streamcache.Store
	ttl       time.Duration
	group     singleflight.Group
	logger    zerolog.Logger
}

// NewService creates a resolution service with the given cache TTL.
func NewService(extractor Extractor, store streamcache.Store, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		extractor: extractor,
		store:     store,
		ttl:       ttl,
		logger:    logger,
	}
}

// Resolve returns the stream location for mediaID, from cache when the
// cached entry is still inside its TTL. Failures are never cached.
func (s *Service) Resolve(ctx context.Context, mediaID string) (string, error) {
	if e, ok := s.store.Get(ctx, mediaID); ok {
		metrics.IncCacheLookup(true)
		return e.Location, nil
	}
	metrics.IncCacheLookup(false)

	v, err, shared := s.group.Do(mediaID, func() (any, error) {
		// A sibling caller may have populated the cache while this call
		// waited on the flight group.
		if e, ok := s.store.Get(ctx, mediaID); ok {
			return e.Location, nil
		}

		start := time.Now()
		res, err := s.extractor.BestAudio(ctx, mediaID)
		metrics.ObserveResolveDuration(time.Since(start))
		if err != nil {
			metrics.IncResolve(false)
			s.logger.Warn().
				Err(err).
				Str("media_id", mediaID).
				Dur("elapsed", time.Since(start)).
				Msg("stream resolution failed")
			return "", err
		}

		s.store.Put(ctx, mediaID, res.URL, s.ttl)
		metrics.IncResolve(true)
		s.logger.Debug().
			Str("media_id", mediaID).
			Dur("elapsed", time.Since(start)).
			Msg("stream location resolved")
		return res.URL, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		s.logger.Debug().Str("media_id", mediaID).Msg("resolution shared with concurrent caller")
	}
	return v.(string), nil
}

// TTL returns the configured cache TTL.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
