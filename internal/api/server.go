// SPDX-License-Identifier: MIT

// Package api provides the HTTP surface of fluxd: stream resolution,
// direct range-proxied streaming, catalog search and operational probes.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fluxaudio/fluxd/internal/config"
	"github.com/fluxaudio/fluxd/internal/health"
	"github.com/fluxaudio/fluxd/internal/search"
)

// Resolver resolves a media identifier to a stream location.
type Resolver interface {
	Resolve(ctx context.Context, mediaID string) (string, error)
}

// Streamer relays a resolved stream to the client.
type Streamer interface {
	Stream(w http.ResponseWriter, r *http.Request, mediaID string, chunkSize int) error
}

// Prefetcher warms the stream cache off the request path.
type Prefetcher interface {
	Enqueue(ids ...string)
}

// Server wires handlers to their collaborators.
type Server struct {
	cfg      config.AppConfig
	resolver Resolver
	streamer Streamer
	searcher search.Client
	prefetch Prefetcher
	health   *health.Manager
	logger   zerolog.Logger
}

// Deps carries the collaborators the server needs.
type Deps struct {
	Config     config.AppConfig
	Resolver   Resolver
	Streamer   Streamer
	Searcher   search.Client
	Prefetcher Prefetcher
	Health     *health.Manager
	Logger     zerolog.Logger
}

// New creates the API server.
func New(deps Deps) *Server {
	return &Server{
		cfg:      deps.Config,
		resolver: deps.Resolver,
		streamer: deps.Streamer,
		searcher: deps.Searcher,
		prefetch: deps.Prefetcher,
		health:   deps.Health,
		logger:   deps.Logger,
	}
}

// Routes assembles the router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHeaders)
	if s.cfg.RateLimitRPS > 0 {
		r.Use(httprate.LimitByRealIP(s.cfg.RateLimitRPS, httprateWindow))
	}

	// Streaming responses must not pass through the compressor; JSON
	// endpoints get their own group.
	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Get("/api/stream", s.handleStream)
		r.Get("/api/search", s.handleSearch)
		r.Get("/api/similar", s.handleSimilar)
	})

	r.Get("/api/stream_direct", s.handleStreamDirect)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
