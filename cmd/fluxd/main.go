// SPDX-License-Identifier: MIT

// Command fluxd is the audio stream relay daemon: it resolves media
// identifiers to time-limited stream locations, proxies ranged byte
// streams and keeps a durable resolution cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluxaudio/fluxd/internal/api"
	"github.com/fluxaudio/fluxd/internal/chunkcache"
	"github.com/fluxaudio/fluxd/internal/config"
	"github.com/fluxaudio/fluxd/internal/health"
	xglog "github.com/fluxaudio/fluxd/internal/log"
	"github.com/fluxaudio/fluxd/internal/prefetch"
	"github.com/fluxaudio/fluxd/internal/relay"
	"github.com/fluxaudio/fluxd/internal/resolver"
	"github.com/fluxaudio/fluxd/internal/search"
	"github.com/fluxaudio/fluxd/internal/streamcache"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fluxd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Service: "fluxd", Version: version})
	logger := xglog.WithComponent("daemon")

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
}

func run(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) error {
	chunks := chunkcache.New(0)

	store, err := buildStore(cfg, chunks)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing stream cache store")
		}
	}()

	extractor := resolver.NewYTDLP(cfg.YTDLPPath)
	resolveSvc := resolver.NewService(extractor, store, cfg.CacheTTL, xglog.WithComponent("resolver"))

	pool := prefetch.New(resolveSvc, prefetch.Config{
		Workers:   cfg.PrefetchWorkers,
		QueueSize: cfg.PrefetchQueue,
	}, xglog.WithComponent("prefetch"))
	pool.Start()
	defer pool.Stop()

	streamRelay := relay.New(relay.Config{
		Resolver:        resolveSvc,
		Chunks:          chunks,
		UpstreamTimeout: cfg.UpstreamTimeout,
		ChunkSize:       cfg.ChunkSize,
		Logger:          xglog.WithComponent("relay"),
	})

	healthMgr := health.NewManager(version)
	healthMgr.RegisterChecker(health.ExtractorChecker{Path: cfg.YTDLPPath})
	if rs, ok := store.(*streamcache.RedisStore); ok {
		healthMgr.RegisterChecker(health.StoreChecker{Ping: rs.Ping})
	}

	server := api.New(api.Deps{
		Config:     cfg,
		Resolver:   resolveSvc,
		Streamer:   streamRelay,
		Searcher:   search.NewYTDLP(cfg.YTDLPPath),
		Prefetcher: pool,
		Health:     healthMgr,
		Logger:     xglog.WithComponent("http"),
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}

	// Best-effort snapshot: a failed save costs re-resolutions, nothing
	// more, and must never block process exit.
	if err := streamcache.SaveFile(cfg.SnapshotPath(), store.Snapshot(shutdownCtx)); err != nil {
		logger.Warn().Err(err).Msg("stream cache snapshot save failed")
	} else {
		logger.Info().Str("path", cfg.SnapshotPath()).Msg("stream cache snapshot saved")
	}

	return nil
}

// buildStore selects the cache backend and, for the in-memory store,
// restores the durable snapshot.
func buildStore(cfg config.AppConfig, chunks *chunkcache.Cache) (streamcache.Store, error) {
	logger := xglog.WithComponent("streamcache")
	forget := func(_ string, e streamcache.Entry) {
		chunks.Forget(e.Location)
	}

	if cfg.RedisAddr != "" {
		store, err := streamcache.NewRedisStore(streamcache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("redis stream cache: %w", err)
		}
		return store, nil
	}

	store := streamcache.NewMemoryStore(cfg.SweepInterval,
		streamcache.WithLogger(logger),
		streamcache.WithEvictFunc(forget),
	)

	entries, err := streamcache.LoadFile(cfg.SnapshotPath())
	if err != nil {
		// Non-fatal: start empty and re-resolve on demand.
		logger.Warn().Err(err).Msg("stream cache snapshot load failed, starting empty")
		return store, nil
	}
	if len(entries) > 0 {
		store.Restore(entries)
		logger.Info().Int("entries", len(entries)).Msg("stream cache snapshot loaded")
	}
	return store, nil
}
