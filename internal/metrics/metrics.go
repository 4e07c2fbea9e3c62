// SPDX-License-Identifier: MIT

// Package metrics registers the Prometheus collectors exported by fluxd.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolveTotal counts resolution attempts by outcome.
	ResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxd_resolve_total",
		Help: "Stream location resolutions by result",
	}, []string{"result"})

	// ResolveDuration tracks external resolver latency. Resolutions go
	// through the extractor binary and routinely take seconds.
	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fluxd_resolve_duration_seconds",
		Help:    "External resolver call latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
	})

	// CacheLookupTotal counts stream cache lookups by outcome.
	CacheLookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxd_stream_cache_lookup_total",
		Help: "Stream location cache lookups by result",
	}, []string{"result"})

	// FirstChunkTotal counts first-chunk cache lookups by outcome.
	FirstChunkTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxd_first_chunk_total",
		Help: "First-chunk cache lookups by result",
	}, []string{"result"})

	// RelayBytes counts bytes streamed to clients.
	RelayBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fluxd_relay_bytes_total",
		Help: "Bytes relayed to downstream clients",
	})

	// RelayTotal counts relay attempts by outcome.
	RelayTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxd_relay_total",
		Help: "Stream relay attempts by result",
	}, []string{"result"})

	// PrefetchTotal counts prefetch submissions by outcome.
	PrefetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fluxd_prefetch_total",
		Help: "Prefetch job submissions by outcome",
	}, []string{"outcome"})
)

// IncResolve records a resolution attempt outcome.
func IncResolve(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	ResolveTotal.WithLabelValues(result).Inc()
}

// ObserveResolveDuration records external resolver latency.
func ObserveResolveDuration(d time.Duration) {
	ResolveDuration.Observe(d.Seconds())
}

// IncCacheLookup records a stream cache lookup outcome.
func IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupTotal.WithLabelValues(result).Inc()
}

// IncFirstChunk records a first-chunk cache lookup outcome.
func IncFirstChunk(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	FirstChunkTotal.WithLabelValues(result).Inc()
}

// IncRelay records a relay attempt outcome.
func IncRelay(result string) {
	RelayTotal.WithLabelValues(result).Inc()
}

// IncPrefetch records a prefetch submission outcome
// ("queued", "dedup", "dropped", "failed", "resolved").
func IncPrefetch(outcome string) {
	PrefetchTotal.WithLabelValues(outcome).Inc()
}
