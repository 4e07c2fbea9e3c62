// SPDX-License-Identifier: MIT

// Package relay proxies resolved audio streams to downstream clients,
// forwarding HTTP range semantics and serving the opening chunk from the
// first-chunk cache when it can.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/fluxaudio/fluxd/internal/chunkcache"
	"github.com/fluxaudio/fluxd/internal/metrics"
)

// ErrUpstream marks upstream connect/timeout failures that happen before
// any byte reaches the client.
var ErrUpstream = errors.New("relay: upstream request failed")

// MaxChunkSize bounds the per-read buffer. Client-supplied sizes above
// it would let a single request allocate arbitrary memory.
const MaxChunkSize = 1 << 20

// Resolver is the subset of the resolution service the relay needs.
type Resolver interface {
	Resolve(ctx context.Context, mediaID string) (string, error)
}

// Relay streams upstream bytes to clients.
type Relay struct {
	resolver  Resolver
	chunks    *chunkcache.Cache
	client    *http.Client
	chunkSize int
	logger    zerolog.Logger
}

// Config holds relay construction parameters.
type Config struct {
	Resolver Resolver
	Chunks   *chunkcache.Cache
	// UpstreamTimeout bounds connect and response-header time. The body
	// read is not bounded: a stream lives as long as playback.
	UpstreamTimeout time.Duration
	// ChunkSize is the default read/write granularity in bytes.
	ChunkSize int
	Logger    zerolog.Logger
}

// New creates a Relay.
func New(cfg Config) *Relay {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}
	return &Relay{
		resolver: cfg.Resolver,
		chunks:   cfg.Chunks,
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.UpstreamTimeout,
				}).DialContext,
				ResponseHeaderTimeout: cfg.UpstreamTimeout,
				MaxIdleConns:          16,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		chunkSize: cfg.ChunkSize,
		logger:    cfg.Logger,
	}
}

// Stream resolves mediaID and relays its bytes to w. An error return means
// no response has been written yet, so the caller can still send a JSON
// failure; once headers go out, mid-stream failures terminate the body.
//
// chunkSize outside (0, MaxChunkSize] selects the configured default.
func (rl *Relay) Stream(w http.ResponseWriter, r *http.Request, mediaID string, chunkSize int) error {
	if chunkSize <= 0 || chunkSize > MaxChunkSize {
		chunkSize = rl.chunkSize
	}

	location, err := rl.resolver.Resolve(r.Context(), mediaID)
	if err != nil {
		metrics.IncRelay("resolve_error")
		return err
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, location, nil)
	if err != nil {
		metrics.IncRelay("bad_location")
		return fmt.Errorf("%w: invalid location: %w", ErrUpstream, err)
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		// Forwarded verbatim: the upstream honors byte ranges, this
		// relay does not reinterpret them.
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := rl.client.Do(req)
	if err != nil {
		metrics.IncRelay("upstream_error")
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// A ranged request presents the upstream status verbatim (206
	// expected); a plain request always presents as a full 200 transfer.
	status := http.StatusOK
	if rangeHeader != "" {
		status = resp.StatusCode
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)

	if rangeHeader != "" {
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			w.Header().Set("Content-Range", cr)
			w.Header().Set("Accept-Ranges", "bytes")
			if cl := resp.Header.Get("Content-Length"); cl != "" {
				w.Header().Set("Content-Length", cl)
			}
		}
	}
	w.WriteHeader(status)
	metrics.IncRelay("streaming")

	if rangeHeader == "" {
		rl.streamWithFirstChunk(w, resp.Body, location, chunkSize)
	} else {
		// The cached first chunk is always position 0 of the full
		// stream; splicing it into a ranged body would corrupt it.
		rl.copyChunks(w, resp.Body, chunkSize)
	}
	return nil
}

// streamWithFirstChunk emits the opening chunk through the first-chunk
// cache, then relays the rest of the live body. The skip decision is
// positional: on a cache hit exactly the first chunk's bytes of the live
// body are discarded, never later content-equal chunks.
func (rl *Relay) streamWithFirstChunk(w http.ResponseWriter, body io.Reader, location string, chunkSize int) {
	fetched := false
	first, err := rl.chunks.GetOrFetch(location, func() ([]byte, error) {
		fetched = true
		return readChunk(body, chunkSize)
	})
	if err != nil {
		metrics.IncFirstChunk(false)
		rl.logger.Debug().Err(err).Str("location", location).Msg("first chunk read failed")
		return
	}
	metrics.IncFirstChunk(!fetched)

	// The cached chunk goes out before any wait on the live body, so a
	// cache hit cuts time-to-first-byte even when the upstream is slow
	// to start sending.
	if len(first) > 0 {
		if _, err := w.Write(first); err != nil {
			return
		}
		metrics.RelayBytes.Add(float64(len(first)))
		flush(w)
	}

	if !fetched && len(first) > 0 {
		// Chunk came from cache: the live body still starts at position
		// zero, so drop its copy of those bytes.
		if _, err := io.CopyN(io.Discard, body, int64(len(first))); err != nil && err != io.EOF {
			rl.logger.Debug().Err(err).Str("location", location).Msg("skipping cached prefix failed")
			return
		}
	}

	rl.copyChunks(w, body, chunkSize)
}

// copyChunks relays body to w in chunkSize reads until the upstream is
// exhausted or either side fails. Mid-stream errors terminate the
// sequence; there is no retry.
func (rl *Relay) copyChunks(w http.ResponseWriter, body io.Reader, chunkSize int) {
	buf := make([]byte, chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			metrics.RelayBytes.Add(float64(n))
			flush(w)
		}
		if readErr != nil {
			if readErr != io.EOF {
				rl.logger.Debug().Err(readErr).Msg("upstream stream terminated")
			}
			return
		}
	}
}

// readChunk reads up to size bytes, tolerating a short first read on
// streams smaller than one chunk.
func readChunk(r io.Reader, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
