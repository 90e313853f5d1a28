// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/dropin-tui/internal/model"
	"github.com/jeranaias/dropin-tui/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the client's default base URL.
	DefaultAddr = "127.0.0.1:8000"

	// MaxRequestBodySize is the maximum size for request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageCount is the maximum number of messages in a request.
	MaxMessageCount = 200

	// Version is the loopback agent version.
	Version = "0.1.0"
)

// validRoles defines the set of acceptable message roles.
var validRoles = map[model.Role]bool{
	model.RoleUser:  true,
	model.RoleAgent: true,
	"system":        true,
}

// validatePayload checks roles and size of an incoming conversation.
func validatePayload(p model.Payload) error {
	if len(p.Messages) == 0 {
		return errors.New("messages must not be empty")
	}
	if len(p.Messages) > MaxMessageCount {
		return fmt.Errorf("too many messages: %d (max %d)", len(p.Messages), MaxMessageCount)
	}
	for i, msg := range p.Messages {
		if !validRoles[msg.Role] {
			return fmt.Errorf("invalid role '%s' at message %d: must be one of user, assistant, system", msg.Role, i)
		}
	}
	return nil
}

// ============================================================================
// CONFIG
// ============================================================================

// Config holds loopback agent settings.
type Config struct {
	// Addr to listen on (default: 127.0.0.1:8000)
	Addr string

	// ChunksPerSecond paces the reply (default: 40)
	ChunksPerSecond float64

	// Burst is how many chunks may go out back to back (default: 4)
	Burst int

	// ChunkSizes is the repeating pattern of chunk lengths in bytes
	ChunkSizes []int

	// RequestsPerMinute per client IP (default: 120)
	RequestsPerMinute int
}

// DefaultConfig returns the default loopback agent configuration.
func DefaultConfig() Config {
	return Config{
		Addr:              DefaultAddr,
		ChunksPerSecond:   40,
		Burst:             4,
		ChunkSizes:        []int{3, 1, 7, 2, 13, 5, 1, 21, 4},
		RequestsPerMinute: 120,
	}
}

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats tracks loopback agent usage.
type Stats struct {
	Requests  atomic.Int64
	Streams   atomic.Int64
	BytesSent atomic.Int64
	Aborted   atomic.Int64
	StartTime time.Time
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the loopback agent.
type Server struct {
	config  Config
	router  *http.ServeMux
	replier Replier
	stats   *Stats
	limiter *IPRateLimiter
	log     *zap.Logger

	mu     sync.Mutex
	server *http.Server
}

// New creates a loopback agent. Zero config fields take defaults and a nil
// logger discards output.
func New(cfg Config, logger *zap.Logger) *Server {
	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.ChunksPerSecond <= 0 {
		cfg.ChunksPerSecond = defaults.ChunksPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaults.Burst
	}
	if len(cfg.ChunkSizes) == 0 {
		cfg.ChunkSizes = defaults.ChunkSizes
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:  cfg,
		router:  http.NewServeMux(),
		replier: EchoReplier{},
		stats:   &Stats{StartTime: time.Now()},
		limiter: NewIPRateLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), cfg.RequestsPerMinute),
		log:     logger.Named("loopback"),
	}
	s.setupRoutes()
	return s
}

// WithReplier sets the reply source.
func (s *Server) WithReplier(r Replier) *Server {
	s.replier = r
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.config.Addr
}

// Stats returns the live counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /stream", s.handleStream)
	s.router.HandleFunc("GET /health_check", s.handleHealth)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(s.log),
		RequestIDMiddleware(),
		LoggingMiddleware(s.log),
		RateLimitMiddleware(s.limiter, s.log),
	)(s.router)
}

// ============================================================================
// STREAM HANDLER
// ============================================================================

// handleStream handles POST /stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.stats.Requests.Add(1)
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var payload model.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := validatePayload(payload); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	ctx := r.Context()
	log := s.log.With(
		zap.String("request_id", RequestIDFrom(ctx)),
		zap.String("thread_id", payload.ThreadID))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	s.stats.Streams.Add(1)

	reply, err := s.replier.Reply(ctx, payload)
	if err != nil {
		// In-band, as the agent reports failures after headers are sent
		reply = "\nError: " + err.Error()
		log.Warn("replier failed", zap.Error(err))
	}

	pacer := rate.NewLimiter(rate.Limit(s.config.ChunksPerSecond), s.config.Burst)
	sent := 0
	for _, chunk := range SplitUneven([]byte(reply), s.config.ChunkSizes) {
		if err := pacer.Wait(ctx); err != nil {
			s.stats.Aborted.Add(1)
			log.Debug("client went away", zap.Int("bytes_sent", sent))
			return
		}
		n, err := w.Write(chunk)
		sent += n
		s.stats.BytesSent.Add(int64(n))
		if err != nil {
			s.stats.Aborted.Add(1)
			return
		}
		flusher.Flush()
	}

	log.Debug("reply streamed",
		zap.String("prompt", util.TruncateRunes(payload.LastUserContent(), 60)),
		zap.Int("bytes", sent),
		zap.Int("history", len(payload.Messages)))
}

// SplitUneven cuts data into chunks whose lengths cycle through sizes.
// Cuts fall on byte offsets and may split a multi-byte character.
func SplitUneven(data []byte, sizes []int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	var chunks [][]byte
	for i, off := 0, 0; off < len(data); i++ {
		n := 1
		if len(sizes) > 0 && sizes[i%len(sizes)] > 0 {
			n = sizes[i%len(sizes)]
		}
		end := min(off+n, len(data))
		chunks = append(chunks, data[off:end])
		off = end
	}
	return chunks
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Requests  int64  `json:"requests"`
	Streams   int64  `json:"streams"`
	BytesSent int64  `json:"bytes_sent"`
	Aborted   int64  `json:"aborted"`
}

// handleHealth handles GET /health_check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   Version,
		Uptime:    time.Since(s.stats.StartTime).Round(time.Second).String(),
		Requests:  s.stats.Requests.Load(),
		Streams:   s.stats.Streams.Load(),
		BytesSent: s.stats.BytesSent.Load(),
		Aborted:   s.stats.Aborted.Load(),
	})
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: replies stream for as long as they take
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.log.Info("loopback agent listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("version", Version))

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("loopback agent shutting down",
		zap.Int64("streams", s.stats.Streams.Load()),
		zap.Int64("bytes_sent", s.stats.BytesSent.Load()))
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"detail": message,
	})
}
