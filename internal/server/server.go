// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/it-at-m/mucgpt-sub002/internal/cloud"
	"github.com/it-at-m/mucgpt-sub002/internal/logging"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// CONFIG
// ============================================================================

// Config configures the replay server.
type Config struct {
	// Addr is the listen address. Default: DefaultAddr
	Addr string

	// ChatPath is the path the chat endpoint is served at.
	// Default: cloud.DefaultChatPath
	ChatPath string

	// ChunkSize splits each stream into writes of at most this many bytes.
	// Zero sends the body in one write.
	ChunkSize int

	// Delay is the pause after each flushed chunk.
	Delay time.Duration

	// AuthToken, when set, is required as a bearer token.
	AuthToken string
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ChatPath == "" {
		c.ChatPath = cloud.DefaultChatPath
	}
	if !strings.HasPrefix(c.ChatPath, "/") {
		c.ChatPath = "/" + c.ChatPath
	}
	if c.ChunkSize < 0 {
		c.ChunkSize = 0
	}
	return c
}

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats is a snapshot of the server counters.
type Stats struct {
	Requests  int64     `json:"requests"`
	Streams   int64     `json:"streams"`
	Errors    int64     `json:"errors"`
	Rejected  int64     `json:"rejected"`
	StartTime time.Time `json:"start_time"`
}

type counters struct {
	requests atomic.Int64
	streams  atomic.Int64
	errors   atomic.Int64
	rejected atomic.Int64
}

// ============================================================================
// SERVER
// ============================================================================

// Server replays scripted chat responses.
type Server struct {
	cfg    Config
	script *Script
	router *http.ServeMux
	server *http.Server
	log    zerolog.Logger

	stats     counters
	startTime time.Time

	mu          sync.Mutex
	served      int
	lastRequest *cloud.ChatRequest
}

// New creates a Server for script.
func New(cfg Config, script *Script) *Server {
	s := &Server{
		cfg:       cfg.withDefaults(),
		script:    script,
		router:    http.NewServeMux(),
		log:       logging.Get(),
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

// WithLogger sets the logger.
func (s *Server) WithLogger(log zerolog.Logger) *Server {
	s.log = log
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// ChatPath returns the path of the chat endpoint.
func (s *Server) ChatPath() string {
	return s.cfg.ChatPath
}

// LastRequest returns the most recent accepted chat request.
func (s *Server) LastRequest() (cloud.ChatRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRequest == nil {
		return cloud.ChatRequest{}, false
	}
	return *s.lastRequest, true
}

// Stats returns a snapshot of the request counters.
func (s *Server) Stats() Stats {
	return Stats{
		Requests:  s.stats.requests.Load(),
		Streams:   s.stats.streams.Load(),
		Errors:    s.stats.errors.Load(),
		Rejected:  s.stats.rejected.Load(),
		StartTime: s.startTime,
	}
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST "+s.cfg.ChatPath, s.handleChat)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.log),
		LoggingMiddleware(s.log),
	}
	if s.cfg.AuthToken != "" {
		middlewares = append(middlewares, AuthMiddleware(s.cfg.AuthToken, s.log))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat validates the request and streams the next scripted response.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.stats.requests.Add(1)

	// SECURITY: Limit request body size to prevent DoS
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req cloud.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.stats.rejected.Add(1)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if err := validateRequest(req); err != nil {
		s.stats.rejected.Add(1)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	resp := s.script.At(s.served)
	s.served++
	s.lastRequest = &req
	s.mu.Unlock()

	s.log.Debug().
		Int("history", len(req.History)).
		Str("model", req.Model).
		Int("status", resp.StatusCode()).
		Msg("Replaying response")

	if resp.IsError() {
		s.stats.errors.Add(1)
		s.writeError(w, resp.StatusCode(), resp.Error)
		return
	}

	body, err := resp.Body()
	if err != nil {
		s.stats.errors.Add(1)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.stats.streams.Add(1)
	s.streamBody(r.Context(), w, body)
}

// validateRequest checks the fields the backend requires.
func validateRequest(req cloud.ChatRequest) error {
	if len(req.History) == 0 {
		return errors.New("history must not be empty")
	}
	if strings.TrimSpace(req.Question()) == "" {
		return errors.New("last history entry has no question")
	}
	if req.History[len(req.History)-1].Bot != "" {
		return errors.New("last history entry must not have an answer")
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	return nil
}

// streamBody writes body in chunks, flushing and pausing after each one.
func (s *Server) streamBody(ctx context.Context, w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	size := s.cfg.ChunkSize
	if size == 0 {
		size = len(body)
	}

	for start := 0; start < len(body); start += size {
		end := min(start+size, len(body))
		if _, err := w.Write(body[start:end]); err != nil {
			s.log.Debug().Err(err).Msg("Client went away")
			return
		}
		if flusher != nil {
			flusher.Flush()
		}

		if s.cfg.Delay > 0 && end < len(body) {
			timer := time.NewTimer(s.cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// ============================================================================
// HEALTH AND STATS HANDLERS
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	ChatPath  string `json:"chat_path"`
	Responses int    `json:"responses"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   Version,
		ChatPath:  s.cfg.ChatPath,
		Responses: len(s.script.Responses),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Stats())
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	if err := s.script.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info().Str("addr", s.cfg.Addr).Str("chat_path", s.cfg.ChatPath).Msg("Replay server started")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	st := s.Stats()
	s.log.Info().Int64("requests", st.Requests).Int64("streams", st.Streams).Msg("Replay server stopping")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug().Err(err).Msg("Write response failed")
	}
}

// writeError writes the error body the backend uses: {"detail": message}.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	s.writeJSON(w, status, map[string]string{"detail": message})
}
