// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a local stand-in for the legal question-answering
// service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/lawqa"
	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the client's default service URL.
	DefaultAddr = "127.0.0.1:8000"

	// HistoryWindow is how many recent turns a response carries.
	HistoryWindow = 10

	// MaxRequestBodySize bounds /query bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the stub server version.
	Version = "0.3.0"
)

// ============================================================================
// CONFIG
// ============================================================================

// Config configures the stub server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Latency delays every answer, to exercise spinners and timeouts.
	Latency time.Duration

	// RateLimit is requests per second per client IP; <= 0 disables it.
	RateLimit rate.Limit

	// Burst is the per-IP burst size.
	Burst int

	// Logger receives request and lifecycle logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used by `kiseha serve-stub`.
func DefaultConfig() Config {
	return Config{
		Addr:      DefaultAddr,
		RateLimit: 2,
		Burst:     10,
	}
}

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats counts requests since start.
type Stats struct {
	Requests    int64     `json:"requests"`
	Answers     int64     `json:"answers"`
	Rejected    int64     `json:"rejected"`
	TotalTokens int64     `json:"total_tokens"`
	HistorySize int       `json:"history_size"`
	StartTime   time.Time `json:"start_time"`
}

type counters struct {
	requests    atomic.Int64
	answers     atomic.Int64
	rejected    atomic.Int64
	totalTokens atomic.Int64
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the stub answering service.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	router  chi.Router
	limiter *RateLimiter
	start   time.Time
	stats   counters

	// history is shared by every client, like the service's module-level list.
	histMu  sync.Mutex
	history []model.ChatTurn

	srvMu  sync.Mutex
	server *http.Server
}

// NewServer creates a stub server. Zero config fields take defaults.
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "stub"),
		limiter: NewRateLimiter(cfg.RateLimit, cfg.Burst),
		start:   time.Now(),
		history: []model.ChatTurn{},
	}
	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))
	r.Use(CORSMiddleware())
	r.Use(RateLimitMiddleware(s.limiter, s.logger))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Post("/query", s.handleQuery)

	s.router = r
}

// ============================================================================
// QUERY HANDLER
// ============================================================================

// handleQuery handles POST /query.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.stats.requests.Add(1)

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req lawqa.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		s.reject(w, http.StatusUnprocessableEntity, "question is required")
		return
	}

	law, err := lookupLaw(req.Law)
	if err != nil {
		s.reject(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.cfg.Latency > 0 {
		timer := time.NewTimer(s.cfg.Latency)
		select {
		case <-r.Context().Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	c := compose(question, law)
	usage := usageFor(question, c)
	window := s.appendTurn(model.ChatTurn{Question: question, Answer: c.Answer})

	s.stats.answers.Add(1)
	s.stats.totalTokens.Add(int64(usage.TotalTokens))

	answer := c.Answer
	writeJSON(w, http.StatusOK, lawqa.QueryResponse{
		Answer:      &answer,
		ElapsedTime: fmt.Sprintf("%.2f초", time.Since(start).Seconds()),
		Tokens:      &usage,
		ChatHistory: window,
	})
}

// lookupLaw accepts only exact wire codes; "" means no category.
func lookupLaw(code string) (*model.LawCategory, error) {
	if code == "" {
		return nil, nil
	}
	for _, c := range model.Categories() {
		if c.Code() == code {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("unknown law %q", code)
}

// appendTurn records t and returns a copy of the most recent HistoryWindow turns.
func (s *Server) appendTurn(t model.ChatTurn) []model.ChatTurn {
	s.histMu.Lock()
	defer s.histMu.Unlock()

	s.history = append(s.history, t)
	from := max(len(s.history)-HistoryWindow, 0)
	return model.CloneTurns(s.history[from:])
}

// History returns a copy of the full conversation history.
func (s *Server) History() []model.ChatTurn {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	return model.CloneTurns(s.history)
}

// ResetHistory clears the conversation history.
func (s *Server) ResetHistory() {
	s.histMu.Lock()
	defer s.histMu.Unlock()
	s.history = []model.ChatTurn{}
}

// ============================================================================
// HEALTH AND STATS
// ============================================================================

// HealthResponse is the health check body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "kiseha stub answering service"})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: "kiseha-stub", Version: Version})
}

// Stats returns a snapshot of the counters.
func (s *Server) Stats() Stats {
	s.histMu.Lock()
	size := len(s.history)
	s.histMu.Unlock()

	return Stats{
		Requests:    s.stats.requests.Load(),
		Answers:     s.stats.answers.Load(),
		Rejected:    s.stats.rejected.Load(),
		TotalTokens: s.stats.totalTokens.Load(),
		HistorySize: size,
		StartTime:   s.start,
	}
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Stats())
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.srvMu.Lock()
	s.server = srv
	s.srvMu.Unlock()

	s.logger.Info("stub server listening", "addr", ln.Addr().String(), "version", Version)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.server
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}

	s.logger.Info("stub server shutting down", "answers", s.stats.answers.Load())
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) reject(w http.ResponseWriter, status int, detail string) {
	s.stats.rejected.Add(1)
	writeDetail(w, status, detail)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error body in the service's {"detail": ...} shape.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
