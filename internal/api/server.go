// Package api provides the HTTP surface of the party room service: the
// action endpoint, snapshot queries, and the WebSocket change feed.
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/qrparty/partyroom/internal/action"
	"github.com/qrparty/partyroom/internal/feed"
	"github.com/qrparty/partyroom/internal/store"
)

// Server represents the HTTP API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux

	actions *action.Processor
	store   *store.Store
	hub     *feed.Hub

	limiter *RateLimiter
	cors    CORSConfig
	logger  *zap.SugaredLogger
	version string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithHub sets the change-feed hub served over WebSocket.
func WithHub(hub *feed.Hub) ServerOption {
	return func(s *Server) { s.hub = hub }
}

// WithRateLimiter sets the per-IP request limiter.
func WithRateLimiter(rl *RateLimiter) ServerOption {
	return func(s *Server) { s.limiter = rl }
}

// WithCORS sets the CORS policy. The default allows any origin, matching
// the browser-facing deployment.
func WithCORS(cfg CORSConfig) ServerOption {
	return func(s *Server) { s.cors = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version string reported by the health endpoint.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// NewServer creates a new API server with the given dependencies.
func NewServer(addr string, actions *action.Processor, st *store.Store, opts ...ServerOption) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // Disabled for the long-lived feed connections
			IdleTimeout:  60 * time.Second,
		},
		mux:     mux,
		actions: actions,
		store:   st,
		logger:  zap.NewNop().Sugar(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = corsMiddleware(s.cors)(handler)
	s.httpServer.Handler = handler

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/action", s.handleAction)
	s.mux.HandleFunc("GET /api/v1/players", s.handlePlayers)
	s.mux.HandleFunc("GET /api/v1/state", s.handleState)

	if s.hub != nil {
		s.mux.HandleFunc("GET /api/v1/feed", s.handleFeed)
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

// Handler returns the server's root handler (for testing).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
