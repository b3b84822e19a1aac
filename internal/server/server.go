package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/rtodash/internal/app"
	"github.com/me/rtodash/internal/config"
	"github.com/me/rtodash/internal/metrics"
	"github.com/me/rtodash/internal/store"
	"github.com/me/rtodash/internal/ui"
)

// Server is the agent dashboard HTTP server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	apps      *app.Manager
	metrics   *metrics.Metrics
	ui        *ui.UI
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithMetrics exposes m at /metrics. Without it a fresh registry is used.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new Server with all routes registered. st must already be
// migrated.
func New(cfg config.ServerConfig, st store.Store, apps *app.Manager, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		apps:      apps,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	s.ui = ui.New(apps, logger, ui.Config{
		Secure: cfg.CookieSecure,
	})

	s.routes()
	return s
}

// StartSweeper evicts idle client apps in a background goroutine.
func (s *Server) StartSweeper(ctx context.Context) {
	go s.apps.Run(ctx, s.config.SweepInterval)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// Operational endpoints
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// Static files (CSS)
	r.Handle("/static/*", ui.StaticHandler())

	// UI routes (HTML)
	s.ui.RegisterRoutes(r)
}
