package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/newthinker/strata/internal/api/handler/api"
	"github.com/newthinker/strata/internal/api/job"
	"github.com/newthinker/strata/internal/api/middleware"
	"github.com/newthinker/strata/internal/api/response"
	"github.com/newthinker/strata/internal/metrics"
	"github.com/newthinker/strata/internal/storage/history"
	"github.com/newthinker/strata/internal/strategy"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Server represents the HTTP server for strata
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host          string
	Port          int
	APIKey        string
	CORSOrigins   []string
	JobTTL        time.Duration
	MaxJobs       int
	DefaultPeriod string
	MetricsPath   string // empty disables the metrics endpoint
}

// Dependencies are the services behind the API.
type Dependencies struct {
	Backtester handler.Runner
	History    history.Store
	Catalog    func() []strategy.Definition
	Metrics    *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Backtester == nil || deps.History == nil || deps.Catalog == nil {
		return nil, fmt.Errorf("backtester, history and catalog are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	mws := []func(http.Handler) http.Handler{
		metrics.LoggingMiddleware(logger),
		middleware.CORS(cfg.CORSOrigins),
	}
	if deps.Metrics != nil {
		mws = append([]func(http.Handler) http.Handler{metrics.HTTPMiddleware(deps.Metrics)}, mws...)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute, // sync backtests may run long
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	jobs := job.NewStore(cfg.MaxJobs, cfg.JobTTL)
	backtests := handler.NewBacktestHandler(jobs, deps.Backtester, cfg.DefaultPeriod, deps.Metrics, s.logger)
	strategies := handler.NewStrategiesHandler(deps.Catalog)
	results := handler.NewHistoryHandler(deps.History)

	auth := middleware.APIKeyAuth(cfg.APIKey)
	protect := func(h http.HandlerFunc) http.Handler { return auth(h) }

	s.mux.Handle("POST /api/v1/backtest", protect(backtests.Run))
	s.mux.Handle("POST /api/v1/backtest/compare", protect(backtests.Compare))
	s.mux.Handle("POST /api/v1/backtest/jobs", protect(backtests.Create))
	s.mux.Handle("GET /api/v1/backtest/jobs/{id}", protect(backtests.GetStatus))
	s.mux.Handle("GET /api/v1/strategies", protect(strategies.List))
	s.mux.Handle("GET /api/v1/backtests", protect(results.List))
	s.mux.Handle("GET /api/v1/backtests/{id}", protect(results.Get))

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler exposes the full middleware stack, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}
