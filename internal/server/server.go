// Package server provides the admin HTTP server for the placement service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/devrev/pairdb/placement/internal/config"
	apierrors "github.com/devrev/pairdb/placement/internal/errors"
	"github.com/devrev/pairdb/placement/internal/handler"
	"github.com/devrev/pairdb/placement/internal/health"
	"github.com/devrev/pairdb/placement/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server.
type Server struct {
	router       *mux.Router
	httpServer   *http.Server
	handlers     *handler.Handlers
	healthCheck  *health.HealthChecker
	errorHandler *apierrors.Handler
	gatherer     prometheus.Gatherer
	logger       *zap.Logger
	cfg          *config.Config
}

// NewServer creates a new HTTP server and registers its routes.
func NewServer(
	cfg *config.Config,
	placement handler.Placement,
	healthCheck *health.HealthChecker,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	router := mux.NewRouter()
	errorHandler := apierrors.NewHandler(logger)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		handlers:     handler.NewHandlers(placement, errorHandler, logger, cfg.Server.WriteTimeout),
		healthCheck:  healthCheck,
		errorHandler: errorHandler,
		gatherer:     gatherer,
		logger:       logger,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	chain := middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logging(s.logger),
	)
	s.router.Use(chain)

	// Probes and metrics stay outside the rate limiter
	s.router.HandleFunc("/health/live", s.healthCheck.LivenessHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/health/ready", s.healthCheck.ReadinessHandler).Methods(http.MethodGet)
	if s.cfg.Metrics.Enabled {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	limit := func(h http.HandlerFunc) http.Handler { return h }
	if s.cfg.RateLimiter.Enabled {
		limiter := middleware.NewRateLimiter(s.cfg.RateLimiter.RequestsPerSecond, s.cfg.RateLimiter.BurstSize, s.logger)
		limit = func(h http.HandlerFunc) http.Handler { return limiter.Limit(h) }
	}

	s.router.Handle("/debug/ring", limit(s.handlers.RingInfo)).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.Handle("/placement", limit(s.handlers.GetPlacement)).Methods(http.MethodGet)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.Handle("/storage-nodes", limit(s.handlers.ListStorageNodes)).Methods(http.MethodGet)
	admin.Handle("/storage-nodes", limit(s.handlers.AddStorageNode)).Methods(http.MethodPost)
	admin.Handle("/storage-nodes/{node_id}", limit(s.handlers.RemoveStorageNode)).Methods(http.MethodDelete)

	// mux skips Use middleware for unmatched requests
	s.router.NotFoundHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusNotFound, apierrors.ErrorCodeInvalidRequest, "endpoint not found", r.Header.Get(middleware.RequestIDHeader))
	}))
	s.router.MethodNotAllowedHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.errorHandler.WriteErrorResponse(w, http.StatusMethodNotAllowed, apierrors.ErrorCodeInvalidRequest, "method not allowed", r.Header.Get(middleware.RequestIDHeader))
	}))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		zap.String("address", s.httpServer.Addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// GetHandler returns the http.Handler for the server.
func (s *Server) GetHandler() http.Handler {
	return s.router
}
