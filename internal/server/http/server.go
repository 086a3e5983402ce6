// Package httpserver provides the HTTP REST API of papernet.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/database"
	"github.com/camrobjones/papernet/internal/observability"
	"github.com/camrobjones/papernet/internal/repository"
	"github.com/camrobjones/papernet/internal/similarity"
	"github.com/camrobjones/papernet/internal/temporal"
)

// WorkflowClient starts ingestion workflows.
// It is satisfied by *temporal.IngestionWorkflowClient.
type WorkflowClient interface {
	StartPaperIngestion(ctx context.Context, input temporal.PaperIngestionInput) (workflowID, runID string, err error)
	StartBatchIngestion(ctx context.Context, input temporal.BatchIngestionInput) (workflowID, runID string, err error)
	QueryBatchProgress(ctx context.Context, workflowID string) (*temporal.BatchIngestionResult, error)
	Health(ctx context.Context) error
}

// SimilarityEngine ranks papers related to a set of DOIs.
type SimilarityEngine interface {
	SimilarDOIs(ctx context.Context, dois []string, n int) ([]similarity.Scored, error)
}

// HealthChecker reports database health.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Dependencies holds the collaborators of the server. Metrics may be nil.
type Dependencies struct {
	Workflows  WorkflowClient
	Similarity SimilarityEngine
	Papers     repository.PaperRepository
	References repository.ReferenceRepository
	DB         HealthChecker
	Metrics    *observability.Metrics
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	workflows   WorkflowClient
	similarity  SimilarityEngine
	papers      repository.PaperRepository
	refs        repository.ReferenceRepository
	db          HealthChecker
	metrics     *observability.Metrics
	metricsPath string
	logger      zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Dependencies, logger zerolog.Logger) *Server {
	s := &Server{
		workflows:   deps.Workflows,
		similarity:  deps.Similarity,
		papers:      deps.Papers,
		refs:        deps.References,
		db:          deps.DB,
		metrics:     deps.Metrics,
		metricsPath: cfg.MetricsPath,
		logger:      logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggerMiddleware(s.logger))

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)
	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Post("/papers", s.ingestPaper)
		r.Post("/papers/batch", s.ingestBatch)
		r.Get("/batches/{workflowID}", s.batchProgress)
		r.Get("/papers", s.getPaper)
		r.Post("/similar", s.similarPapers)
		r.Get("/references/missing", s.missingReferences)
	})

	return r
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger returns the server logger tagged with the request's IDs.
func (s *Server) requestLogger(r *http.Request) zerolog.Logger {
	return observability.LoggerFromContext(r.Context(), s.logger)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status including Temporal connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	if err := s.workflows.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": "healthy",
			"temporal": "unhealthy",
			"error":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
		"temporal": "healthy",
	})
}
