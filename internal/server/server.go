// Package server provides the HTTP API for yomu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/yomu/internal/config"
	"github.com/hyperjump/yomu/internal/models"
	"github.com/hyperjump/yomu/internal/pipeline"
	"github.com/hyperjump/yomu/internal/storage"
)

// Asker answers questions.
type Asker interface {
	Ask(ctx context.Context, req *models.AskRequest) (*models.Answer, error)
}

// Ingester runs one ingestion pass.
type Ingester interface {
	Run(ctx context.Context, req *models.IngestRequest) (*pipeline.Report, error)
}

// StatusFunc reports storage counts.
type StatusFunc func(ctx context.Context) (*pipeline.Status, error)

// Server is the HTTP server for the yomu API.
type Server struct {
	asker    Asker
	ingester Ingester
	storage  storage.Storage
	status   StatusFunc
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server

	// ingestMu allows one ingestion run at a time.
	ingestMu sync.Mutex
}

// NewServer creates a server with the given dependencies. ingester and status may be nil.
func NewServer(
	asker Asker,
	ingester Ingester,
	storage storage.Storage,
	status StatusFunc,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		asker:    asker,
		ingester: ingester,
		storage:  storage,
		status:   status,
		config:   cfg,
		logger:   logger,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Ingestion outlives the request timeout.
	r.Post("/api/v1/ingest", s.handleIngest)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))
		r.Post("/api/v1/ask", s.handleAsk)
		r.Get("/api/v1/sources", s.handleSources)
		r.Get("/api/v1/events", s.handleEvents)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
