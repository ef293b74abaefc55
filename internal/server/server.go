// Package server exposes the read-only query surface plus the handful of
// single-mutation endpoints the presentation and automation layers use.
// No handler runs a multi-step transaction across the boundary.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/katori-hub/Cortex/internal/capture"
	"github.com/katori-hub/Cortex/internal/db"
	"github.com/katori-hub/Cortex/internal/enrich"
	"github.com/katori-hub/Cortex/internal/graph"
)

// Server wires the query surface over the store and pipeline components.
type Server struct {
	db     *db.DB
	intake *capture.Intake
	queue  *enrich.Queue
	engine *graph.Engine
	embed  enrich.Embedder
	logger *slog.Logger
}

// New creates the HTTP query surface.
func New(d *db.DB, intake *capture.Intake, queue *enrich.Queue, engine *graph.Engine, embed enrich.Embedder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{db: d, intake: intake, queue: queue, engine: engine, embed: embed, logger: logger}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", s.handleListItems)
		r.Get("/items/{id}", s.handleGetItem)
		r.Post("/items/{id}/flags", s.handleItemFlags)
		r.Get("/search", s.handleSearch)
		r.Get("/search/semantic", s.handleSemanticSearch)
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks/{id}", s.handleTaskStatus)
		r.Get("/projects", s.handleListProjects)
		r.Get("/events", s.handleListEvents)
		r.Get("/status", s.handleStatus)
		r.Post("/capture", s.handleCapture)
		r.Post("/connections/{id}/dismiss", s.handleDismiss)
	})
	return r
}

// ListenAndServe starts the server on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("query surface listening", "addr", addr)
	return srv.ListenAndServe()
}
