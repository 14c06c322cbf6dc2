// Package server serves the interactive graph view and a JSON API over one
// in-process session.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/session"
	"github.com/matsen/atlas/internal/viz"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8501"

// SaveFunc persists the graph. It is called with the session lock held.
type SaveFunc func(g *graph.Graph) error

// Server exposes a session over HTTP. Every request holds the session lock
// for its whole duration, so interactions are applied one at a time.
type Server struct {
	mu      sync.Mutex
	sess    *session.Session
	logger  *zap.Logger
	metrics *Metrics
	html    viz.HTMLOptions
	save    SaveFunc
}

// Option configures a Server.
type Option func(*Server)

// WithHTMLOptions sets the page options. Interactive is always enabled.
func WithHTMLOptions(opts viz.HTMLOptions) Option {
	return func(s *Server) {
		s.html = opts
	}
}

// WithSaveFunc enables POST /api/save.
func WithSaveFunc(fn SaveFunc) Option {
	return func(s *Server) {
		s.save = fn
	}
}

// WithMetrics replaces the server's collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New returns a server over sess.
func New(sess *session.Session, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sess:    sess,
		logger:  logger,
		metrics: NewMetrics("atlas"),
		html:    viz.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.html.Interactive = true
	s.observeGraph()
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	router.Use(instrument(s.metrics))

	router.Get("/", s.handleIndex)
	router.Get("/health", s.handleHealth)
	router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))

	router.Route("/api", func(r chi.Router) {
		r.Get("/scene", s.handleScene)
		r.Get("/state", s.handleState)

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", s.handleListNodes)
			r.Post("/", s.handleCreateNode)
			r.Get("/{name}", s.handleGetNode)
			r.Put("/{name}", s.handleUpdateNode)
			r.Delete("/{name}", s.handleDeleteNode)
		})

		r.Route("/edges", func(r chi.Router) {
			r.Get("/", s.handleListEdges)
			r.Post("/", s.handleCreateEdge)
			r.Delete("/", s.handleDeleteEdgePair)
			r.Put("/{key}", s.handleUpdateEdge)
			r.Delete("/{key}", s.handleDeleteEdgeKey)
		})

		r.Route("/toggle", func(r chi.Router) {
			r.Post("/level/{level}", s.handleToggleLevel)
			r.Post("/edge-type/{type}", s.handleToggleEdgeType)
			r.Post("/node/{name}", s.handleToggleNode)
			r.Post("/edge", s.handleToggleEdge)
		})
		r.Post("/levels/all", s.handleShowAllLevels)
		r.Post("/edge-types/all", s.handleShowAllEdgeTypes)
		r.Post("/selection/clear", s.handleClearSelection)

		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)
		if s.save != nil {
			r.Post("/save", s.handleSave)
		}
	})

	return router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// observeGraph refreshes the size gauges. Callers hold s.mu or own s exclusively.
func (s *Server) observeGraph() {
	s.metrics.GraphNodes.Set(float64(s.sess.Graph.NodeCount()))
	s.metrics.GraphEdges.Set(float64(s.sess.Graph.EdgeCount()))
}
