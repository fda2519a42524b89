// Package server exposes the geometry pipeline over HTTP.
//
// Routes:
//
//	POST   /v1/geometries                      build a TOML description, 201 + report
//	GET    /v1/geometries                      list archived reports
//	GET    /v1/geometries/{id}                 fetch a report
//	DELETE /v1/geometries/{id}                 remove a report
//	GET    /v1/geometries/{id}/artifacts/{format}  render a stored report
//	GET    /v1/codes                           layer code tables per detector type
//	GET    /healthz                            liveness and build info
//
// Errors are returned as JSON with the machine-readable code of the
// underlying [errors.Error].
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/calostack/pkg/errors"
	"github.com/matzehuels/calostack/pkg/pipeline"
	"github.com/matzehuels/calostack/pkg/store"
)

// DefaultMaxBodyBytes caps the size of a posted description.
const DefaultMaxBodyBytes = 1 << 20

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Config configures a Server.
type Config struct {
	// Runner builds and renders descriptions. Required.
	Runner *pipeline.Runner
	// Store archives built reports. Required.
	Store store.Store
	// Logger receives one line per request. Defaults to a discarding logger.
	Logger *log.Logger
	// MaxBodyBytes caps request bodies (DefaultMaxBodyBytes when zero).
	MaxBodyBytes int64
}

// Server is the HTTP API.
type Server struct {
	runner  *pipeline.Runner
	store   store.Store
	logger  *log.Logger
	maxBody int64
	router  chi.Router
}

// New creates a server. The runner's own Store is not used; reports posted
// to the API are saved to cfg.Store.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "server: runner is required")
	}
	if cfg.Store == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "server: store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		runner:  cfg.Runner,
		store:   cfg.Store,
		logger:  cfg.Logger,
		maxBody: cfg.MaxBodyBytes,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()

	router.Use(requestID)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.healthHandler)
	router.Route("/v1", func(router chi.Router) {
		router.Get("/codes", s.codesHandler)
		router.Route("/geometries", func(router chi.Router) {
			router.Post("/", s.createGeometryHandler)
			router.Get("/", s.listGeometriesHandler)
			router.Get("/{id}", s.getGeometryHandler)
			router.Delete("/{id}", s.deleteGeometryHandler)
			router.Get("/{id}/artifacts/{format}", s.artifactHandler)
		})
	})
	return router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(errors.ErrCodeInternal, err, "listen on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, err, "shutdown")
	}
	return nil
}
