// Package api exposes the compiler over HTTP: submit builds, poll jobs,
// fetch artifacts, validate documents and convert foreign formats.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lxcxjxhx/HOS-M2F/internal/config"
	"github.com/lxcxjxhx/HOS-M2F/internal/mode"
	"github.com/lxcxjxhx/HOS-M2F/internal/pipeline"
)

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	modes        *mode.Registry
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, modes *mode.Registry, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		modes:        modes,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/build", s.handleBuild)
		r.Get("/api/build/{jobID}", s.handleBuildStatus)
		r.Get("/api/build/{jobID}/artifact", s.handleBuildArtifact)
		r.Post("/api/check", s.handleCheck)
		r.Post("/api/convert", s.handleConvert)

		r.Get("/api/modes", s.handleModes)
		r.Get("/api/formats", s.handleFormats)

		r.Get("/api/versions", s.handleVersions)
		r.Post("/api/versions/{versionID}/revert", s.handleRevert)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
