// Package api exposes the current published snapshot over HTTP. It is
// read-only: handlers only ever see complete snapshots, never a run in
// progress.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/tmglimp/Zfut-arbs/pipeline"
)

// Server serves HTTP requests for the hedge snapshot service.
type Server struct {
	runner *pipeline.Runner
	router chi.Router
}

// NewServer creates a new HTTP server and sets up routing.
func NewServer(runner *pipeline.Runner) *Server {
	s := &Server{runner: runner}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/curve", s.curve)
		r.Get("/bonds", s.bonds)
		r.Get("/hedges", s.hedges)
		r.Get("/combos", s.combos)
	})
	s.router = r
	return s
}

// Start runs the HTTP server on a specific address.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) *pipeline.Snapshot {
	snap := s.runner.Published()
	if snap == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"error": "no snapshot published yet"})
		return nil
	}
	return snap
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "waiting"
	if s.runner.Published() != nil {
		status = "ok"
	}
	render.JSON(w, r, map[string]string{"status": status})
}

func (s *Server) curve(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w, r); snap != nil {
		render.JSON(w, r, snap.Curve)
	}
}

func (s *Server) bonds(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w, r); snap != nil {
		render.JSON(w, r, snap.Bonds)
	}
}

func (s *Server) hedges(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w, r); snap != nil {
		render.JSON(w, r, snap.Hedges)
	}
}

func (s *Server) combos(w http.ResponseWriter, r *http.Request) {
	if snap := s.snapshot(w, r); snap != nil {
		render.JSON(w, r, snap.Combos)
	}
}
