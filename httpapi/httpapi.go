// Package httpapi exposes the pinned JSON report (spec §6) over HTTP:
// a minimal read-only surface for dashboards and other external
// collaborators, built on go-chi/chi like the rest of the retrieved
// pack's REST servers. Grounded on
// internal/server/rest/router.go's middleware stack and route-group
// shape, with JWT omitted (no authentication surface in scope).
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ftahirops/hpcsentry/report"
)

// Server serves the most recently built report.Session over HTTP.
type Server struct {
	mu      sync.RWMutex
	current report.Session
	have    bool
}

// New returns an empty Server; call Update after every tick.
func New() *Server {
	return &Server{}
}

// Update replaces the report the server serves.
func (s *Server) Update(session report.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = session
	s.have = true
}

// Router returns a configured chi.Router.
//
// Route layout:
//
//	GET /healthz          – liveness probe
//	GET /api/v1/report    – the full current monitoring session
//	GET /api/v1/jobs/{id} – one job's report, 404 if not tracked
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/report", s.handleReport)
		r.Get("/jobs/{jobID}", s.handleJob)
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	session, have := s.current, s.have
	s.mu.RUnlock()

	if !have {
		http.Error(w, "no report available yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.have {
		http.Error(w, "no report available yet", http.StatusServiceUnavailable)
		return
	}
	for _, j := range s.current.Jobs {
		if j.JobID == jobID {
			writeJSON(w, http.StatusOK, j)
			return
		}
	}
	http.Error(w, "job not tracked in the current session", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
