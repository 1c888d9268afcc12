// Package api provides the HTTP server for the engagement engine. The
// routes surface the engine's synchronous operations; routing, auth, and UI
// belong to the surrounding platform.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coverquest/coverquest/internal/app/challenge"
	"github.com/coverquest/coverquest/internal/app/engagement"
	"github.com/coverquest/coverquest/internal/app/insight"
	"github.com/coverquest/coverquest/internal/app/points"
	"github.com/coverquest/coverquest/internal/health"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// Server is the engagement engine HTTP API server.
type Server struct {
	db         *sqlite.DB
	engagement *engagement.Service
	generator  *challenge.Generator
	points     *points.Service
	analytics  *insight.Service
	learner    *insight.Learner

	checker        *health.Checker // nil disables the detailed health body
	metricsEnabled bool
}

// NewServer creates an API server over the engine services.
func NewServer(db *sqlite.DB, eng *engagement.Service, gen *challenge.Generator,
	pts *points.Service, analytics *insight.Service, learner *insight.Learner) *Server {
	return &Server{
		db:         db,
		engagement: eng,
		generator:  gen,
		points:     pts,
		analytics:  analytics,
		learner:    learner,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealthChecker attaches the health checker to /health.
func (s *Server) SetHealthChecker(c *health.Checker) { s.checker = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": "0.1.0"})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/", s.handleCreateUser)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/summary", s.handleSummary)
			r.Get("/streak", s.handleStreak)
			r.Get("/points", s.handlePoints)
			r.Post("/redeem", s.handleRedeem)
			r.Get("/insights", s.handleInsights)
			r.Post("/sessions/start", s.handleSessionStart)
			r.Post("/sessions/end", s.handleSessionEnd)

			r.Route("/challenges", func(r chi.Router) {
				r.Get("/", s.handleListChallenges)
				r.Post("/generate", s.handleGenerate)
				r.Post("/{challengeID}/complete", s.handleComplete)
				r.Post("/{challengeID}/abandon", s.handleAbandon)
				r.Post("/{challengeID}/progress", s.handleProgress)
			})
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/users/{userID}/reset", s.handleAdminReset)
		r.Post("/jobs/recompute", s.handleJobRecompute)
		r.Post("/jobs/generate", s.handleJobGenerate)
		r.Post("/jobs/analyze", s.handleJobAnalyze)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status := http.StatusOK
	body := map[string]any{"status": "ok", "checks": s.checker.Statuses()}
	if !s.checker.IsHealthy() {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
