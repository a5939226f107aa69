// Package api provides the HTTP server for Axios.
// It exposes the claim intake, review, reconcile, and event feed endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/chainsync"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/feed"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/review"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/domain"
)

// Server is the Axios HTTP API server.
type Server struct {
	review         *review.Service
	coordinator    *chainsync.Coordinator
	store          domain.RecordStore
	feed           *feed.Aggregator
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(rs *review.Service, co *chainsync.Coordinator, store domain.RecordStore, fd *feed.Aggregator) *Server {
	return &Server{review: rs, coordinator: co, store: store, feed: fd}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)

	// Health check for container orchestrators
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/actions", s.handleCreateAction)
		r.Get("/actions", s.handleListActions)
		r.Get("/actions/{id}", s.handleGetAction)
		r.Post("/actions/{id}/decision", s.handleDecision)
		r.Post("/actions/{id}/reconcile", s.handleReconcile)

		r.Get("/events", s.handleEvents)
		r.Get("/events/live", s.handleEventsLive)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
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

// corsMiddleware adds CORS headers for the dashboard frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
