// Package api provides the local HTTP control surface for the TouchGrass
// daemon: status, live events, preferences, and timer commands.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/health"
)

// Controller is the scheduler surface the API drives.
type Controller interface {
	Status() domain.StatusSnapshot
	Stats() domain.EngineStats
	SetPause(ctx context.Context, paused bool) error
	SnoozeFor(ctx context.Context, minutes uint32) error
	ClearSnooze(ctx context.Context) error
	Skip(ctx context.Context) error
	TriggerPreview(ctx context.Context) (domain.ReminderRecord, error)
	UpdateConfig(ctx context.Context, update domain.PreferencesUpdate) (domain.Preferences, error)
}

// PreferencesReader exposes stored preferences.
type PreferencesReader interface {
	Preferences() domain.Preferences
}

// HistoryReader exposes the reminder log.
type HistoryReader interface {
	Recent(limit int) ([]domain.ReminderRecord, error)
	Today(now time.Time) (domain.ReminderSummary, error)
}

// HealthReporter exposes health check results.
type HealthReporter interface {
	Statuses() []health.Status
	IsHealthy() bool
}

// Server is the TouchGrass HTTP API server.
type Server struct {
	ctrl           Controller
	prefs          PreferencesReader
	hub            *Hub
	history        HistoryReader  // nil = /api/history disabled
	health         HealthReporter // nil = /health always ok
	metricsEnabled bool
	version        string
	now            func() time.Time
}

// NewServer creates a new API server.
func NewServer(ctrl Controller, prefs PreferencesReader, hub *Hub) *Server {
	return &Server{ctrl: ctrl, prefs: prefs, hub: hub, version: "dev", now: time.Now}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHistory enables /api/history.
func (s *Server) SetHistory(h HistoryReader) { s.history = h }

// SetHealth reports checker results on /health.
func (s *Server) SetHealth(h HealthReporter) { s.health = h }

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
	})

	// The event stream is long-lived and must not sit behind the timeout.
	r.Get("/api/events", s.hub.HandleEvents)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/api/status", s.handleStatus)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/preferences", s.handleGetPreferences)
		r.Patch("/api/preferences", s.handleUpdatePreferences)

		r.Post("/api/pause", s.handlePause)
		r.Post("/api/resume", s.handleResume)
		r.Post("/api/snooze", s.handleSnooze)
		r.Delete("/api/snooze", s.handleClearSnooze)
		r.Post("/api/skip", s.handleSkip)
		r.Post("/api/preview", s.handlePreview)

		if s.history != nil {
			r.Get("/api/history", s.handleHistory)
		}
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local front-ends.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
