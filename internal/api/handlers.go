package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/health"
)

// ─── Wire Types ─────────────────────────────────────────────────────────────
// Shared with the CLI client.

// StatusResponse is returned by /api/status and every timer command.
type StatusResponse struct {
	domain.StatusSnapshot
	State string `json:"state"`
}

// SnoozeRequest is the body of POST /api/snooze.
type SnoozeRequest struct {
	Minutes uint32 `json:"minutes"`
}

// PreviewResponse is returned by POST /api/preview.
type PreviewResponse struct {
	Reminder domain.ReminderRecord `json:"reminder"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Reminders []domain.ReminderRecord `json:"reminders"`
	Today     domain.ReminderSummary  `json:"today"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string          `json:"status"`
	Checks []health.Status `json:"checks,omitempty"`
}

const maxBodyBytes = 64 << 10

// ─── Handlers ───────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}
	resp := HealthResponse{Status: "ok", Checks: s.health.Statuses()}
	code := http.StatusOK
	if !s.health.IsHealthy() {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeStatus(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Stats())
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.prefs.Preferences())
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var update domain.PreferencesUpdate
	if err := decodeBody(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if update.IsEmpty() {
		writeJSON(w, http.StatusOK, s.prefs.Preferences())
		return
	}
	prefs, err := s.ctrl.UpdateConfig(r.Context(), update)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, func(ctx context.Context) error { return s.ctrl.SetPause(ctx, true) })
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, func(ctx context.Context) error { return s.ctrl.SetPause(ctx, false) })
}

func (s *Server) handleSnooze(w http.ResponseWriter, r *http.Request) {
	var req SnoozeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.runCommand(w, r, func(ctx context.Context) error { return s.ctrl.SnoozeFor(ctx, req.Minutes) })
}

func (s *Server) handleClearSnooze(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, s.ctrl.ClearSnooze)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	s.runCommand(w, r, s.ctrl.Skip)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ctrl.TriggerPreview(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Reminder: rec})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	recs, err := s.history.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	today, err := s.history.Today(s.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Reminders: recs, Today: today})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, fn func(context.Context) error) {
	if err := fn(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}
	s.writeStatus(w)
}

func (s *Server) writeStatus(w http.ResponseWriter) {
	snap := s.ctrl.Status()
	writeJSON(w, http.StatusOK, StatusResponse{StatusSnapshot: snap, State: snap.State()})
}

// writeCommandError maps engine errors to HTTP status codes.
func writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSnooze),
		errors.Is(err, domain.ErrInvalidUpdate),
		errors.Is(err, domain.ErrInvalidTheme):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEngineStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes a JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
