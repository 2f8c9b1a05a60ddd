package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/health"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type fakeController struct {
	mu       sync.Mutex
	status   domain.StatusSnapshot
	prefs    domain.Preferences
	calls    []string
	err      error
	snoozeOf uint32
}

func newFakeController() *fakeController {
	next := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	return &fakeController{
		status: domain.StatusSnapshot{NextTriggerAt: &next},
		prefs:  domain.DefaultPreferences(),
	}
}

func (f *fakeController) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeController) Status() domain.StatusSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Stats() domain.EngineStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.EngineStats{Ticks: 42, Fired: 3, Commands: int64(len(f.calls))}
}

func (f *fakeController) SetPause(_ context.Context, paused bool) error {
	if err := f.record(fmt.Sprintf("pause=%v", paused)); err != nil {
		return err
	}
	f.mu.Lock()
	f.status.Paused = paused
	f.mu.Unlock()
	return nil
}

func (f *fakeController) SnoozeFor(_ context.Context, minutes uint32) error {
	if minutes == 0 {
		return fmt.Errorf("snooze for 0 minutes: %w", domain.ErrInvalidSnooze)
	}
	if err := f.record("snooze"); err != nil {
		return err
	}
	f.mu.Lock()
	f.snoozeOf = minutes
	until := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	f.status.SnoozedUntil = &until
	f.mu.Unlock()
	return nil
}

func (f *fakeController) ClearSnooze(context.Context) error { return f.record("clear_snooze") }
func (f *fakeController) Skip(context.Context) error        { return f.record("skip") }

func (f *fakeController) TriggerPreview(context.Context) (domain.ReminderRecord, error) {
	if err := f.record("preview"); err != nil {
		return domain.ReminderRecord{}, err
	}
	return domain.ReminderRecord{
		Reminder:  domain.Reminder{ID: "p1", Kind: domain.ReminderPreview, Message: "Stand up"},
		Delivered: true,
	}, nil
}

func (f *fakeController) UpdateConfig(_ context.Context, u domain.PreferencesUpdate) (domain.Preferences, error) {
	if err := u.Validate(); err != nil {
		return domain.Preferences{}, err
	}
	if err := f.record("update_config"); err != nil {
		return domain.Preferences{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	next, err := f.prefs.Apply(u)
	if err != nil {
		return domain.Preferences{}, err
	}
	f.prefs = next
	return next, nil
}

func (f *fakeController) Preferences() domain.Preferences {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeHistory struct {
	recs []domain.ReminderRecord
}

func (h *fakeHistory) Recent(limit int) ([]domain.ReminderRecord, error) {
	if limit < len(h.recs) {
		return h.recs[:limit], nil
	}
	return h.recs, nil
}

func (h *fakeHistory) Today(now time.Time) (domain.ReminderSummary, error) {
	return domain.ReminderSummary{Since: now, Scheduled: len(h.recs)}, nil
}

type fakeHealth struct {
	healthy bool
}

func (h fakeHealth) Statuses() []health.Status {
	return []health.Status{{Name: "sqlite", Healthy: h.healthy}}
}

func (h fakeHealth) IsHealthy() bool { return h.healthy }

func newTestServer(t *testing.T) (*Server, *fakeController) {
	t.Helper()
	ctrl := newFakeController()
	srv := NewServer(ctrl, ctrl, NewHub())
	return srv, ctrl
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
	return v
}

// ─── Health & Status ────────────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp := decode[HealthResponse](t, w); resp.Status != "ok" {
		t.Errorf("Status = %q, want ok", resp.Status)
	}
}

func TestHealthEndpoint_Degraded(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetHealth(fakeHealth{healthy: false})
	w := do(t, srv.Handler(), http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	resp := decode[HealthResponse](t, w)
	if resp.Status != "degraded" || len(resp.Checks) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	raw := w.Body.String()
	for _, key := range []string{`"paused":false`, `"snoozedUntil":null`, `"nextTriggerAt":"2026-05-01T10:30:00Z"`, `"idleSeconds":null`, `"state":"running"`} {
		if !strings.Contains(raw, key) {
			t.Errorf("body %s missing %s", raw, key)
		}
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	raw := w.Body.String()
	got := decode[domain.EngineStats](t, w)
	if got.Ticks != 42 || got.Fired != 3 {
		t.Errorf("stats = %+v", got)
	}
	if !strings.Contains(raw, `"idleResets":0`) {
		t.Errorf("body %s missing idleResets", raw)
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetVersion("1.2.3")
	w := do(t, srv.Handler(), http.MethodGet, "/api/version", "")
	if got := decode[map[string]string](t, w)["version"]; got != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", got)
	}
}

// ─── Commands ───────────────────────────────────────────────────────────────

func TestPauseResume(t *testing.T) {
	srv, ctrl := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/pause", "")
	if w.Code != http.StatusOK {
		t.Fatalf("pause status = %d", w.Code)
	}
	if resp := decode[StatusResponse](t, w); !resp.Paused || resp.State != "paused" {
		t.Errorf("pause response = %+v", resp)
	}

	w = do(t, h, http.MethodPost, "/api/resume", "")
	if resp := decode[StatusResponse](t, w); resp.Paused {
		t.Error("resume response still paused")
	}

	calls := ctrl.Calls()
	if len(calls) != 2 || calls[0] != "pause=true" || calls[1] != "pause=false" {
		t.Errorf("calls = %v", calls)
	}
}

func TestSnooze(t *testing.T) {
	srv, ctrl := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodPost, "/api/snooze", `{"minutes":15}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	resp := decode[StatusResponse](t, w)
	if resp.SnoozedUntil == nil || resp.State != "snoozed" {
		t.Errorf("response = %+v, want snoozed", resp)
	}
	if ctrl.snoozeOf != 15 {
		t.Errorf("snoozed %d minutes, want 15", ctrl.snoozeOf)
	}
}

func TestSnooze_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name string
		body string
	}{
		{"zero", `{"minutes":0}`},
		{"empty body", ""},
		{"negative", `{"minutes":-5}`},
		{"unknown field", `{"mins":5}`},
		{"not json", `five`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/snooze", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestClearSnoozeAndSkip(t *testing.T) {
	srv, ctrl := newTestServer(t)
	h := srv.Handler()
	if w := do(t, h, http.MethodDelete, "/api/snooze", ""); w.Code != http.StatusOK {
		t.Errorf("clear snooze status = %d", w.Code)
	}
	if w := do(t, h, http.MethodPost, "/api/skip", ""); w.Code != http.StatusOK {
		t.Errorf("skip status = %d", w.Code)
	}
	calls := ctrl.Calls()
	if len(calls) != 2 || calls[0] != "clear_snooze" || calls[1] != "skip" {
		t.Errorf("calls = %v", calls)
	}
}

func TestPreview(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodPost, "/api/preview", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[PreviewResponse](t, w)
	if resp.Reminder.Kind != domain.ReminderPreview || !resp.Reminder.Delivered {
		t.Errorf("reminder = %+v", resp.Reminder)
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrEngineStopped, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		srv, ctrl := newTestServer(t)
		ctrl.err = tt.err
		w := do(t, srv.Handler(), http.MethodPost, "/api/skip", "")
		if w.Code != tt.want {
			t.Errorf("error %v: status = %d, want %d", tt.err, w.Code, tt.want)
		}
		if !strings.Contains(w.Body.String(), `"type":"error"`) {
			t.Errorf("error body = %s", w.Body.String())
		}
	}
}

// ─── Preferences ────────────────────────────────────────────────────────────

func TestPreferences_GetAndPatch(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/api/preferences", "")
	if got := decode[domain.Preferences](t, w); got != domain.DefaultPreferences() {
		t.Errorf("GET = %+v, want defaults", got)
	}

	w = do(t, h, http.MethodPatch, "/api/preferences", `{"intervalMinutes":1,"theme":"light"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, body %s", w.Code, w.Body.String())
	}
	got := decode[domain.Preferences](t, w)
	if got.IntervalMinutes != domain.MinIntervalMinutes {
		t.Errorf("IntervalMinutes = %d, want clamped %d", got.IntervalMinutes, domain.MinIntervalMinutes)
	}
	if got.Theme != domain.ThemeLight {
		t.Errorf("Theme = %q, want light", got.Theme)
	}
}

func TestPreferences_PatchInvalidTheme(t *testing.T) {
	srv, ctrl := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodPatch, "/api/preferences", `{"theme":"blue"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if len(ctrl.Calls()) != 0 {
		t.Error("invalid update should not reach the store")
	}
}

func TestPreferences_PatchEmpty(t *testing.T) {
	srv, ctrl := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodPatch, "/api/preferences", `{}`)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(ctrl.Calls()) != 0 {
		t.Error("empty update should not be submitted")
	}
}

// ─── History ────────────────────────────────────────────────────────────────

func TestHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetHistory(&fakeHistory{recs: []domain.ReminderRecord{
		{Reminder: domain.Reminder{ID: "a"}}, {Reminder: domain.Reminder{ID: "b"}}, {Reminder: domain.Reminder{ID: "c"}},
	}})
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/api/history?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[HistoryResponse](t, w)
	if len(resp.Reminders) != 2 || resp.Today.Scheduled != 3 {
		t.Errorf("resp = %+v", resp)
	}

	for _, bad := range []string{"0", "abc", "501"} {
		if w := do(t, h, http.MethodGet, "/api/history?limit="+bad, ""); w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestHistory_DisabledWithoutStore(t *testing.T) {
	srv, _ := newTestServer(t)
	if w := do(t, srv.Handler(), http.MethodGet, "/api/history", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	if w := do(t, srv.Handler(), http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("metrics disabled: status = %d, want 404", w.Code)
	}
	srv.EnableMetrics()
	w := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics enabled: status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "touchgrass_") {
		t.Error("metrics output missing touchgrass_ series")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodOptions, "/api/preferences", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") {
		t.Errorf("Allow-Methods = %q, want PATCH", got)
	}
}

// ─── Hub ────────────────────────────────────────────────────────────────────

func TestHub_SubscribeGetsLatest(t *testing.T) {
	hub := NewHub()
	hub.Publish(domain.StatusSnapshot{Paused: true})

	events, cancel := hub.Subscribe()
	defer cancel()

	ev := <-events
	if ev.Type != EventStatus {
		t.Fatalf("first event = %s, want status", ev.Type)
	}
	if s := ev.Data.(domain.StatusSnapshot); !s.Paused {
		t.Error("replayed snapshot should be the latest")
	}

	hub.PublishReminder(domain.ReminderRecord{Reminder: domain.Reminder{ID: "r"}})
	if ev := <-events; ev.Type != EventReminder {
		t.Errorf("event = %s, want reminder", ev.Type)
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			hub.Publish(domain.StatusSnapshot{})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestHub_Cancel(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", hub.Subscribers())
	}
	cancel()
	cancel()
	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers() after cancel = %d, want 0", hub.Subscribers())
	}
}

func TestEventsEndpoint_Streams(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.hub.Publish(domain.StatusSnapshot{Paused: true})

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 || lines[0] != "event: status" || !strings.Contains(lines[1], `"paused":true`) {
		t.Errorf("first event = %q", lines)
	}
}
