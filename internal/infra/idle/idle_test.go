package idle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ─── Parsers ────────────────────────────────────────────────────────────────

func TestParseHIDIdleTime(t *testing.T) {
	out := []byte(`+-o IOHIDSystem  <class IOHIDSystem, id 0x100000222>
    {
      "HIDIdleTime" = 15234000000
      "HIDParameters" = {"HIDClickTime"=500000000}
    }`)
	d, err := parseHIDIdleTime(out)
	if err != nil {
		t.Fatalf("parseHIDIdleTime() error: %v", err)
	}
	if d != 15234*time.Millisecond {
		t.Errorf("parseHIDIdleTime() = %v, want 15.234s", d)
	}
}

func TestParseHIDIdleTime_Missing(t *testing.T) {
	if _, err := parseHIDIdleTime([]byte("nothing here")); err == nil {
		t.Error("expected error when HIDIdleTime is absent")
	}
	if _, err := parseHIDIdleTime([]byte(`"HIDIdleTime" = abc`)); err == nil {
		t.Error("expected error for non-numeric HIDIdleTime")
	}
}

func TestParseMillis(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1500\n", 1500 * time.Millisecond, false},
		{"0", 0, false},
		{"", 0, true},
		{"-5", 0, true},
		{"idle", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMillis([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMillis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMillis(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ─── Poll & Unavailable ─────────────────────────────────────────────────────

func TestPollSensor(t *testing.T) {
	var d time.Duration
	var err error
	s := NewPollSensor("fake", func(context.Context) (time.Duration, error) { return d, err })

	d = 42*time.Second + 900*time.Millisecond
	if secs, ok := s.IdleSeconds(); !ok || secs != 42 {
		t.Errorf("IdleSeconds() = %d, %v, want 42, true", secs, ok)
	}

	err = errors.New("no display")
	if _, ok := s.IdleSeconds(); ok {
		t.Error("query error should read as unavailable")
	}

	err = nil
	d = -time.Second
	if _, ok := s.IdleSeconds(); ok {
		t.Error("negative duration should read as unavailable")
	}
	if s.Name() != "fake" {
		t.Errorf("Name() = %q, want fake", s.Name())
	}
}

func TestUnavailable(t *testing.T) {
	var s Sensor = Unavailable{}
	if _, ok := s.IdleSeconds(); ok {
		t.Error("Unavailable should never report data")
	}
	if s.Close() != nil {
		t.Error("Close() should not fail")
	}
}

func TestDetect_None(t *testing.T) {
	s := Detect(context.Background(), DetectOptions{Backend: BackendNone})
	if s.Name() != "none" {
		t.Errorf("Detect(none) = %s, want none", s.Name())
	}
}

// ─── Aggregator ─────────────────────────────────────────────────────────────

type countingSensor struct {
	calls int
	secs  uint64
	ok    bool
}

func (c *countingSensor) Name() string { return "counting" }
func (c *countingSensor) IdleSeconds() (uint64, bool) {
	c.calls++
	return c.secs, c.ok
}
func (c *countingSensor) Close() error { return nil }

func TestAggregator_SamplesOnCadence(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &countingSensor{secs: 5, ok: true}
	a := NewAggregator(s, 20*time.Second)

	for i := 0; i < 20; i++ {
		got := a.Sample(base.Add(time.Duration(i) * time.Second))
		if !got.OK || got.Seconds != 5 {
			t.Fatalf("Sample() = %+v, want 5s", got)
		}
	}
	if s.calls != 1 {
		t.Errorf("sensor calls after 20 ticks = %d, want 1", s.calls)
	}

	s.secs = 9
	if got := a.Sample(base.Add(20 * time.Second)); got.Seconds != 9 {
		t.Errorf("Sample() at 20s = %d, want refreshed 9", got.Seconds)
	}
	if s.calls != 2 {
		t.Errorf("sensor calls = %d, want 2", s.calls)
	}
}

func TestAggregator_Reset(t *testing.T) {
	base := time.Now()
	s := &countingSensor{ok: true}
	a := NewAggregator(s, time.Minute)
	a.Sample(base)
	a.Reset()
	a.Sample(base.Add(time.Second))
	if s.calls != 2 {
		t.Errorf("calls = %d, want 2 after Reset", s.calls)
	}
}

func TestAggregator_Unavailable(t *testing.T) {
	base := time.Now()
	s := &countingSensor{ok: false}
	a := NewAggregator(s, 0)
	if got := a.Sample(base); got.OK {
		t.Error("Sample() should be unavailable")
	}
	if !a.reportedNA {
		t.Error("unavailability should be reported once")
	}
	s.ok = true
	if got := a.Sample(base.Add(DefaultSampleInterval)); !got.OK {
		t.Error("Sample() should recover")
	}
	if a.reportedNA {
		t.Error("recovery should re-arm the warning")
	}
}

// ─── Event Sensor ───────────────────────────────────────────────────────────

type fakeSource struct {
	mu      sync.Mutex
	ch      chan Transition
	watches []time.Duration
	closed  bool
}

func newFakeSource() *fakeSource { return &fakeSource{ch: make(chan Transition, 4)} }

func (f *fakeSource) Watch(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watches = append(f.watches, d)
	return nil
}

func (f *fakeSource) Events() <-chan Transition { return f.ch }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

func TestEventSensor_Slot(t *testing.T) {
	src := newFakeSource()
	s, err := NewEventSensor("fake", src, 2*time.Minute)
	if err != nil {
		t.Fatalf("NewEventSensor() error: %v", err)
	}
	defer s.Close()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.mu.Lock()
	s.now = func() time.Time { return now }
	s.mu.Unlock()

	if secs, ok := s.IdleSeconds(); !ok || secs != 0 {
		t.Errorf("active IdleSeconds() = %d, %v, want 0, true", secs, ok)
	}

	s.apply(TransitionIdle)
	if secs, _ := s.IdleSeconds(); secs != 120 {
		t.Errorf("IdleSeconds() at idle event = %d, want 120", secs)
	}

	now = now.Add(30 * time.Second)
	s.apply(TransitionIdle) // repeated idle must not move the start
	if secs, _ := s.IdleSeconds(); secs != 150 {
		t.Errorf("IdleSeconds() 30s later = %d, want 150", secs)
	}

	s.apply(TransitionActive)
	if secs, ok := s.IdleSeconds(); !ok || secs != 0 {
		t.Errorf("IdleSeconds() after active = %d, %v, want 0, true", secs, ok)
	}
}

func TestEventSensor_ListensAndDies(t *testing.T) {
	src := newFakeSource()
	s, err := NewEventSensor("fake", src, time.Minute)
	if err != nil {
		t.Fatalf("NewEventSensor() error: %v", err)
	}

	src.ch <- TransitionIdle
	deadline := time.Now().Add(time.Second)
	for {
		if secs, _ := s.IdleSeconds(); secs >= 60 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("idle transition not observed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, ok := s.IdleSeconds(); ok {
		t.Error("sensor should be unavailable after its source closes")
	}
}

func TestEventSensor_SetThreshold(t *testing.T) {
	src := newFakeSource()
	s, err := NewEventSensor("fake", src, time.Minute)
	if err != nil {
		t.Fatalf("NewEventSensor() error: %v", err)
	}
	defer s.Close()

	a := NewAggregator(s, 0)
	if err := a.SetThreshold(time.Minute); err != nil {
		t.Fatalf("SetThreshold() error: %v", err)
	}
	if err := a.SetThreshold(5 * time.Minute); err != nil {
		t.Fatalf("SetThreshold() error: %v", err)
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.watches) != 2 || src.watches[1] != 5*time.Minute {
		t.Errorf("watches = %v, want [1m 5m]", src.watches)
	}
}

// ─── Watch Tracker ──────────────────────────────────────────────────────────

type fakeBus struct {
	next    uint32
	removed []uint32
	actives int
}

func (b *fakeBus) AddIdleWatch(time.Duration) (uint32, error) {
	b.next++
	return b.next, nil
}

func (b *fakeBus) AddUserActiveWatch() (uint32, error) {
	b.next++
	b.actives++
	return b.next, nil
}

func (b *fakeBus) RemoveWatch(id uint32) error {
	b.removed = append(b.removed, id)
	return nil
}

func TestWatchTracker(t *testing.T) {
	bus := &fakeBus{}
	w := newWatchTracker(bus)
	if err := w.arm(time.Minute); err != nil {
		t.Fatalf("arm() error: %v", err)
	}
	idleID := w.idleID

	tr, ours, err := w.fired(idleID)
	if err != nil || !ours || tr != TransitionIdle {
		t.Fatalf("fired(idle) = %v, %v, %v", tr, ours, err)
	}
	activeID := w.active
	if activeID == 0 || bus.actives != 1 {
		t.Fatalf("active watch not armed: id=%d actives=%d", activeID, bus.actives)
	}

	// A second idle signal must not stack active watches.
	_, _, _ = w.fired(idleID)
	if bus.actives != 1 {
		t.Errorf("active watches = %d, want 1", bus.actives)
	}

	tr, ours, _ = w.fired(activeID)
	if !ours || tr != TransitionActive {
		t.Errorf("fired(active) = %v, %v, want active, true", tr, ours)
	}
	if w.active != 0 {
		t.Error("active watch should be one-shot")
	}

	if _, ours, _ := w.fired(999); ours {
		t.Error("unknown watch id should be ignored")
	}

	if err := w.arm(2 * time.Minute); err != nil {
		t.Fatalf("re-arm error: %v", err)
	}
	if len(bus.removed) != 1 || bus.removed[0] != idleID {
		t.Errorf("removed = %v, want [%d]", bus.removed, idleID)
	}

	w.release()
	if w.idleID != 0 {
		t.Error("release should clear the idle watch")
	}
}

func TestStartWatchedSensor_IdleAtConnect(t *testing.T) {
	bus := &fakeBus{}
	w := newWatchTracker(bus)
	if err := w.arm(2 * time.Minute); err != nil {
		t.Fatal(err)
	}
	src := newFakeSource()
	s, err := startWatchedSensor("fake", src, w, 5*time.Minute, 2*time.Minute)
	if err != nil {
		t.Fatalf("startWatchedSensor() error: %v", err)
	}
	defer s.Close()

	if bus.actives != 1 || w.active == 0 {
		t.Fatalf("active watch not armed at connect: actives=%d id=%d", bus.actives, w.active)
	}
	if secs, ok := s.IdleSeconds(); !ok || secs < 120 {
		t.Errorf("IdleSeconds() = %d, %v, want >= 120", secs, ok)
	}

	tr, ours, err := w.fired(w.active)
	if err != nil || !ours || tr != TransitionActive {
		t.Fatalf("fired(active) = %v, %v, %v", tr, ours, err)
	}
	src.ch <- tr
	deadline := time.Now().Add(time.Second)
	for {
		if secs, _ := s.IdleSeconds(); secs == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("return to activity not observed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartWatchedSensor_ActiveAtConnect(t *testing.T) {
	bus := &fakeBus{}
	w := newWatchTracker(bus)
	src := newFakeSource()
	s, err := startWatchedSensor("fake", src, w, 10*time.Second, 2*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if bus.actives != 0 {
		t.Errorf("actives = %d, want 0 for an active user", bus.actives)
	}
	if secs, _ := s.IdleSeconds(); secs != 0 {
		t.Errorf("IdleSeconds() = %d, want 0", secs)
	}
}

func TestTransition_String(t *testing.T) {
	if TransitionIdle.String() != "idle" || TransitionActive.String() != "active" {
		t.Error("unexpected Transition names")
	}
}
