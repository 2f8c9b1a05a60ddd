package healing

import (
	"errors"
	"testing"
	"time"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(t *testing.T) (*Breaker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	b := NewBreaker("desktop", Config{Threshold: 3, Cooldown: time.Minute})
	b.now = clock.now
	return b, clock
}

// ─── State ──────────────────────────────────────────────────────────────────

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker("x", Config{})
	if b.cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", b.cfg)
	}
	if b.State() != Closed || b.Name() != "x" {
		t.Errorf("state = %s, name = %q", b.State(), b.Name())
	}
}

// ─── Transitions ────────────────────────────────────────────────────────────

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(t)

	if b.Failure() || b.Failure() {
		t.Fatal("breaker opened before threshold")
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() below threshold: %v", err)
	}
	if !b.Failure() {
		t.Fatal("third failure should open the breaker")
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Allow() = %v, want ErrOpen", err)
	}
	if b.Trips() != 1 {
		t.Errorf("Trips() = %d, want 1", b.Trips())
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(t)
	b.Failure()
	b.Failure()
	b.Success()
	if b.Failure() {
		t.Error("count should restart after a success")
	}
}

func TestBreaker_HalfOpenSingleProbe(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Failure()
	}

	clock.advance(time.Minute)
	if b.State() != HalfOpen {
		t.Fatalf("state = %s, want half-open", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("first probe: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("second probe = %v, want ErrOpen", err)
	}

	b.Success()
	if b.State() != Closed {
		t.Errorf("state after probe success = %s, want closed", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	clock.advance(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}
	if !b.Failure() {
		t.Error("probe failure should reopen")
	}
	if b.State() != Open || b.Trips() != 2 {
		t.Errorf("state = %s, trips = %d", b.State(), b.Trips())
	}
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	b.Reset()
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() after Reset = %v", err)
	}
}

func TestBreaker_ReleaseAllowsNextProbe(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	clock.advance(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}
	b.Release()
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() after Release = %v, want a new probe", err)
	}
}

func TestBreaker_AbandonedHalfOpenExpires(t *testing.T) {
	b, clock := newTestBreaker(t)
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	clock.advance(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}
	if b.Stalled() {
		t.Fatal("fresh probe reported as stalled")
	}

	clock.advance(time.Minute)
	if !b.Stalled() {
		t.Fatal("probe outstanding for a full cooldown should be stalled")
	}
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() with abandoned probe = %v, want a new probe", err)
	}
	if b.Stalled() {
		t.Error("new probe should reset the stall clock")
	}
}
