// Package timer implements the reminder state machine: when a break
// reminder is due, and how pause, snooze, and idle time interact with it.
//
// Machine is not safe for concurrent use. The scheduler engine owns it and
// is its only caller. Every method takes the current instant explicitly so
// behaviour is deterministic under test.
package timer

import (
	"fmt"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/domain"
)

// Phase is the machine's top-level state. Exactly one holds at a time.
type Phase int

const (
	PhaseRunning Phase = iota // Counting down to nextTriggerAt
	PhasePaused               // No countdown, no reminders
	PhaseSnoozed              // Waiting for snoozedUntil
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseSnoozed:
		return "snoozed"
	default:
		return "unknown"
	}
}

// Decision reports what a Tick did.
type Decision struct {
	Fire          bool // A scheduled reminder is due now
	Deferred      bool // Due, but held back because the user is away
	IdleReset     bool // User came back; countdown restarted
	LatchSet      bool // Idle threshold crossed on this tick
	SnoozeExpired bool // Snooze ended and the countdown restarted
}

// Machine holds the scheduler state.
type Machine struct {
	cfg   domain.ReminderConfig
	phase Phase

	snoozedUntil  time.Time
	nextTriggerAt time.Time
	triggerSetAt  time.Time
	lastFiredAt   time.Time

	idle              domain.IdleSample
	idlePastThreshold bool
}

// New returns a running machine whose first reminder is one interval away.
func New(now time.Time, cfg domain.ReminderConfig) *Machine {
	m := &Machine{cfg: cfg, phase: PhaseRunning}
	m.schedule(now)
	return m
}

// ─── Accessors ──────────────────────────────────────────────────────────────

// Config returns the active configuration.
func (m *Machine) Config() domain.ReminderConfig { return m.cfg }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// NextTriggerAt returns the due instant. ok is false unless Running.
func (m *Machine) NextTriggerAt() (t time.Time, ok bool) {
	return m.nextTriggerAt, m.phase == PhaseRunning
}

// SnoozedUntil returns the snooze end. ok is false unless Snoozed.
func (m *Machine) SnoozedUntil() (t time.Time, ok bool) {
	return m.snoozedUntil, m.phase == PhaseSnoozed
}

// LastFiredAt returns when the last scheduled reminder fired.
func (m *Machine) LastFiredAt() (t time.Time, ok bool) {
	return m.lastFiredAt, !m.lastFiredAt.IsZero()
}

// IdleLatched reports whether the user has been seen idle past the
// threshold without having come back yet.
func (m *Machine) IdleLatched() bool { return m.idlePastThreshold }

// Idle returns the last recorded idle sample.
func (m *Machine) Idle() domain.IdleSample { return m.idle }

// ─── Commands ───────────────────────────────────────────────────────────────

// Pause stops the countdown and drops any snooze.
func (m *Machine) Pause(now time.Time) {
	m.phase = PhasePaused
	m.nextTriggerAt = time.Time{}
	m.triggerSetAt = time.Time{}
	m.snoozedUntil = time.Time{}
	m.idlePastThreshold = false
}

// Resume restarts the countdown from now. It reports false and does
// nothing unless the machine is paused.
func (m *Machine) Resume(now time.Time) bool {
	if m.phase != PhasePaused {
		return false
	}
	m.phase = PhaseRunning
	m.schedule(now)
	return true
}

// Snooze holds reminders until now+d. A second snooze replaces the first.
func (m *Machine) Snooze(now time.Time, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("snooze %v: %w", d, domain.ErrInvalidSnooze)
	}
	m.phase = PhaseSnoozed
	m.snoozedUntil = now.Add(d)
	m.nextTriggerAt = time.Time{}
	m.triggerSetAt = time.Time{}
	m.idlePastThreshold = false
	return nil
}

// ClearSnooze ends a snooze early and restarts the countdown. It reports
// false and does nothing unless the machine is snoozed.
func (m *Machine) ClearSnooze(now time.Time) bool {
	if m.phase != PhaseSnoozed {
		return false
	}
	m.phase = PhaseRunning
	m.snoozedUntil = time.Time{}
	m.schedule(now)
	return true
}

// Skip drops the current reminder: any snooze ends and the countdown
// restarts from now. A paused machine stays paused.
func (m *Machine) Skip(now time.Time) bool {
	if m.phase == PhasePaused {
		return false
	}
	m.phase = PhaseRunning
	m.snoozedUntil = time.Time{}
	m.idlePastThreshold = false
	m.schedule(now)
	return true
}

// UpdateConfig swaps in a new configuration without changing phase.
// A running countdown keeps its due instant unless the new interval,
// measured from when that instant was computed, already lies at or
// before now; then it restarts from now.
// A changed idle threshold clears the latch: the next sample is judged
// against the new threshold alone, so raising it is not a return.
func (m *Machine) UpdateConfig(now time.Time, cfg domain.ReminderConfig) {
	if !cfg.ActivityDetection || cfg.IdleThreshold != m.cfg.IdleThreshold {
		m.idlePastThreshold = false
	}
	m.cfg = cfg
	if m.phase != PhaseRunning {
		return
	}
	if !m.triggerSetAt.Add(cfg.Interval).After(now) {
		m.schedule(now)
	}
}

// ─── Evaluation ─────────────────────────────────────────────────────────────

// Tick evaluates the machine at now with the latest idle sample.
func (m *Machine) Tick(now time.Time, sample domain.IdleSample) Decision {
	var d Decision
	m.idle = sample

	if m.phase == PhaseSnoozed && !now.Before(m.snoozedUntil) {
		m.phase = PhaseRunning
		m.snoozedUntil = time.Time{}
		m.schedule(now)
		d.SnoozeExpired = true
	}
	if m.phase != PhaseRunning {
		return d
	}

	if m.cfg.ActivityDetection {
		switch {
		case !sample.OK:
			m.idlePastThreshold = false
		case sample.Seconds >= m.cfg.IdleThresholdSeconds():
			if !m.idlePastThreshold {
				m.idlePastThreshold = true
				d.LatchSet = true
			}
		case m.idlePastThreshold:
			m.idlePastThreshold = false
			m.schedule(now)
			d.IdleReset = true
		}
	}

	if now.Before(m.nextTriggerAt) {
		return d
	}
	if m.idlePastThreshold {
		d.Deferred = true
		return d
	}
	d.Fire = true
	m.lastFiredAt = now
	m.schedule(now)
	return d
}

// Snapshot returns the externally visible state.
func (m *Machine) Snapshot() domain.StatusSnapshot {
	s := domain.StatusSnapshot{
		Paused:      m.phase == PhasePaused,
		IdleSeconds: m.idle.Ptr(),
	}
	if t, ok := m.SnoozedUntil(); ok {
		s.SnoozedUntil = &t
	}
	if t, ok := m.NextTriggerAt(); ok {
		s.NextTriggerAt = &t
	}
	if t, ok := m.LastFiredAt(); ok {
		s.LastNotificationAt = &t
	}
	return s
}

func (m *Machine) schedule(now time.Time) {
	m.triggerSetAt = now
	m.nextTriggerAt = now.Add(m.cfg.Interval)
}
