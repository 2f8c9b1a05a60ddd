// Package healing guards flaky adapters with a circuit breaker.
//
// States:
//   - closed    (normal) → consecutive failures reach threshold → open
//   - open      (skipping) → after cooldown → half-open
//   - half-open (one probe) → success → closed, failure → open
package healing

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the breaker is skipping calls.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// String returns the lowercase state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a Breaker.
type Config struct {
	Threshold int           // consecutive failures before opening (default 3)
	Cooldown  time.Duration // time spent open before a probe (default 5m)
}

// DefaultConfig returns the notifier defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: 3,
		Cooldown:  5 * time.Minute,
	}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu        sync.Mutex
	name      string
	cfg       Config
	state     State
	failures  int
	trippedAt time.Time
	trips     int
	probing   bool
	probeAt   time.Time
	now       func() time.Time
}

// NewBreaker creates a closed breaker. Zero config values fall back to
// DefaultConfig.
func NewBreaker(name string, cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// Allow reports whether the next call should go through. In half-open
// only one probe is let through until its outcome is recorded; a probe
// with no outcome after a full cooldown is treated as abandoned.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advanceLocked()
	switch b.state {
	case Open:
		return fmt.Errorf("%s: %w", b.name, ErrOpen)
	case HalfOpen:
		if b.probing && !b.stalledLocked() {
			return fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		b.probing = true
		b.probeAt = b.now()
	}
	return nil
}

// Release ends a half-open probe without an outcome, letting the next
// call probe again. Used when the call was cancelled before it could
// succeed or fail.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

// Stalled reports whether a half-open probe has been outstanding for
// longer than the cooldown.
func (b *Breaker) Stalled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stalledLocked()
}

// Success records a successful call and closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probing = false
}

// Failure records a failed call. Returns true when this failure opened
// the breaker.
func (b *Breaker) Failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	switch b.state {
	case Closed:
		b.failures++
		if b.failures < b.cfg.Threshold {
			return false
		}
	case Open:
		return false
	}
	b.state = Open
	b.trippedAt = b.now()
	b.trips++
	return true
}

// State returns the current state, moving open to half-open once the
// cooldown has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advanceLocked()
	return b.state
}

// Trips returns how many times the breaker has opened.
func (b *Breaker) Trips() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

// Reset forces the breaker closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probing = false
}

func (b *Breaker) stalledLocked() bool {
	return b.state == HalfOpen && b.probing && b.now().Sub(b.probeAt) >= b.cfg.Cooldown
}

func (b *Breaker) advanceLocked() {
	if b.state == Open && b.now().Sub(b.trippedAt) >= b.cfg.Cooldown {
		b.state = HalfOpen
		b.probing = false
	}
}
