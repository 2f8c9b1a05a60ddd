// Package idle answers "how many seconds since the user last touched the
// keyboard or mouse" across platforms.
//
// A Sensor is chosen once at startup by Detect. Event-driven backends
// (compositor idle notifications) are preferred; polling backends query
// the OS on demand; when nothing works the Unavailable sensor reports no
// data and reminders fall back to a fixed cadence.
package idle

import (
	"context"
	"os/exec"
	"time"
)

// Sensor reports seconds since last user input. ok is false when the
// backend cannot answer right now.
type Sensor interface {
	Name() string
	IdleSeconds() (secs uint64, ok bool)
	Close() error
}

// ThresholdSetter is implemented by sensors that must know the idle
// threshold up front, such as compositor idle watches.
type ThresholdSetter interface {
	SetThreshold(d time.Duration) error
}

// CommandRunner runs an external command and returns its stdout.
// Swapped out in tests.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// queryTimeout bounds a single polling query.
const queryTimeout = 2 * time.Second

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Output()
}

// ─── Unavailable ────────────────────────────────────────────────────────────

// Unavailable never has data.
type Unavailable struct{}

func (Unavailable) Name() string                 { return "none" }
func (Unavailable) IdleSeconds() (uint64, bool) { return 0, false }
func (Unavailable) Close() error                 { return nil }

// ─── Polling ────────────────────────────────────────────────────────────────

// QueryFunc returns the current idle duration in one blocking call.
type QueryFunc func(ctx context.Context) (time.Duration, error)

// PollSensor asks the OS for the idle duration on every read.
type PollSensor struct {
	name  string
	query QueryFunc
}

// NewPollSensor wraps a point-in-time query.
func NewPollSensor(name string, query QueryFunc) *PollSensor {
	return &PollSensor{name: name, query: query}
}

// Name returns the backend name.
func (p *PollSensor) Name() string { return p.name }

// IdleSeconds runs the query. Errors and negative durations read as
// unavailable.
func (p *PollSensor) IdleSeconds() (uint64, bool) {
	d, err := p.query(context.Background())
	if err != nil || d < 0 {
		return 0, false
	}
	return uint64(d / time.Second), true
}

// Close is a no-op; polling holds no resources between reads.
func (p *PollSensor) Close() error { return nil }
