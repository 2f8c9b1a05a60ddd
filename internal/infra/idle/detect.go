package idle

import (
	"context"
	"log"
	"time"
)

// Backend selects how idle time is obtained.
type Backend string

const (
	BackendAuto  Backend = "auto"  // Event-driven if possible, else polling
	BackendEvent Backend = "event" // Compositor idle notifications only
	BackendPoll  Backend = "poll"  // OS idle query only
	BackendNone  Backend = "none"  // Never report idle data
)

// DetectOptions configures backend selection.
type DetectOptions struct {
	Backend   Backend
	Threshold time.Duration // Initial idle threshold for event backends
	Runner    CommandRunner // nil = os/exec
}

func (o DetectOptions) runner() CommandRunner {
	if o.Runner != nil {
		return o.Runner
	}
	return execRunner
}

// Detect picks the idle backend for this machine. It never fails: when
// no backend works it logs why and returns Unavailable.
func Detect(ctx context.Context, opts DetectOptions) Sensor {
	if opts.Backend == "" {
		opts.Backend = BackendAuto
	}
	if opts.Backend == BackendNone {
		log.Printf("[idle] idle detection disabled by config")
		return Unavailable{}
	}
	s, err := detectPlatform(ctx, opts)
	if err != nil {
		log.Printf("[idle] no idle backend: %v (reminders will fire on a fixed cadence)", err)
		return Unavailable{}
	}
	log.Printf("[idle] using %s backend", s.Name())
	return s
}

// probe returns s if it can answer right now.
func probe(s Sensor) (Sensor, bool) {
	if _, ok := s.IdleSeconds(); !ok {
		return nil, false
	}
	return s, true
}
