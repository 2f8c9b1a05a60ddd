// Package health runs periodic self-checks on the daemon's dependencies
// and attempts simple recovery when one fails.
package health

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/KayraNafi/TouchGrass/internal/infra/healing"
)

// DefaultInterval is how often checks run.
const DefaultInterval = 60 * time.Second

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// NewChecker creates a checker. interval <= 0 uses DefaultInterval.
func NewChecker(interval time.Duration, checks ...Check) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Checker{interval: interval, checks: checks}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce evaluates every check now.
func (c *Checker) RunOnce(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
			Healthy:   true,
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			log.Printf("[health] %s: %v", check.Name, err)
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr != nil {
					log.Printf("[health] %s: recovery failed: %v", check.Name, rerr)
				} else if err := check.CheckFn(ctx); err == nil {
					s.Healthy = true
					s.Recovered = true
					s.Error = ""
					log.Printf("[health] %s: recovered", check.Name)
				}
			}
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Standard Checks ────────────────────────────────────────────────────────

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping() error
}

// DatabaseCheck pings the history database.
func DatabaseCheck(db Pinger) Check {
	return Check{
		Name:    "sqlite",
		CheckFn: func(context.Context) error { return db.Ping() },
	}
}

// FileCheck verifies that path exists and is a regular file. restore, if
// set, recreates it.
func FileCheck(name, path string, restore func() error) Check {
	c := Check{
		Name:    name,
		CheckFn: func(context.Context) error { return checkFile(path) },
	}
	if restore != nil {
		c.RecoverFn = func(context.Context) error { return restore() }
	}
	return c
}

// LoopCheck fails once done is closed, meaning the loop has exited.
func LoopCheck(name string, done <-chan struct{}) Check {
	return Check{
		Name: name,
		CheckFn: func(context.Context) error {
			select {
			case <-done:
				return errors.New("loop is not running")
			default:
				return nil
			}
		},
	}
}

// BreakerCheck fails while b is open or a half-open probe has gone a
// full cooldown without an outcome. Recovery releases the stuck probe;
// an open breaker probes again on its own after the cooldown.
func BreakerCheck(b *healing.Breaker) Check {
	return Check{
		Name: "notifier",
		CheckFn: func(context.Context) error {
			if b.Stalled() {
				return fmt.Errorf("%s sink probe never completed", b.Name())
			}
			if st := b.State(); st == healing.Open {
				return fmt.Errorf("%s sink %w", b.Name(), healing.ErrOpen)
			}
			return nil
		},
		RecoverFn: func(context.Context) error {
			b.Release()
			return nil
		},
	}
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}
