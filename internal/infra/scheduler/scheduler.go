// Package scheduler runs the reminder loop.
//
// Core concepts:
//   - Engine: the single goroutine that owns the timer state machine
//   - Tick: once per TickInterval, sample idle time (if due) and evaluate
//   - Commands: pause, snooze, preview, preference edits are sent to the
//     loop over a channel and applied between ticks, never concurrently
//   - Status: every observable change is published; readers get an
//     immutable snapshot
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/infra/metrics"
	"github.com/KayraNafi/TouchGrass/internal/timer"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config configures the loop.
type Config struct {
	TickInterval  time.Duration // default 1s
	NotifyTimeout time.Duration // bound on a single sink call (default 10s)
	MaxSnooze     time.Duration // longest accepted snooze (default 24h)
	Trace         bool          // log every tick evaluation
}

// DefaultConfig returns production loop defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:  time.Second,
		NotifyTimeout: 10 * time.Second,
		MaxSnooze:     24 * time.Hour,
	}
}

// FallbackMessage is used when no message source is wired.
const FallbackMessage = "Time for a quick reset."

// IdleSource is the engine's view of the idle aggregator.
type IdleSource interface {
	Sample(now time.Time) domain.IdleSample
	SetThreshold(d time.Duration) error
	Reset()
}

// Deps are the engine's collaborators.
type Deps struct {
	Prefs     domain.PreferencesStore
	Idle      IdleSource
	Sink      domain.NotificationSink
	Status    []domain.StatusPublisher
	Reminders []domain.ReminderPublisher
	Messages  func() string    // nil = FallbackMessage
	Now       func() time.Time // nil = time.Now
}

// ─── Engine ─────────────────────────────────────────────────────────────────

type command struct {
	name  string
	apply func(ctx context.Context, now time.Time) error
	reply chan error
}

// Engine owns the timer machine. Only the Run goroutine touches it.
type Engine struct {
	config Config
	deps   Deps

	// Loop-owned state
	machine   *timer.Machine
	last      domain.StatusSnapshot
	published bool
	deferring bool

	status atomic.Pointer[domain.StatusSnapshot]
	cmds   chan command

	ticks          atomic.Int64
	fired          atomic.Int64
	previews       atomic.Int64
	deferrals      atomic.Int64
	idleResets     atomic.Int64
	notifyFailures atomic.Int64
	commands       atomic.Int64

	running  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New builds an engine from the store's current configuration. The first
// reminder is one interval from now.
func New(cfg Config, deps Deps) *Engine {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = def.NotifyTimeout
	}
	if cfg.MaxSnooze <= 0 {
		cfg.MaxSnooze = def.MaxSnooze
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Messages == nil {
		deps.Messages = func() string { return FallbackMessage }
	}

	e := &Engine{
		config:  cfg,
		deps:    deps,
		machine: timer.New(deps.Now(), deps.Prefs.Get()),
		cmds:    make(chan command),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	snap := e.machine.Snapshot()
	e.status.Store(&snap)
	return e
}

// Run drives the loop until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("scheduler engine already running")
	}
	defer close(e.done)

	cfg := e.machine.Config()
	if err := e.deps.Idle.SetThreshold(cfg.IdleThreshold); err != nil {
		log.Printf("[scheduler] set idle threshold: %v", err)
	}
	log.Printf("[scheduler] started: interval=%v activity_detection=%v idle_threshold=%v",
		cfg.Interval, cfg.ActivityDetection, cfg.IdleThreshold)
	e.publish()

	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[scheduler] stopped")
			return nil
		case <-e.stopCh:
			log.Printf("[scheduler] stopped")
			return nil
		case cmd := <-e.cmds:
			cmd.reply <- e.apply(ctx, cmd)
		case <-ticker.C:
			e.step(ctx, e.deps.Now())
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Status returns the latest published snapshot.
func (e *Engine) Status() domain.StatusSnapshot { return *e.status.Load() }

// Stats returns cumulative counters.
func (e *Engine) Stats() domain.EngineStats {
	return domain.EngineStats{
		Ticks:          e.ticks.Load(),
		Fired:          e.fired.Load(),
		Previews:       e.previews.Load(),
		Deferrals:      e.deferrals.Load(),
		IdleResets:     e.idleResets.Load(),
		NotifyFailures: e.notifyFailures.Load(),
		Commands:       e.commands.Load(),
	}
}

// ─── Commands ───────────────────────────────────────────────────────────────

// SetPause pauses or resumes reminders.
func (e *Engine) SetPause(ctx context.Context, paused bool) error {
	name := "resume"
	if paused {
		name = "pause"
	}
	return e.submit(ctx, name, func(_ context.Context, now time.Time) error {
		if paused {
			e.machine.Pause(now)
			log.Printf("[scheduler] paused")
		} else if e.machine.Resume(now) {
			log.Printf("[scheduler] resumed")
		}
		return nil
	})
}

// SnoozeFor holds reminders for the given number of minutes. Zero and
// anything past MaxSnooze are rejected without touching the loop.
func (e *Engine) SnoozeFor(ctx context.Context, minutes uint32) error {
	if minutes == 0 || uint64(minutes) > uint64(e.config.MaxSnooze/time.Minute) {
		return fmt.Errorf("snooze for %d minutes: %w", minutes, domain.ErrInvalidSnooze)
	}
	d := time.Duration(minutes) * time.Minute
	return e.submit(ctx, "snooze", func(_ context.Context, now time.Time) error {
		if err := e.machine.Snooze(now, d); err != nil {
			return err
		}
		log.Printf("[scheduler] snoozed for %v", d)
		return nil
	})
}

// ClearSnooze ends an active snooze.
func (e *Engine) ClearSnooze(ctx context.Context) error {
	return e.submit(ctx, "clear_snooze", func(_ context.Context, now time.Time) error {
		if e.machine.ClearSnooze(now) {
			log.Printf("[scheduler] snooze cleared")
		}
		return nil
	})
}

// Skip restarts the countdown and drops any snooze.
func (e *Engine) Skip(ctx context.Context) error {
	return e.submit(ctx, "skip", func(_ context.Context, now time.Time) error {
		if e.machine.Skip(now) {
			log.Printf("[scheduler] current break skipped")
		}
		return nil
	})
}

// TriggerPreview sends a reminder immediately without touching the timer.
func (e *Engine) TriggerPreview(ctx context.Context) (domain.ReminderRecord, error) {
	var rec domain.ReminderRecord
	err := e.submit(ctx, "preview", func(ctx context.Context, now time.Time) error {
		rec = e.fire(ctx, now, domain.ReminderPreview)
		return nil
	})
	return rec, err
}

// UpdateConfig persists a preference change and applies the normalized
// result to the timer.
func (e *Engine) UpdateConfig(ctx context.Context, update domain.PreferencesUpdate) (domain.Preferences, error) {
	if err := update.Validate(); err != nil {
		return domain.Preferences{}, err
	}
	var prefs domain.Preferences
	err := e.submit(ctx, "update_config", func(_ context.Context, now time.Time) error {
		cfg, err := e.deps.Prefs.Set(update)
		if err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		e.applyConfig(now, cfg)
		prefs = e.deps.Prefs.Preferences()
		return nil
	})
	return prefs, err
}

// Reload applies whatever the preferences store currently holds. Used
// when the file changes on disk.
func (e *Engine) Reload(ctx context.Context) error {
	return e.submit(ctx, "reload", func(_ context.Context, now time.Time) error {
		e.applyConfig(now, e.deps.Prefs.Get())
		return nil
	})
}

func (e *Engine) submit(ctx context.Context, name string, fn func(context.Context, time.Time) error) error {
	cmd := command{name: name, apply: fn, reply: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
	case <-e.stopCh:
		return domain.ErrEngineStopped
	case <-e.done:
		return domain.ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	// The loop always replies once it has taken the command.
	return <-cmd.reply
}

func (e *Engine) apply(ctx context.Context, cmd command) error {
	e.commands.Add(1)
	err := cmd.apply(ctx, e.deps.Now())
	result := "ok"
	if err != nil {
		result = "error"
		log.Printf("[scheduler] %s: %v", cmd.name, err)
	}
	metrics.SchedulerCommands.WithLabelValues(cmd.name, result).Inc()
	e.publish()
	return err
}

// ─── Loop Internals ─────────────────────────────────────────────────────────

// step is one tick. Split from Run so tests can drive time directly.
func (e *Engine) step(ctx context.Context, now time.Time) {
	e.ticks.Add(1)
	metrics.SchedulerTicks.Inc()

	sample := domain.UnavailableSample
	if e.machine.Config().ActivityDetection {
		sample = e.deps.Idle.Sample(now)
	}

	d := e.machine.Tick(now, sample)
	if e.config.Trace {
		log.Printf("[scheduler] tick: phase=%s idle=%s decision=%+v", e.machine.Phase(), sample, d)
	}
	switch {
	case d.SnoozeExpired:
		log.Printf("[scheduler] snooze expired")
	case d.LatchSet:
		log.Printf("[scheduler] user idle past threshold (%s)", sample)
	}
	if d.IdleReset {
		e.idleResets.Add(1)
		metrics.IdleResets.Inc()
		log.Printf("[scheduler] user back; countdown restarted")
	}
	if d.Deferred && !e.deferring {
		e.deferrals.Add(1)
		metrics.RemindersDeferred.Inc()
		log.Printf("[scheduler] reminder due but user is away; deferring")
	}
	e.deferring = d.Deferred

	if d.Fire {
		e.fire(ctx, now, domain.ReminderScheduled)
	}
	e.publish()
}

func (e *Engine) applyConfig(now time.Time, cfg domain.ReminderConfig) {
	old := e.machine.Config()
	e.machine.UpdateConfig(now, cfg)
	if cfg.IdleThreshold != old.IdleThreshold {
		if err := e.deps.Idle.SetThreshold(cfg.IdleThreshold); err != nil {
			log.Printf("[scheduler] set idle threshold: %v", err)
		}
	}
	if cfg.IdleThreshold != old.IdleThreshold || cfg.ActivityDetection != old.ActivityDetection {
		e.deps.Idle.Reset()
	}
	if cfg != old {
		log.Printf("[scheduler] config updated: interval=%v activity_detection=%v idle_threshold=%v sound=%v",
			cfg.Interval, cfg.ActivityDetection, cfg.IdleThreshold, cfg.PlaySound)
	}
}

// fire hands a reminder to the sink. Failures are recorded, not retried.
func (e *Engine) fire(ctx context.Context, now time.Time, kind domain.ReminderKind) domain.ReminderRecord {
	r := domain.Reminder{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   e.deps.Messages(),
		PlaySound: e.machine.Config().PlaySound,
		At:        now,
	}
	rec := domain.ReminderRecord{Reminder: r, Delivered: true}

	fctx, cancel := context.WithTimeout(ctx, e.config.NotifyTimeout)
	defer cancel()
	start := time.Now()
	err := e.deps.Sink.Fire(fctx, r)
	metrics.NotifyLatency.Observe(time.Since(start).Seconds())

	if kind == domain.ReminderPreview {
		e.previews.Add(1)
	} else {
		e.fired.Add(1)
	}
	metrics.RemindersFired.WithLabelValues(string(kind)).Inc()

	if err != nil {
		rec.Delivered = false
		rec.Error = err.Error()
		e.notifyFailures.Add(1)
		log.Printf("[scheduler] %s reminder not delivered: %v", kind, err)
	} else {
		log.Printf("[scheduler] %s reminder sent: %q", kind, r.Message)
	}

	for _, p := range e.deps.Reminders {
		p.PublishReminder(rec)
	}
	return rec
}

// publish pushes the snapshot to publishers if anything observable changed.
func (e *Engine) publish() {
	s := e.machine.Snapshot()
	if e.published && s.Equal(e.last) {
		return
	}
	e.last = s
	e.published = true
	e.status.Store(&s)

	metrics.SchedulerPhase.Set(float64(e.machine.Phase()))
	if s.IdleSeconds != nil {
		metrics.IdleAvailable.Set(1)
		metrics.IdleSeconds.Set(float64(*s.IdleSeconds))
	} else {
		metrics.IdleAvailable.Set(0)
	}
	if s.NextTriggerAt != nil {
		metrics.SecondsUntilReminder.Set(s.NextTriggerAt.Sub(e.deps.Now()).Seconds())
	} else {
		metrics.SecondsUntilReminder.Set(0)
	}

	for _, p := range e.deps.Status {
		p.Publish(s)
	}
}
