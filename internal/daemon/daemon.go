package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KayraNafi/TouchGrass/internal/api"
	"github.com/KayraNafi/TouchGrass/internal/domain"
	"github.com/KayraNafi/TouchGrass/internal/health"
	"github.com/KayraNafi/TouchGrass/internal/infra/healing"
	"github.com/KayraNafi/TouchGrass/internal/infra/idle"
	"github.com/KayraNafi/TouchGrass/internal/infra/notify"
	"github.com/KayraNafi/TouchGrass/internal/infra/prefs"
	"github.com/KayraNafi/TouchGrass/internal/infra/scheduler"
	"github.com/KayraNafi/TouchGrass/internal/infra/sqlite"
)

// Daemon is the TouchGrass runtime. It wires together all services.
type Daemon struct {
	Config Config
	Home   string

	DB      *sqlite.DB
	History *sqlite.History
	Prefs   *prefs.Store
	Watcher *prefs.Watcher
	Idle    *idle.Aggregator
	Sink    domain.NotificationSink
	Engine  *scheduler.Engine
	Hub     *api.Hub
	Server  *api.Server
	Health  *health.Checker

	desktop *notify.Desktop
	logFile io.Closer
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New(version string) (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg, version)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config, version string) (*Daemon, error) {
	home := touchgrassHome()
	d := &Daemon{Config: cfg, Home: home}

	logFile, err := setupLogging(cfg.Logging)
	if err != nil {
		return nil, err
	}
	d.logFile = logFile

	// Preferences
	store, err := prefs.Open(home)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	d.Prefs = store
	reminderCfg := store.Get()

	// Reminder history
	var reminderPubs []domain.ReminderPublisher
	if cfg.History.Enabled {
		db, err := sqlite.Open(home)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: reminder history disabled: %v\n", err)
		} else {
			d.DB = db
			d.History = sqlite.NewHistory(db, cfg.History.Limit)
			reminderPubs = append(reminderPubs, d.History)
			recordStart(db)
		}
	}

	// Idle detection
	sensor := idle.Detect(context.Background(), idle.DetectOptions{
		Backend:   idle.Backend(strings.ToLower(cfg.Idle.Backend)),
		Threshold: reminderCfg.IdleThreshold,
	})
	d.Idle = idle.NewAggregator(sensor, parseDuration(cfg.Idle.SampleInterval, idle.DefaultSampleInterval))

	// Notifications
	var breaker *healing.Breaker
	switch strings.ToLower(cfg.Notifications.Sink) {
	case "log":
		d.Sink = notify.NewLog(os.Stdout)
	default:
		d.desktop = notify.NewDesktop(notify.Options{
			AppName: cfg.Notifications.AppName,
			Icon:    cfg.Notifications.Icon,
			Actions: cfg.Notifications.Actions,
		})
		breaker = healing.NewBreaker("desktop", healing.DefaultConfig())
		d.Sink = notify.NewFallback(d.desktop, notify.NewLog(os.Stdout), breaker)
	}

	// Scheduler
	d.Hub = api.NewHub()
	schedCfg := scheduler.DefaultConfig()
	schedCfg.TickInterval = parseDuration(cfg.Scheduler.TickInterval, schedCfg.TickInterval)
	schedCfg.NotifyTimeout = parseDuration(cfg.Scheduler.NotifyTimeout, schedCfg.NotifyTimeout)
	schedCfg.MaxSnooze = parseDuration(cfg.Scheduler.MaxSnooze, schedCfg.MaxSnooze)
	schedCfg.Trace = strings.EqualFold(cfg.Logging.Level, "debug")

	d.Engine = scheduler.New(schedCfg, scheduler.Deps{
		Prefs:     store,
		Idle:      d.Idle,
		Sink:      d.Sink,
		Status:    []domain.StatusPublisher{d.Hub},
		Reminders: append(reminderPubs, d.Hub),
		Messages:  notify.RandomMessage,
	})
	if d.desktop != nil {
		d.desktop.SetActionHandler(d.Engine)
	}

	d.Watcher = prefs.NewWatcher(store, d.Engine.Reload)

	// Health checks
	checks := []health.Check{
		health.FileCheck("preferences", store.Path(), store.Save),
		health.LoopCheck("scheduler", d.Engine.Done()),
	}
	if breaker != nil {
		checks = append(checks, health.BreakerCheck(breaker))
	}
	if d.DB != nil {
		checks = append(checks, health.DatabaseCheck(d.DB))
	}
	d.Health = health.NewChecker(parseDuration(cfg.Telemetry.HealthInterval, health.DefaultInterval), checks...)

	// HTTP API
	srv := api.NewServer(d.Engine, store, d.Hub)
	srv.SetVersion(version)
	srv.SetHealth(d.Health)
	if d.History != nil {
		srv.SetHistory(d.History)
	}
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// Serve listens on the configured address and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Config.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.Config.Addr(), err)
	}
	return d.serve(ctx, ln)
}

// serve runs the scheduler, preferences watcher, health checks, and HTTP
// server until ctx is cancelled, a signal arrives, or one of them fails.
func (d *Daemon) serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// No WriteTimeout: /api/events streams stay open.
		BaseContext: func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error { return d.Engine.Run(gctx) })
	g.Go(func() error {
		if err := d.Watcher.Run(gctx); err != nil {
			log.Printf("[daemon] preferences watcher disabled: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		d.Health.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Printf("[daemon] received %v, shutting down", sig)
		case <-gctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	fmt.Printf("TouchGrass serving on http://%s\n", ln.Addr())
	fmt.Printf("  Idle backend: %s\n", d.Idle.SensorName())
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", ln.Addr())
	}

	return g.Wait()
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Engine != nil {
		d.Engine.Stop()
	}
	if d.desktop != nil {
		_ = d.desktop.Close()
	}
	if d.Idle != nil {
		_ = d.Idle.Close()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.logFile != nil {
		_ = d.logFile.Close()
		log.SetOutput(os.Stderr)
	}
}

// recordStart stamps first and latest start times in the meta table.
func recordStart(db *sqlite.DB) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if first, err := db.GetMeta("first_started_at"); err == nil && first == "" {
		_ = db.SetMeta("first_started_at", now)
	}
	if err := db.SetMeta("last_started_at", now); err != nil {
		log.Printf("[daemon] record start: %v", err)
	}
}

// parseDuration parses a duration string, returning a fallback on error
// or for non-positive values.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
