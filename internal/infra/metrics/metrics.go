// Package metrics provides Prometheus metrics for TouchGrass: reminder
// throughput, idle sensing, scheduler phase, and HTTP control commands.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "touchgrass"

// ─── Reminders ──────────────────────────────────────────────────────────────

// RemindersFired counts reminders handed to the notification sink.
var RemindersFired = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "reminders_fired_total",
	Help:      "Total reminders sent to the notification sink.",
}, []string{"kind"})

// RemindersDeferred counts due reminders held back because the user was away.
var RemindersDeferred = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "reminders_deferred_total",
	Help:      "Total due reminders deferred while the user was idle.",
})

// NotifyFailures counts sink errors.
var NotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "notify_failures_total",
	Help:      "Total notification delivery failures by sink.",
}, []string{"sink"})

// NotifyLatency tracks how long the sink takes to accept a reminder.
var NotifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "notify_latency_seconds",
	Help:      "Time taken by the notification sink to accept a reminder.",
	Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
})

// NotifyFallbacks counts reminders routed to the fallback sink.
var NotifyFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "notify_fallbacks_total",
	Help:      "Total reminders delivered by the fallback sink.",
})

// ─── Idle ───────────────────────────────────────────────────────────────────

// IdleSeconds tracks the latest idle sample.
var IdleSeconds = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "idle_seconds",
	Help:      "Seconds since last user input, as last sampled.",
})

// IdleAvailable is 1 while the idle backend is answering.
var IdleAvailable = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "idle_available",
	Help:      "Whether idle data is currently available (1=yes, 0=no).",
})

// IdleResets counts countdown restarts caused by the user returning.
var IdleResets = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "idle_resets_total",
	Help:      "Total countdown restarts after an idle period.",
})

// ─── Scheduler ──────────────────────────────────────────────────────────────

// SchedulerPhase tracks the timer phase (0=Running, 1=Paused, 2=Snoozed).
var SchedulerPhase = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "scheduler_phase",
	Help:      "Current timer phase (0=Running, 1=Paused, 2=Snoozed).",
})

// SchedulerTicks counts loop evaluations.
var SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "scheduler_ticks_total",
	Help:      "Total scheduler tick evaluations.",
})

// SchedulerCommands counts applied commands by name and outcome.
var SchedulerCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "scheduler_commands_total",
	Help:      "Total scheduler commands by name and result.",
}, []string{"command", "result"})

// SecondsUntilReminder tracks the countdown (0 when paused or snoozed).
var SecondsUntilReminder = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "seconds_until_reminder",
	Help:      "Seconds until the next scheduled reminder.",
})

// ─── Events ─────────────────────────────────────────────────────────────────

// EventSubscribers tracks open status event streams.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "event_subscribers",
	Help:      "Number of connected status event streams.",
})

// PreferenceReloads counts preference changes picked up from disk.
var PreferenceReloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "preference_reloads_total",
	Help:      "Total preference file reloads by result.",
}, []string{"result"})
