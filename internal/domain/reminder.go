package domain

import "time"

// ReminderKind distinguishes timer-driven reminders from manual previews.
type ReminderKind string

const (
	ReminderScheduled ReminderKind = "scheduled"
	ReminderPreview   ReminderKind = "preview"
)

// Reminder is one notification handed to the sink.
type Reminder struct {
	ID        string       `json:"id"`
	Kind      ReminderKind `json:"kind"`
	Message   string       `json:"message"`
	PlaySound bool         `json:"playSound"`
	At        time.Time    `json:"at"`
}

// ReminderRecord is a delivered (or failed) reminder kept in history.
type ReminderRecord struct {
	Reminder
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// StatusSnapshot is the externally visible scheduler state.
type StatusSnapshot struct {
	Paused             bool       `json:"paused"`
	SnoozedUntil       *time.Time `json:"snoozedUntil"`
	NextTriggerAt      *time.Time `json:"nextTriggerAt"`
	LastNotificationAt *time.Time `json:"lastNotificationAt"`
	IdleSeconds        *uint64    `json:"idleSeconds"`
}

// Equal compares two snapshots by value.
func (s StatusSnapshot) Equal(o StatusSnapshot) bool {
	return s.Paused == o.Paused &&
		timePtrEqual(s.SnoozedUntil, o.SnoozedUntil) &&
		timePtrEqual(s.NextTriggerAt, o.NextTriggerAt) &&
		timePtrEqual(s.LastNotificationAt, o.LastNotificationAt) &&
		uintPtrEqual(s.IdleSeconds, o.IdleSeconds)
}

// State names the snapshot's phase for display.
func (s StatusSnapshot) State() string {
	switch {
	case s.Paused:
		return "paused"
	case s.SnoozedUntil != nil:
		return "snoozed"
	default:
		return "running"
	}
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func uintPtrEqual(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ReminderSummary counts reminders fired since a point in time.
type ReminderSummary struct {
	Since     time.Time `json:"since"`
	Scheduled int       `json:"scheduled"`
	Previews  int       `json:"previews"`
	Failed    int       `json:"failed"`
}

// EngineStats are cumulative scheduler counters since the daemon started.
type EngineStats struct {
	Ticks          int64 `json:"ticks"`
	Fired          int64 `json:"fired"`
	Previews       int64 `json:"previews"`
	Deferrals      int64 `json:"deferrals"`
	IdleResets     int64 `json:"idleResets"`
	NotifyFailures int64 `json:"notifyFailures"`
	Commands       int64 `json:"commands"`
}
