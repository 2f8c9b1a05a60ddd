package domain

import "context"

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// The scheduler core depends only on these. Adapters live in infra/
// and api/.

// PreferencesStore supplies the reminder configuration and accepts edits.
type PreferencesStore interface {
	// Get returns the current configuration snapshot.
	Get() ReminderConfig

	// Set applies a partial update and echoes the normalized config.
	Set(update PreferencesUpdate) (ReminderConfig, error)

	// Preferences returns the full stored preferences.
	Preferences() Preferences
}

// NotificationSink delivers a reminder to the user.
type NotificationSink interface {
	Fire(ctx context.Context, r Reminder) error
}

// StatusPublisher receives every observable state change.
type StatusPublisher interface {
	Publish(s StatusSnapshot)
}

// ReminderPublisher is optionally implemented by status publishers that
// also want to see fired reminders.
type ReminderPublisher interface {
	PublishReminder(r ReminderRecord)
}
