package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure and carry no infrastructure dependency.

var (
	// Command errors
	ErrInvalidSnooze = errors.New("snooze duration must be positive")
	ErrInvalidUpdate = errors.New("invalid preferences update")
	ErrInvalidTheme  = errors.New("theme must be \"dark\" or \"light\"")

	// Engine errors
	ErrEngineStopped = errors.New("scheduler engine is not running")

	// Idle sensing errors
	ErrSensorUnavailable = errors.New("idle sensor unavailable")
	ErrNoIdleBackend     = errors.New("no idle backend for this platform")

	// Notification errors
	ErrNotifyFailed = errors.New("notification delivery failed")

	// Preferences errors
	ErrPreferencesCorrupt = errors.New("preferences file is corrupt")
)
