// Package domain holds the pure types shared by the TouchGrass engine,
// its adapters, and its outer surfaces.
package domain

import (
	"fmt"
	"time"
)

// Preference bounds. Values outside are clamped, never rejected.
const (
	DefaultIntervalMinutes = 30
	MinIntervalMinutes     = 2
	MaxIntervalMinutes     = 240

	DefaultIdleThresholdMinutes = 2
	MinIdleThresholdMinutes     = 1
	MaxIdleThresholdMinutes     = 30
)

// ThemeMode is the UI theme stored alongside the reminder settings.
type ThemeMode string

const (
	ThemeDark  ThemeMode = "dark"
	ThemeLight ThemeMode = "light"
)

// ParseThemeMode validates a theme name.
func ParseThemeMode(s string) (ThemeMode, error) {
	switch ThemeMode(s) {
	case ThemeDark, ThemeLight:
		return ThemeMode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Preferences is the user-editable configuration persisted by the
// preferences store.
type Preferences struct {
	IntervalMinutes      uint32    `toml:"interval_minutes" json:"intervalMinutes"`
	ActivityDetection    bool      `toml:"activity_detection" json:"activityDetection"`
	SoundEnabled         bool      `toml:"sound_enabled" json:"soundEnabled"`
	AutostartEnabled     bool      `toml:"autostart_enabled" json:"autostartEnabled"`
	Theme                ThemeMode `toml:"theme" json:"theme"`
	IdleThresholdMinutes uint32    `toml:"idle_threshold_minutes" json:"idleThresholdMinutes"`
}

// DefaultPreferences returns first-run settings.
func DefaultPreferences() Preferences {
	return Preferences{
		IntervalMinutes:      DefaultIntervalMinutes,
		ActivityDetection:    true,
		SoundEnabled:         true,
		AutostartEnabled:     true,
		Theme:                ThemeDark,
		IdleThresholdMinutes: DefaultIdleThresholdMinutes,
	}
}

// Normalize clamps numeric fields into range and repairs an unknown theme.
func (p Preferences) Normalize() Preferences {
	p.IntervalMinutes = clamp(p.IntervalMinutes, MinIntervalMinutes, MaxIntervalMinutes)
	p.IdleThresholdMinutes = clamp(p.IdleThresholdMinutes, MinIdleThresholdMinutes, MaxIdleThresholdMinutes)
	if _, err := ParseThemeMode(string(p.Theme)); err != nil {
		p.Theme = ThemeDark
	}
	return p
}

// Apply merges an update into p and returns the normalized result.
// Only the theme can make an update invalid; numbers are clamped.
func (p Preferences) Apply(u PreferencesUpdate) (Preferences, error) {
	if err := u.Validate(); err != nil {
		return p, err
	}
	if u.IntervalMinutes != nil {
		p.IntervalMinutes = *u.IntervalMinutes
	}
	if u.ActivityDetection != nil {
		p.ActivityDetection = *u.ActivityDetection
	}
	if u.SoundEnabled != nil {
		p.SoundEnabled = *u.SoundEnabled
	}
	if u.AutostartEnabled != nil {
		p.AutostartEnabled = *u.AutostartEnabled
	}
	if u.Theme != nil {
		p.Theme = *u.Theme
	}
	if u.IdleThresholdMinutes != nil {
		p.IdleThresholdMinutes = *u.IdleThresholdMinutes
	}
	return p.Normalize(), nil
}

// ReminderConfig derives the scheduler's view of the preferences.
func (p Preferences) ReminderConfig() ReminderConfig {
	p = p.Normalize()
	return ReminderConfig{
		Interval:          time.Duration(p.IntervalMinutes) * time.Minute,
		ActivityDetection: p.ActivityDetection,
		IdleThreshold:     time.Duration(p.IdleThresholdMinutes) * time.Minute,
		PlaySound:         p.SoundEnabled,
	}
}

// PreferencesUpdate is a partial change. Nil fields are left untouched.
type PreferencesUpdate struct {
	IntervalMinutes      *uint32    `json:"intervalMinutes,omitempty"`
	ActivityDetection    *bool      `json:"activityDetection,omitempty"`
	SoundEnabled         *bool      `json:"soundEnabled,omitempty"`
	AutostartEnabled     *bool      `json:"autostartEnabled,omitempty"`
	Theme                *ThemeMode `json:"theme,omitempty"`
	IdleThresholdMinutes *uint32    `json:"idleThresholdMinutes,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u PreferencesUpdate) IsEmpty() bool {
	return u.IntervalMinutes == nil && u.ActivityDetection == nil &&
		u.SoundEnabled == nil && u.AutostartEnabled == nil &&
		u.Theme == nil && u.IdleThresholdMinutes == nil
}

// Validate rejects updates that cannot be clamped into a valid state.
func (u PreferencesUpdate) Validate() error {
	if u.Theme != nil {
		if _, err := ParseThemeMode(string(*u.Theme)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
		}
	}
	return nil
}

// ReminderConfig is the immutable snapshot the timer evaluates against.
type ReminderConfig struct {
	Interval          time.Duration
	ActivityDetection bool
	IdleThreshold     time.Duration
	PlaySound         bool
}

// IdleThresholdSeconds returns the threshold in whole seconds, the unit
// idle samples are reported in.
func (c ReminderConfig) IdleThresholdSeconds() uint64 {
	return uint64(c.IdleThreshold / time.Second)
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
