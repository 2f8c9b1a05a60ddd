// Package daemon manages the TouchGrass daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API           APIConfig           `toml:"api"`
	Scheduler     SchedulerConfig     `toml:"scheduler"`
	Idle          IdleConfig          `toml:"idle"`
	Notifications NotificationsConfig `toml:"notifications"`
	History       HistoryConfig       `toml:"history"`
	Logging       LoggingConfig       `toml:"logging"`
	Telemetry     TelemetryConfig     `toml:"telemetry"`
}

// APIConfig controls the local HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SchedulerConfig controls the reminder loop.
type SchedulerConfig struct {
	TickInterval  string `toml:"tick_interval"`
	NotifyTimeout string `toml:"notify_timeout"`
	MaxSnooze     string `toml:"max_snooze"`
}

// IdleConfig controls idle detection.
type IdleConfig struct {
	Backend        string `toml:"backend"` // auto, event, poll, none
	SampleInterval string `toml:"sample_interval"`
}

// NotificationsConfig controls how reminders reach the user.
type NotificationsConfig struct {
	Sink    string `toml:"sink"` // desktop, log
	Actions bool   `toml:"actions"`
	AppName string `toml:"app_name"`
	Icon    string `toml:"icon"`
}

// HistoryConfig controls the reminder log.
type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
	Limit   int  `toml:"limit"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"` // info, debug
	File  string `toml:"file"`  // empty = stderr only
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus     bool   `toml:"prometheus"`
	HealthInterval string `toml:"health_interval"`
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 7420,
		},
		Scheduler: SchedulerConfig{
			TickInterval:  "1s",
			NotifyTimeout: "10s",
			MaxSnooze:     "24h",
		},
		Idle: IdleConfig{
			Backend:        "auto",
			SampleInterval: "20s",
		},
		Notifications: NotificationsConfig{
			Sink:    "desktop",
			Actions: true,
			AppName: "TouchGrass",
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus:     true,
			HealthInterval: "60s",
		},
	}
}

// ConfigPath is the location of config.toml.
func ConfigPath() string {
	return filepath.Join(touchgrassHome(), "config.toml")
}

// LoadConfig reads config from ~/.touchgrass/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	return loadConfigFile(ConfigPath())
}

func loadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the daemon cannot start with.
func (c Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("config: api.port %d out of range", c.API.Port)
	}
	switch strings.ToLower(c.Idle.Backend) {
	case "", "auto", "event", "poll", "none":
	default:
		return fmt.Errorf("config: unknown idle.backend %q", c.Idle.Backend)
	}
	switch strings.ToLower(c.Notifications.Sink) {
	case "", "desktop", "log":
	default:
		return fmt.Errorf("config: unknown notifications.sink %q", c.Notifications.Sink)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "info", "debug":
	default:
		return fmt.Errorf("config: unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

// Addr is the API listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// SaveConfig writes the config to ~/.touchgrass/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// touchgrassHome returns the TouchGrass data directory.
func touchgrassHome() string {
	if env := os.Getenv("TOUCHGRASS_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".touchgrass")
}

// Home is exported for use by other packages.
func Home() string {
	return touchgrassHome()
}
