// Package config defines roster's configuration, loaded through viper
// from a YAML file and ROSTER_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete roster configuration
type Config struct {
	Registry  RegistryConfig  `mapstructure:"registry"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Lock      LockConfig      `mapstructure:"lock"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RegistryConfig controls where the shared registry lives and how entries
// age out.
type RegistryConfig struct {
	// Dir is the directory holding the registry and lock files.
	// Empty means the per-OS default (see DefaultDir).
	Dir string `mapstructure:"dir"`
	// FileName is the registry file name within Dir
	FileName string `mapstructure:"file_name"`
	// LockFileName is the advisory lock marker name within Dir
	LockFileName string `mapstructure:"lock_file_name"`
	// StaleThresholdMs is the maximum age of an entry's last_updated
	// before it is considered dead (default: 15000, three heartbeats)
	StaleThresholdMs int `mapstructure:"stale_threshold_ms"`
	// DisplayName overrides the derived human label for this instance
	DisplayName string `mapstructure:"display_name"`
}

// HeartbeatConfig controls the periodic republish of this instance's entry
type HeartbeatConfig struct {
	// IntervalMs is the republish period (default: 5000)
	IntervalMs int `mapstructure:"interval_ms"`
}

// LockConfig controls the advisory lock protocol around registry writes
type LockConfig struct {
	// PollIntervalMs is how often a waiter re-checks the marker (default: 50)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// WaitCeilingMs is the maximum wait before a marker is treated as
	// abandoned and force-removed (default: 5000)
	WaitCeilingMs int `mapstructure:"wait_ceiling_ms"`
	// Retries is how many times a locked write is attempted before
	// giving up for this cycle (default: 5)
	Retries int `mapstructure:"retries"`
	// BackoffMs is the base of the linear backoff between attempts
	// (default: 100; attempt n sleeps n*BackoffMs)
	BackoffMs int `mapstructure:"backoff_ms"`
}

// WatchConfig controls change notification
type WatchConfig struct {
	// Mode selects the watcher implementation: "auto", "fsnotify", or "poll".
	// "auto" prefers fsnotify and falls back to polling if it cannot start.
	Mode string `mapstructure:"mode"`
	// PollIntervalMs is the polling watcher's check period (default: 500)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is where the log file is written; empty means stderr
	Dir string `mapstructure:"dir"`
}

// StaleThreshold returns the staleness threshold as a time.Duration
func (r *RegistryConfig) StaleThreshold() time.Duration {
	return time.Duration(r.StaleThresholdMs) * time.Millisecond
}

// Interval returns the heartbeat interval as a time.Duration
func (h *HeartbeatConfig) Interval() time.Duration {
	return time.Duration(h.IntervalMs) * time.Millisecond
}

// PollInterval returns the lock poll interval as a time.Duration
func (l *LockConfig) PollInterval() time.Duration {
	return time.Duration(l.PollIntervalMs) * time.Millisecond
}

// WaitCeiling returns the lock wait ceiling as a time.Duration
func (l *LockConfig) WaitCeiling() time.Duration {
	return time.Duration(l.WaitCeilingMs) * time.Millisecond
}

// Backoff returns the base retry backoff as a time.Duration
func (l *LockConfig) Backoff() time.Duration {
	return time.Duration(l.BackoffMs) * time.Millisecond
}

// PollInterval returns the watch poll interval as a time.Duration
func (w *WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

// ResolveDir returns the directory holding the registry files, applying
// the per-OS default and ~ expansion.
func (r *RegistryConfig) ResolveDir() string {
	if r.Dir == "" {
		return DefaultDir()
	}

	path := r.Dir
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// DefaultDir returns the well-known per-OS location of the shared
// registry: %ProgramData%\roster on Windows-family systems, and a roster
// directory under the system temp dir on POSIX-family systems. Every
// instance on the machine must resolve the same path for discovery to
// work, so user-scoped locations are deliberately avoided.
func DefaultDir() string {
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			return filepath.Join(pd, "roster")
		}
	}
	return filepath.Join(os.TempDir(), "roster")
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			Dir:              "", // Empty means DefaultDir()
			FileName:         "instances.json",
			LockFileName:     "instances.lock",
			StaleThresholdMs: 15000, // Three missed heartbeats
			DisplayName:      "",
		},
		Heartbeat: HeartbeatConfig{
			IntervalMs: 5000,
		},
		Lock: LockConfig{
			PollIntervalMs: 50,
			WaitCeilingMs:  5000,
			Retries:        5,
			BackoffMs:      100,
		},
		Watch: WatchConfig{
			Mode:           "auto",
			PollIntervalMs: 500,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("registry.dir", defaults.Registry.Dir)
	viper.SetDefault("registry.file_name", defaults.Registry.FileName)
	viper.SetDefault("registry.lock_file_name", defaults.Registry.LockFileName)
	viper.SetDefault("registry.stale_threshold_ms", defaults.Registry.StaleThresholdMs)
	viper.SetDefault("registry.display_name", defaults.Registry.DisplayName)

	viper.SetDefault("heartbeat.interval_ms", defaults.Heartbeat.IntervalMs)

	viper.SetDefault("lock.poll_interval_ms", defaults.Lock.PollIntervalMs)
	viper.SetDefault("lock.wait_ceiling_ms", defaults.Lock.WaitCeilingMs)
	viper.SetDefault("lock.retries", defaults.Lock.Retries)
	viper.SetDefault("lock.backoff_ms", defaults.Lock.BackoffMs)

	viper.SetDefault("watch.mode", defaults.Watch.Mode)
	viper.SetDefault("watch.poll_interval_ms", defaults.Watch.PollIntervalMs)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "roster")
	}
	// Fall back to ~/.config/roster
	home, err := os.UserHomeDir()
	if err != nil {
		return ".roster"
	}
	return filepath.Join(home, ".config", "roster")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidWatchModes returns the list of valid watch.mode values
func ValidWatchModes() []string {
	return []string{"auto", "fsnotify", "poll"}
}

// IsValidWatchMode checks if the given mode is valid
func IsValidWatchMode(mode string) bool {
	for _, valid := range ValidWatchModes() {
		if mode == valid {
			return true
		}
	}
	return false
}
