package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "lock.wait_ceiling_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateRegistry()...)
	errors = append(errors, c.validateHeartbeat()...)
	errors = append(errors, c.validateLock()...)
	errors = append(errors, c.validateWatch()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateRegistry() []ValidationError {
	var errors []ValidationError

	if c.Registry.FileName == "" || strings.ContainsAny(c.Registry.FileName, "/\\") {
		errors = append(errors, ValidationError{
			Field:   "registry.file_name",
			Value:   c.Registry.FileName,
			Message: "must be a bare file name",
		})
	}
	if c.Registry.LockFileName == "" || strings.ContainsAny(c.Registry.LockFileName, "/\\") {
		errors = append(errors, ValidationError{
			Field:   "registry.lock_file_name",
			Value:   c.Registry.LockFileName,
			Message: "must be a bare file name",
		})
	}
	if c.Registry.LockFileName == c.Registry.FileName {
		errors = append(errors, ValidationError{
			Field:   "registry.lock_file_name",
			Value:   c.Registry.LockFileName,
			Message: "must differ from registry.file_name",
		})
	}
	if c.Registry.StaleThresholdMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "registry.stale_threshold_ms",
			Value:   c.Registry.StaleThresholdMs,
			Message: "must be positive",
		})
	} else if c.Heartbeat.IntervalMs > 0 && c.Registry.StaleThresholdMs <= c.Heartbeat.IntervalMs {
		// A threshold at or below one heartbeat period evicts healthy peers.
		errors = append(errors, ValidationError{
			Field:   "registry.stale_threshold_ms",
			Value:   c.Registry.StaleThresholdMs,
			Message: "must exceed heartbeat.interval_ms",
		})
	}

	return errors
}

func (c *Config) validateHeartbeat() []ValidationError {
	var errors []ValidationError

	if c.Heartbeat.IntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "heartbeat.interval_ms",
			Value:   c.Heartbeat.IntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLock() []ValidationError {
	var errors []ValidationError

	if c.Lock.PollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "lock.poll_interval_ms",
			Value:   c.Lock.PollIntervalMs,
			Message: "must be positive",
		})
	}
	if c.Lock.WaitCeilingMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "lock.wait_ceiling_ms",
			Value:   c.Lock.WaitCeilingMs,
			Message: "must be positive",
		})
	}
	if c.Lock.PollIntervalMs > 0 && c.Lock.WaitCeilingMs > 0 &&
		c.Lock.PollIntervalMs >= c.Lock.WaitCeilingMs {
		errors = append(errors, ValidationError{
			Field:   "lock.poll_interval_ms",
			Value:   c.Lock.PollIntervalMs,
			Message: "must be smaller than lock.wait_ceiling_ms",
		})
	}
	if c.Lock.Retries < 1 {
		errors = append(errors, ValidationError{
			Field:   "lock.retries",
			Value:   c.Lock.Retries,
			Message: "must be at least 1",
		})
	}
	if c.Lock.BackoffMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "lock.backoff_ms",
			Value:   c.Lock.BackoffMs,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	if !IsValidWatchMode(c.Watch.Mode) {
		errors = append(errors, ValidationError{
			Field:   "watch.mode",
			Value:   c.Watch.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidWatchModes(), ", ")),
		})
	}
	if c.Watch.PollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "watch.poll_interval_ms",
			Value:   c.Watch.PollIntervalMs,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
