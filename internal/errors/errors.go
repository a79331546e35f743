// Package errors provides centralized error definitions and classification
// helpers for the roster codebase. It defines sentinel errors for the
// registry subsystem, semantic error types, and the retryability
// classification that drives the bounded retry loop around registry writes.
package errors

import (
	"errors"
	"fmt"
	"os"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for the registry subsystem.
var (
	// ErrClientClosed is returned when an operation is attempted on a
	// client that has already been cleaned up.
	ErrClientClosed = errors.New("registry client is closed")

	// ErrNotRegistered is returned when an operation requires a prior
	// successful Register call.
	ErrNotRegistered = errors.New("instance is not registered")

	// ErrLockTimeout indicates the lock wait ceiling was reached. The
	// coordinator resolves it by forced takeover, so it never surfaces
	// from the public API; it exists for logging and tests.
	ErrLockTimeout = errors.New("lock wait ceiling reached")

	// ErrRegistryCorrupt indicates the registry file held content that
	// failed to parse. Reads degrade to an empty collection instead of
	// returning this; it is carried on the diagnostic event.
	ErrRegistryCorrupt = errors.New("registry file is corrupt")

	// ErrWatcherClosed is returned when starting a change notifier that
	// has already been stopped. Stopped notifiers are not restartable;
	// callers create a fresh one instead.
	ErrWatcherClosed = errors.New("change notifier is closed")
)

// RegistryError wraps an error from a registry operation with the
// operation name for context.
type RegistryError struct {
	Op  string // operation, e.g. "register", "heartbeat", "cleanup"
	Err error
}

// NewRegistryError creates a RegistryError wrapping the given error.
func NewRegistryError(op string, err error) *RegistryError {
	return &RegistryError{Op: op, Err: err}
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// IsRetryable reports whether an error is transient and worth retrying.
// Permission errors and programming errors are not retryable; transient
// filesystem failures are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsPermission(err) {
		return false
	}
	if errors.Is(err, ErrClientClosed) || errors.Is(err, ErrNotRegistered) {
		return false
	}
	return true
}

// IsPermission reports whether an error stems from missing filesystem
// permissions. These are the one failure class the registry surfaces to
// callers rather than absorbing.
func IsPermission(err error) bool {
	return errors.Is(err, os.ErrPermission)
}
