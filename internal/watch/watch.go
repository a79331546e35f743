// Package watch raises a local callback when the shared registry file
// changes, so consumers can refresh without polling the registry
// themselves.
//
// The file is replaced via atomic rename, which some platforms cannot
// reliably observe when watching the file directly, so the native
// implementation watches the containing directory and filters events by
// file name. A polling implementation backs it up for filesystems without
// usable change events (certain network mounts); selection is by
// capability or forced through configuration.
package watch

import (
	"fmt"
	"time"

	"github.com/rosterdev/roster/internal/logging"
)

// Watcher observes one logical resource and invokes a callback on change.
// A callback signals only "re-query"; it carries no diff, and callers must
// tolerate redundant invocations (self-originated writes are not filtered).
type Watcher interface {
	// Start begins watching. It is an error to start a stopped watcher.
	Start() error
	// Stop ends watching and releases resources. Safe to call twice.
	Stop()
	// Active reports whether the watcher is currently delivering events.
	Active() bool
}

// Modes selecting the watcher implementation.
const (
	ModeAuto     = "auto"
	ModeFsnotify = "fsnotify"
	ModePoll     = "poll"
)

// New creates a Watcher for the file at path. Mode ModeAuto prefers the
// native implementation and falls back to polling if it cannot start.
func New(path, mode string, pollInterval time.Duration, logger *logging.Logger, onChange func()) (Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("notifier")

	switch mode {
	case ModeFsnotify:
		return newFsnotifyWatcher(path, logger, onChange)
	case ModePoll:
		return newPollWatcher(path, pollInterval, logger, onChange), nil
	case ModeAuto, "":
		w, err := newFsnotifyWatcher(path, logger, onChange)
		if err != nil {
			logger.Warn("native file watching unavailable, falling back to polling",
				"path", path,
				"error", err,
			)
			return newPollWatcher(path, pollInterval, logger, onChange), nil
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown watch mode %q", mode)
	}
}
