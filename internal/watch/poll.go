package watch

import (
	"os"
	"sync"
	"time"

	rosterrors "github.com/rosterdev/roster/internal/errors"
	"github.com/rosterdev/roster/internal/logging"
)

// pollWatcher detects registry changes by comparing the file's
// modification time and size at a fixed interval. It is the fallback for
// filesystems whose change events are unreliable or unavailable.
type pollWatcher struct {
	path     string
	interval time.Duration
	logger   *logging.Logger
	onChange func()

	mu      sync.Mutex
	active  bool
	started bool
	stopCh  chan struct{}

	lastMod  time.Time
	lastSize int64
	existed  bool
}

func newPollWatcher(path string, interval time.Duration, logger *logging.Logger, onChange func()) *pollWatcher {
	return &pollWatcher{
		path:     path,
		interval: interval,
		logger:   logger,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}
}

// Start snapshots the file's current state and begins polling. A watcher
// that has been stopped cannot be restarted; create a new one instead.
func (w *pollWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		if !w.active {
			return rosterrors.ErrWatcherClosed
		}
		return nil
	}
	w.started = true
	w.active = true
	w.lastMod, w.lastSize, w.existed = w.stat()
	go w.pollLoop()
	return nil
}

// Stop ends polling. Safe to call twice.
func (w *pollWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active {
		return
	}
	w.active = false
	close(w.stopCh)
}

// Active reports whether the poll loop is running.
func (w *pollWatcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *pollWatcher) pollLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.check() {
				w.onChange()
			}
		}
	}
}

// check reports whether the file changed since the last poll and records
// the new state. Creation and deletion both count as changes.
func (w *pollWatcher) check() bool {
	mod, size, exists := w.stat()

	w.mu.Lock()
	defer w.mu.Unlock()

	changed := exists != w.existed || mod != w.lastMod || size != w.lastSize
	w.lastMod, w.lastSize, w.existed = mod, size, exists
	return changed
}

func (w *pollWatcher) stat() (time.Time, int64, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}, 0, false
	}
	return info.ModTime(), info.Size(), true
}
