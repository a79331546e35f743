package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	rosterrors "github.com/rosterdev/roster/internal/errors"
	"github.com/rosterdev/roster/internal/logging"
)

// debounceWindow collapses the burst of events an atomic rename produces
// (create of the temp file, rename, chmod) into one callback.
const debounceWindow = 50 * time.Millisecond

// fsnotifyWatcher watches the registry file's directory with fsnotify and
// filters events to those naming the registry file.
type fsnotifyWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *logging.Logger
	onChange func()

	mu      sync.Mutex
	active  bool
	started bool
	stopCh  chan struct{}
}

// newFsnotifyWatcher creates the watcher and registers the directory.
// The directory is created first so registration cannot race the first
// write.
func newFsnotifyWatcher(path string, logger *logging.Logger, onChange func()) (*fsnotifyWatcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &fsnotifyWatcher{
		path:     path,
		watcher:  fsw,
		logger:   logger,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins delivering change callbacks. A watcher that has been
// stopped cannot be restarted; create a new one instead.
func (w *fsnotifyWatcher) Start() error {
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
	go w.watchLoop()
	return nil
}

// Stop ends watching. Safe to call twice.
func (w *fsnotifyWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active {
		return
	}
	w.active = false
	close(w.stopCh)
	_ = w.watcher.Close()
}

// Active reports whether the event loop is still running.
func (w *fsnotifyWatcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// watchLoop processes filesystem events. Events are debounced: editors
// and atomic renames produce several events per logical change.
func (w *fsnotifyWatcher) watchLoop() {
	defer w.markInactive()

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer
	pending := false

	base := filepath.Base(w.path)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending = true
			debounceTimer.Reset(debounceWindow)

		case <-debounceTimer.C:
			if pending {
				pending = false
				w.onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("watch error", "path", w.path, "error", err)
		}
	}
}

// markInactive flips the active flag when the loop exits for any reason,
// so the heartbeat's self-healing check notices a dead watcher.
func (w *fsnotifyWatcher) markInactive() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = false
}
