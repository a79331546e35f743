package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
)

// LockCoordinator provides best-effort, timeout-bounded mutual exclusion
// around read-modify-write cycles on the registry record.
//
// The lock is advisory: a sentinel marker file at a well-known path
// signals "locked". A waiter polls for the marker's absence; if the
// marker outlives the wait ceiling the waiter presumes the holder crashed,
// force-removes the marker and proceeds. That trades a rare interleaved
// write around a takeover for never deadlocking.
type LockCoordinator struct {
	path    string
	poll    time.Duration
	ceiling time.Duration
	logger  *logging.Logger
	bus     *event.Bus
}

// NewLockCoordinator creates a coordinator for the marker file at path.
func NewLockCoordinator(path string, poll, ceiling time.Duration, logger *logging.Logger, bus *event.Bus) *LockCoordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &LockCoordinator{
		path:    path,
		poll:    poll,
		ceiling: ceiling,
		logger:  logger.WithComponent("lock"),
		bus:     bus,
	}
}

// Path returns the lock marker path.
func (l *LockCoordinator) Path() string { return l.path }

// WithLock acquires the marker, runs op, and removes the marker on every
// exit path, including op failure and panic. Acquisition waits at most
// the ceiling before force-taking the lock from its presumed-dead holder.
func (l *LockCoordinator) WithLock(ctx context.Context, op func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return op()
}

// acquire creates the marker with O_EXCL, polling until it succeeds, the
// context is cancelled, or the wait ceiling forces a takeover.
func (l *LockCoordinator) acquire(ctx context.Context) error {
	deadline := time.Now().Add(l.ceiling)

	for {
		err := l.tryCreate()
		if err == nil {
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lock marker: %w", err)
		}

		if time.Now().After(deadline) {
			l.takeover()
			// One more attempt after clearing; a concurrent acquirer
			// may legitimately win this race.
			if err := l.tryCreate(); err == nil {
				return nil
			}
			deadline = time.Now().Add(l.ceiling)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

// tryCreate attempts to create the marker exclusively, writing this
// process's PID into it as diagnostic text.
func (l *LockCoordinator) tryCreate() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(l.path)
		return err
	}
	return nil
}

// takeover force-removes an abandoned marker. The recorded PID is read
// for the log only; liveness of the holder is deliberately not verified.
func (l *LockCoordinator) takeover() {
	holderPID := l.holderPID()
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("failed to remove abandoned lock marker",
			"path", l.path,
			"error", err,
		)
		return
	}
	l.logger.Warn("lock wait ceiling reached, took over abandoned lock",
		"path", l.path,
		"holder_pid", holderPID,
	)
	if l.bus != nil {
		l.bus.Publish(event.NewLockTakeoverEvent(holderPID))
	}
}

// holderPID reads the PID recorded in the marker, or 0 if unreadable.
func (l *LockCoordinator) holderPID() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// release removes the marker. Missing markers are tolerated: another
// process may have force-taken the lock while op ran.
func (l *LockCoordinator) release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.logger.Warn("failed to release lock marker",
			"path", l.path,
			"error", err,
		)
	}
}
