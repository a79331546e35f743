package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
)

func newTestLock(t *testing.T) (*LockCoordinator, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	path := filepath.Join(t.TempDir(), "instances.lock")
	lock := NewLockCoordinator(path, 5*time.Millisecond, 100*time.Millisecond, logging.NopLogger(), bus)
	return lock, bus
}

func TestLock_WithLockRunsOperation(t *testing.T) {
	lock, _ := newTestLock(t)

	ran := false
	err := lock.WithLock(context.Background(), func() error {
		ran = true

		// The marker exists while the operation runs and records our PID.
		if pid := lock.holderPID(); pid != os.Getpid() {
			t.Errorf("marker PID = %d, want %d", pid, os.Getpid())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error: %v", err)
	}
	if !ran {
		t.Fatal("operation did not run")
	}

	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Error("marker should be removed after the operation completes")
	}
}

func TestLock_ReleasedOnOperationError(t *testing.T) {
	lock, _ := newTestLock(t)

	wantErr := errors.New("operation failed")
	err := lock.WithLock(context.Background(), func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithLock() error = %v, want %v", err, wantErr)
	}

	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Error("marker should be removed even when the operation fails")
	}
}

func TestLock_AbandonedMarkerTakeover(t *testing.T) {
	lock, bus := newTestLock(t)

	takeovers := 0
	bus.Subscribe(event.TypeLockTakeover, func(e event.Event) {
		takeovers++
		if to, ok := e.(event.LockTakeoverEvent); ok && to.HolderPID != 99999 {
			t.Errorf("takeover holder PID = %d, want 99999", to.HolderPID)
		}
	})

	// Pre-create a marker nobody will ever release.
	if err := os.MkdirAll(filepath.Dir(lock.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lock.Path(), []byte("99999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	err := lock.WithLock(context.Background(), func() error { return nil })
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("WithLock() error: %v", err)
	}
	// Acquisition must wait out the ceiling, then succeed promptly.
	if elapsed < 100*time.Millisecond {
		t.Errorf("acquired in %v, should have waited the 100ms ceiling", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("acquired in %v, should complete shortly after the ceiling", elapsed)
	}
	if takeovers != 1 {
		t.Errorf("takeover events = %d, want 1", takeovers)
	}
}

func TestLock_ContextCancelledWhileWaiting(t *testing.T) {
	lock, _ := newTestLock(t)

	if err := os.MkdirAll(filepath.Dir(lock.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lock.Path(), []byte("99999\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := lock.WithLock(ctx, func() error {
		t.Error("operation should not run when the context expires first")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WithLock() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestLock_SerializesWriters(t *testing.T) {
	lock, _ := newTestLock(t)
	other := NewLockCoordinator(lock.Path(), 5*time.Millisecond, time.Second, logging.NopLogger(), event.NewBus())

	var mu sync.Mutex
	inCritical := 0
	maxInCritical := 0

	enter := func() {
		mu.Lock()
		inCritical++
		if inCritical > maxInCritical {
			maxInCritical = inCritical
		}
		mu.Unlock()
	}
	leave := func() {
		mu.Lock()
		inCritical--
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for _, l := range []*LockCoordinator{lock, other, lock, other} {
		wg.Add(1)
		go func(l *LockCoordinator) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				err := l.WithLock(context.Background(), func() error {
					enter()
					time.Sleep(time.Millisecond)
					leave()
					return nil
				})
				if err != nil {
					t.Errorf("WithLock() error: %v", err)
				}
			}
		}(l)
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Errorf("max concurrent critical sections = %d, want 1", maxInCritical)
	}
}
