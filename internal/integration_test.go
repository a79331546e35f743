// Package internal contains integration tests that verify the refactored
// packages work together correctly. These tests ensure the client facade,
// the shared store, and event bus communication work as expected.
package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
	"github.com/rosterdev/roster/internal/registry"
	"github.com/rosterdev/roster/internal/testutil"
)

// TestEventBusIntegration tests that the event bus correctly routes the
// registry's lifecycle events to subscribers, simulating a UI layer
// observing a client.
func TestEventBusIntegration(t *testing.T) {
	cfg := testutil.TestConfig(t)
	bus := event.NewBus()

	var mu sync.Mutex
	var received []string
	record := func(e event.Event) {
		mu.Lock()
		received = append(received, e.EventType())
		mu.Unlock()
	}

	bus.Subscribe(event.TypeInstanceRegistered, record)
	bus.Subscribe(event.TypeInstanceRemoved, record)

	client := registry.NewClient(cfg, logging.NopLogger(), bus)
	if err := client.Register(context.Background()); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := client.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{event.TypeInstanceRegistered, event.TypeInstanceRemoved}
	if len(received) != len(want) {
		t.Fatalf("received events = %v, want %v", received, want)
	}
	for i, w := range want {
		if received[i] != w {
			t.Errorf("event %d = %q, want %q", i, received[i], w)
		}
	}
}

// TestMultiClientLifecycle exercises the full discovery cycle: several
// clients share one registry directory, see each other, and disappear from
// peers' views after cleanup.
func TestMultiClientLifecycle(t *testing.T) {
	cfg := testutil.TestConfig(t)

	a := registry.NewClient(cfg, logging.NopLogger(), event.NewBus(),
		registry.WithDisplayName("alpha"),
		registry.WithWorkspacePath("/work/alpha"),
	)
	b := registry.NewClient(cfg, logging.NopLogger(), event.NewBus(),
		registry.WithDisplayName("beta"),
		registry.WithWorkspacePath("/work/beta"),
	)
	t.Cleanup(func() {
		_ = a.Cleanup(context.Background())
		_ = b.Cleanup(context.Background())
	})

	for _, c := range []*registry.Client{a, b} {
		if err := c.Register(context.Background()); err != nil {
			t.Fatalf("Register() error: %v", err)
		}
	}

	names := func(views []registry.InstanceView) map[string]bool {
		got := make(map[string]bool, len(views))
		for _, v := range views {
			got[v.DisplayName] = true
		}
		return got
	}

	seen := names(a.Instances(context.Background()))
	if !seen["alpha"] || !seen["beta"] {
		t.Fatalf("client a sees %v, want both alpha and beta", seen)
	}
	seen = names(b.Instances(context.Background()))
	if !seen["alpha"] || !seen["beta"] {
		t.Fatalf("client b sees %v, want both alpha and beta", seen)
	}

	if err := b.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}

	seen = names(a.Instances(context.Background()))
	if seen["beta"] {
		t.Error("client a still sees beta after its cleanup")
	}
	if !seen["alpha"] {
		t.Error("client a lost its own entry")
	}
}

// TestChangeNotificationIntegration verifies a client's change callback
// fires when a peer mutates the shared registry file.
func TestChangeNotificationIntegration(t *testing.T) {
	cfg := testutil.TestConfig(t)

	observer := registry.NewClient(cfg, logging.NopLogger(), event.NewBus())
	t.Cleanup(func() { _ = observer.Cleanup(context.Background()) })
	if err := observer.Register(context.Background()); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	fired := make(chan struct{}, 8)
	observer.OnChange(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	peer := registry.NewClient(cfg, logging.NopLogger(), event.NewBus())
	t.Cleanup(func() { _ = peer.Cleanup(context.Background()) })
	if err := peer.Register(context.Background()); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("observer never received a change notification")
	}
}
