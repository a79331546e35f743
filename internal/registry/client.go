package registry

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/rosterdev/roster/internal/config"
	rosterrors "github.com/rosterdev/roster/internal/errors"
	"github.com/rosterdev/roster/internal/event"
	"github.com/rosterdev/roster/internal/logging"
	"github.com/rosterdev/roster/internal/sysinfo"
	"github.com/rosterdev/roster/internal/watch"
)

// State is the client's position in its per-process lifecycle.
type State int

const (
	// StateUnregistered is the initial state.
	StateUnregistered State = iota
	// StateRegistered means the instance has published itself and is
	// heartbeating.
	StateRegistered
	// StateCleanedUp is terminal; a new process run creates a new client.
	StateCleanedUp
)

// Client is the facade through which an instance participates in the
// shared registry: publish self, query live peers, clean up self,
// subscribe to changes.
//
// Public operations absorb transient I/O failures, lock contention and
// file corruption (they log and degrade) rather than surfacing them.
// Permission errors are the exception and are returned to the caller.
type Client struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	store  *Store
	lock   *LockCoordinator
	id     Identity

	workspacePath string
	displayName   string
	providers     []PayloadProvider

	mu         sync.Mutex
	state      State
	heartbeat  *Heartbeat
	notifier   watch.Watcher
	changeSubs map[string]struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithWorkspacePath records the filesystem path this instance operates on.
func WithWorkspacePath(path string) Option {
	return func(c *Client) { c.workspacePath = path }
}

// WithDisplayName overrides the derived human label for this instance.
func WithDisplayName(name string) Option {
	return func(c *Client) { c.displayName = name }
}

// WithPayloadProvider attaches a collaborator whose opaque summary is
// embedded into every publish.
func WithPayloadProvider(p PayloadProvider) Option {
	return func(c *Client) { c.providers = append(c.providers, p) }
}

// NewClient creates a client with a fresh per-run identity. The bus may
// not be nil; it carries change notifications and diagnostics.
func NewClient(cfg *config.Config, logger *logging.Logger, bus *event.Bus, opts ...Option) *Client {
	if logger == nil {
		logger = logging.NopLogger()
	}

	id := NewIdentity()
	logger = logger.WithSession(id.SessionID)

	dir := cfg.Registry.ResolveDir()
	c := &Client{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		store:  NewStore(filepath.Join(dir, cfg.Registry.FileName), logger, bus),
		lock: NewLockCoordinator(
			filepath.Join(dir, cfg.Registry.LockFileName),
			cfg.Lock.PollInterval(),
			cfg.Lock.WaitCeiling(),
			logger,
			bus,
		),
		id:         id,
		changeSubs: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.displayName == "" {
		c.displayName = cfg.Registry.DisplayName
	}
	if c.displayName == "" {
		c.displayName = sysinfo.DisplayName(c.workspacePath)
	}
	return c
}

// SessionID returns this run's session identifier.
func (c *Client) SessionID() string { return c.id.SessionID }

// InstanceID returns this run's sort-order identifier.
func (c *Client) InstanceID() string { return c.id.InstanceID }

// State returns the client's lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Register publishes this instance into the registry and starts the
// heartbeat and change notifier. Repeated calls replace the entry rather
// than duplicating it. Returns ErrClientClosed after Cleanup; a failed
// initial write is logged and left for the heartbeat to repair, except
// for permission errors, which are returned.
func (c *Client) Register(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateCleanedUp {
		c.mu.Unlock()
		return rosterrors.ErrClientClosed
	}
	first := c.state == StateUnregistered
	c.state = StateRegistered
	c.mu.Unlock()

	err := c.withRetry(ctx, func() error { return c.publishSelf(ctx) })
	if err != nil {
		if rosterrors.IsPermission(err) {
			c.logger.Error("cannot write shared registry, check directory permissions",
				"dir", c.cfg.Registry.ResolveDir(),
				"error", err,
			)
			return rosterrors.NewRegistryError("register", err)
		}
		c.logger.Warn("initial registration write failed, heartbeat will retry", "error", err)
	}

	if first {
		c.startHeartbeat()
		c.ensureNotifier()
		if err == nil {
			c.bus.Publish(event.NewInstanceRegisteredEvent(c.id.SessionID, c.displayName))
		}
	}
	return nil
}

// Instances returns the live entries as public views, sorted by instance
// ID. If reaping removed anything, the pruned collection is persisted
// best-effort so other readers converge quickly. It never fails; any
// degradation yields a shorter (possibly empty) list.
func (c *Client) Instances(ctx context.Context) []InstanceView {
	now := time.Now()
	entries := c.store.Read()
	live, removed := Reap(entries, now, c.cfg.Registry.StaleThreshold())

	if removed > 0 {
		if err := c.pruneLocked(ctx); err != nil {
			c.logger.Debug("failed to persist pruned registry", "error", err)
		}
	}

	views := make([]InstanceView, 0, len(live))
	for _, e := range live {
		views = append(views, viewOf(e, now))
	}
	return views
}

// Prune forces a reap-and-persist pass and returns how many entries were
// removed. Used by the CLI; peers converge on the same result on their
// own next read or write.
func (c *Client) Prune(ctx context.Context) int {
	removed := 0
	err := c.lock.WithLock(ctx, func() error {
		entries := c.store.Read()
		var live []Entry
		live, removed = Reap(entries, time.Now(), c.cfg.Registry.StaleThreshold())
		if removed == 0 {
			return nil
		}
		return c.store.Write(live)
	})
	if err != nil {
		c.logger.Warn("prune failed", "error", err)
		return 0
	}
	return removed
}

// Cleanup removes this instance's entry under the lock, stops the
// heartbeat and notifier, and drops change subscriptions. Failure to
// write is non-fatal: peers will reap the stale entry on their next read
// or write. The client is unusable afterwards.
func (c *Client) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateCleanedUp {
		c.mu.Unlock()
		return nil
	}
	wasRegistered := c.state == StateRegistered
	c.state = StateCleanedUp
	hb := c.heartbeat
	notifier := c.notifier
	subs := make([]string, 0, len(c.changeSubs))
	for id := range c.changeSubs {
		subs = append(subs, id)
	}
	c.changeSubs = make(map[string]struct{})
	c.mu.Unlock()

	if hb != nil {
		hb.Stop()
	}
	if notifier != nil {
		notifier.Stop()
	}
	for _, id := range subs {
		c.bus.Unsubscribe(id)
	}

	if !wasRegistered {
		return nil
	}

	err := c.withRetry(ctx, func() error {
		return c.lock.WithLock(ctx, func() error {
			entries := c.store.Read()
			kept := make([]Entry, 0, len(entries))
			for _, e := range entries {
				if e.SessionID != c.id.SessionID {
					kept = append(kept, e)
				}
			}
			kept, _ = Reap(kept, time.Now(), c.cfg.Registry.StaleThreshold())
			return c.store.Write(kept)
		})
	})
	if err != nil {
		c.logger.Warn("cleanup write failed, entry will age out via staleness",
			"error", err,
		)
		return nil
	}

	c.bus.Publish(event.NewInstanceRemovedEvent(c.id.SessionID))
	return nil
}

// OnChange registers a callback invoked whenever the registry file
// changes. Callbacks may fire redundantly, including for this process's
// own writes; treat an invocation purely as "re-query". Returns a
// subscription ID for OffChange.
func (c *Client) OnChange(fn func()) string {
	id := c.bus.Subscribe(event.TypeRegistryChanged, func(event.Event) { fn() })

	c.mu.Lock()
	c.changeSubs[id] = struct{}{}
	c.mu.Unlock()
	return id
}

// OffChange removes a change subscription by ID.
func (c *Client) OffChange(id string) {
	c.mu.Lock()
	delete(c.changeSubs, id)
	c.mu.Unlock()
	c.bus.Unsubscribe(id)
}

// publishSelf merges a fresh snapshot of this instance into the record
// under the lock. Stale peers discovered along the way are dropped in the
// same write.
func (c *Client) publishSelf(ctx context.Context) error {
	snapshot := c.snapshot()
	return c.lock.WithLock(ctx, func() error {
		entries := c.store.Read()
		merged := make([]Entry, 0, len(entries)+1)
		for _, e := range entries {
			if e.SessionID == c.id.SessionID {
				continue
			}
			merged = append(merged, e)
		}
		merged, _ = Reap(merged, time.Now(), c.cfg.Registry.StaleThreshold())
		merged = append(merged, snapshot)
		return c.store.Write(merged)
	})
}

// pruneLocked persists a reaped copy of the record under the lock.
func (c *Client) pruneLocked(ctx context.Context) error {
	return c.lock.WithLock(ctx, func() error {
		entries := c.store.Read()
		live, removed := Reap(entries, time.Now(), c.cfg.Registry.StaleThreshold())
		if removed == 0 {
			return nil
		}
		return c.store.Write(live)
	})
}

// snapshot builds this instance's current entry.
func (c *Client) snapshot() Entry {
	return Entry{
		ProcessID:     c.id.ProcessID,
		SessionID:     c.id.SessionID,
		InstanceID:    c.id.InstanceID,
		DisplayName:   c.displayName,
		WorkspacePath: c.workspacePath,
		LastUpdated:   time.Now().UnixMilli(),
		StartTime:     sysinfo.ProcessStart().UnixMilli(),
		MemoryMB:      sysinfo.MemoryMB(),
		Schema:        SchemaVersion,
		Payloads:      c.collectPayloads(),
	}
}

// collectPayloads gathers collaborator summaries. A failing provider is
// logged and skipped for this snapshot.
func (c *Client) collectPayloads() map[string]json.RawMessage {
	if len(c.providers) == 0 {
		return nil
	}
	payloads := make(map[string]json.RawMessage, len(c.providers))
	for _, p := range c.providers {
		payload, err := p.Payload()
		if err != nil {
			c.logger.Debug("payload provider failed, skipping",
				"provider", p.Name(),
				"error", err,
			)
			continue
		}
		payloads[p.Name()] = payload
	}
	return payloads
}

// withRetry runs fn up to the configured attempt count with linearly
// increasing backoff, absorbing transient filesystem errors distinct from
// lock contention. Non-retryable errors are returned immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Lock.Retries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !rosterrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == c.cfg.Lock.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.cfg.Lock.Backoff()):
		}
	}
	return lastErr
}

// startHeartbeat creates and starts the periodic republish task.
func (c *Client) startHeartbeat() {
	hb := NewHeartbeat(
		c.cfg.Heartbeat.Interval(),
		func() error {
			return c.withRetry(context.Background(), func() error {
				return c.publishSelf(context.Background())
			})
		},
		c.ensureNotifier,
		c.logger,
	)

	c.mu.Lock()
	c.heartbeat = hb
	c.mu.Unlock()
	hb.Start()
}

// ensureNotifier starts the change notifier, or restarts it if it died.
// Called on registration and as a self-healing side effect of a failed
// heartbeat.
func (c *Client) ensureNotifier() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRegistered {
		return
	}
	if c.notifier != nil && c.notifier.Active() {
		return
	}

	notifier, err := watch.New(
		c.store.Path(),
		c.cfg.Watch.Mode,
		c.cfg.Watch.PollInterval(),
		c.logger,
		func() { c.bus.Publish(event.NewRegistryChangedEvent(c.store.Path())) },
	)
	if err != nil {
		c.logger.Warn("failed to create change notifier", "error", err)
		return
	}
	if err := notifier.Start(); err != nil {
		c.logger.Warn("failed to start change notifier", "error", err)
		return
	}
	c.notifier = notifier
}
