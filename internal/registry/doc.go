// Package registry implements the shared-file instance registry protocol:
// independent, unsynchronized processes on one machine publish their own
// state into a common on-disk record, discover each other, evict dead
// peers, and avoid corrupting the record under concurrent access.
//
// # Architecture
//
// The record is a JSON array of [Entry] values at a well-known per-OS
// path. [Store] replaces it via write-to-temp-then-atomic-rename, so
// readers observe either the previous or the new complete content.
// [LockCoordinator] serializes read-modify-write cycles across processes
// with an advisory sentinel file; a waiter that outlasts the wait ceiling
// force-takes the lock from its presumed-dead holder, trading a rare
// interleaved write for never deadlocking. [Reap] drops entries whose
// heartbeat aged past the staleness threshold. [Heartbeat] republishes
// this process's entry every interval, and [Client] ties the pieces
// together behind a small facade.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	client := registry.NewClient(cfg, logger, bus,
//		registry.WithWorkspacePath("/proj1"))
//
//	// Publish self and start heartbeating.
//	err := client.Register(ctx)
//
//	// Who else is running?
//	peers := client.Instances(ctx)
//
//	// Refresh on peer changes instead of polling.
//	id := client.OnChange(func() { refresh() })
//	defer client.OffChange(id)
//
//	// Graceful shutdown; a crash is fine too, peers reap stale entries.
//	err = client.Cleanup(ctx)
//
// # Failure Model
//
// Peers are cooperative but may crash or stall. Every public operation
// degrades instead of failing: corrupt or missing files read as empty,
// transient write errors are retried then skipped until the next
// heartbeat, and an entry whose process died is removed by whichever
// peer next reads or writes the record. Permission errors are the one
// class surfaced to callers.
package registry
