package event

import "time"

// Event type identifiers published on the bus.
const (
	TypeRegistryChanged    = "registry.changed"
	TypeRegistryCorrupt    = "registry.corrupt"
	TypeInstanceRegistered = "instance.registered"
	TypeInstanceRemoved    = "instance.removed"
	TypeLockTakeover       = "lock.takeover"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "registry.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// RegistryChangedEvent is emitted when the registry file changes on disk.
// It carries no diff; consumers must re-query.
type RegistryChangedEvent struct {
	baseEvent
	Path string // Registry file path that changed
}

// NewRegistryChangedEvent creates a RegistryChangedEvent.
func NewRegistryChangedEvent(path string) RegistryChangedEvent {
	return RegistryChangedEvent{
		baseEvent: newBaseEvent(TypeRegistryChanged),
		Path:      path,
	}
}

// RegistryCorruptEvent is emitted at most once per store when a non-empty
// registry file fails to parse. Reads still degrade to an empty
// collection; this event exists so corruption is observable at all.
type RegistryCorruptEvent struct {
	baseEvent
	Path string // Registry file path
	Err  error  // Underlying parse error
}

// NewRegistryCorruptEvent creates a RegistryCorruptEvent.
func NewRegistryCorruptEvent(path string, err error) RegistryCorruptEvent {
	return RegistryCorruptEvent{
		baseEvent: newBaseEvent(TypeRegistryCorrupt),
		Path:      path,
		Err:       err,
	}
}

// InstanceRegisteredEvent is emitted after this process publishes its own
// entry for the first time.
type InstanceRegisteredEvent struct {
	baseEvent
	SessionID   string
	DisplayName string
}

// NewInstanceRegisteredEvent creates an InstanceRegisteredEvent.
func NewInstanceRegisteredEvent(sessionID, displayName string) InstanceRegisteredEvent {
	return InstanceRegisteredEvent{
		baseEvent:   newBaseEvent(TypeInstanceRegistered),
		SessionID:   sessionID,
		DisplayName: displayName,
	}
}

// InstanceRemovedEvent is emitted when this process removes its own entry
// during cleanup.
type InstanceRemovedEvent struct {
	baseEvent
	SessionID string
}

// NewInstanceRemovedEvent creates an InstanceRemovedEvent.
func NewInstanceRemovedEvent(sessionID string) InstanceRemovedEvent {
	return InstanceRemovedEvent{
		baseEvent: newBaseEvent(TypeInstanceRemoved),
		SessionID: sessionID,
	}
}

// LockTakeoverEvent is emitted when the lock coordinator force-removes an
// abandoned lock marker after the wait ceiling.
type LockTakeoverEvent struct {
	baseEvent
	HolderPID int // PID read from the displaced marker; 0 if unreadable
}

// NewLockTakeoverEvent creates a LockTakeoverEvent.
func NewLockTakeoverEvent(holderPID int) LockTakeoverEvent {
	return LockTakeoverEvent{
		baseEvent: newBaseEvent(TypeLockTakeover),
		HolderPID: holderPID,
	}
}
