package cart

import (
	"context"
	"time"
)

// EventType is the kind of change a Notifier broadcasts
type EventType string

const (
	// EventStorageChanged fires after the persisted cart changes
	EventStorageChanged EventType = "storage.changed"
	// EventCartChanged fires so views can re-render
	EventCartChanged EventType = "cart.changed"
)

// ChangeEvent describes a cart change.
// Source tags the writer so a listener can ignore its own writes.
// Seq increases with every write of one store; listeners that may receive
// events out of order keep the highest Seq seen and drop older ones.
type ChangeEvent struct {
	Type       EventType
	Source     string
	State      State
	Seq        uint64
	OccurredAt time.Time
}

// Listener receives change events
type Listener func(ctx context.Context, event ChangeEvent)

// Notifier broadcasts cart changes between the local store, the sync manager and views.
type Notifier interface {
	// OnChange registers a listener and returns a func that removes it
	OnChange(listener Listener) (unsubscribe func())
	// Emit delivers the event to every registered listener
	Emit(ctx context.Context, event ChangeEvent)
}
