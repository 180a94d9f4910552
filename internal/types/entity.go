// Package types defines the shared domain types for the Hearth hub: the
// entity model adapters implement, the coded error type used across layers,
// and small cross-cutting interfaces (Clock, SecretString).
package types

import (
	"context"
	"strings"
	"time"
)

// Entity is the minimal contract every integration exposes to the hub.
// The hub owns the entity lifecycle: it calls Update on its polling cycle
// (or when an adapter requests a refresh) and renders State afterwards.
type Entity interface {
	// ID returns the stable entity identifier, e.g. "sensor.forecast_temperature".
	ID() string

	// Name returns the human-readable display name.
	Name() string

	// State returns the last rendered state. The concrete type depends on the
	// entity: numeric for measurements, string for summaries and door states.
	State() any

	// Update refreshes the entity's state from its backing source. Event-driven
	// entities may implement this as a no-op.
	Update(ctx context.Context) error
}

// Measurement is implemented by entities whose state carries a unit.
type Measurement interface {
	UnitOfMeasurement() string
}

// Door is the capability contract for door-like devices. Any entity
// implementing these three operations is dispatchable as a door.
type Door interface {
	Entity

	// IsClosed reports the current door position. The second return value is
	// false when the position cannot be determined from the device.
	IsClosed() (closed bool, ok bool)

	// OpenDoor commands the door open. Fire-and-forget: confirmation arrives
	// asynchronously through the device's change signal.
	OpenDoor(ctx context.Context) error

	// CloseDoor commands the door closed.
	CloseDoor(ctx context.Context) error
}

// AddEntities is the host callback a platform setup invokes with the
// entities it constructed. Setups that fail return an error instead and
// never call it.
type AddEntities func(entities ...Entity)

// StateChange records one observed entity state transition for the recorder.
type StateChange struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id"`
	OldState  string    `json:"old_state"`
	NewState  string    `json:"new_state"`
	ChangedAt time.Time `json:"changed_at"`
}

// Slugify converts a display name into an entity ID fragment:
// lowercase, word characters only, underscores between words.
func Slugify(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}
