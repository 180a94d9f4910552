// Package garagedoor exposes a Z-Wave binary-switch-controlled garage door
// as a door entity. The adapter binds to one device value supplied by
// discovery, issues fire-and-forget switch-set commands, and re-renders its
// state whenever the device's node reports any value change.
package garagedoor

import (
	"context"
	"log/slog"

	"hearth/internal/types"
	"hearth/internal/zwave"
)

// RefreshFunc asks the hub to refresh and re-render one entity's state.
type RefreshFunc func(entityID string)

// Door is the garage door entity bound to one Z-Wave value.
type Door struct {
	network zwave.Network
	nodeID  zwave.NodeID
	valueID zwave.ValueID
	name    string

	requestRefresh RefreshFunc
	unsubscribe    func()
	logger         *slog.Logger
}

// SetupPlatform binds a garage door to the device value named by the
// discovery info and hands the entity to the hub. A missing discovery info,
// network, or node is skipped silently: no entity, no error.
func SetupPlatform(
	network zwave.Network,
	discovery *zwave.DiscoveryInfo,
	add types.AddEntities,
	refresh RefreshFunc,
	logger *slog.Logger,
) {
	if discovery == nil || network == nil {
		return
	}

	node, ok := network.Node(discovery.NodeID)
	if !ok {
		return
	}

	// Every change should render; debouncing would swallow the
	// asynchronous confirmation of open/close commands.
	network.SetChangeVerified(discovery.ValueID, false)

	door := &Door{
		network:        network,
		nodeID:         node.ID(),
		valueID:        discovery.ValueID,
		name:           "Garage Door",
		requestRefresh: refresh,
		logger:         logger,
	}
	door.unsubscribe = network.SubscribeValueChanged(door.valueChanged)

	add(door)
}

// ID implements types.Entity.
func (d *Door) ID() string {
	return "garage_door." + types.Slugify(d.name)
}

// Name implements types.Entity.
func (d *Door) Name() string { return d.name }

// State implements types.Entity, rendering the door position as a string.
func (d *Door) State() any {
	closed, ok := d.IsClosed()
	switch {
	case !ok:
		return "unknown"
	case closed:
		return "closed"
	default:
		return "open"
	}
}

// Update implements types.Entity. The door is event-driven: state renders
// from the live value table, so the polling hook has nothing to fetch.
func (d *Door) Update(ctx context.Context) error { return nil }

// IsClosed scans the bound node's binary-switch values and returns the
// payload of the value at index 0. ok is false when the node is gone or
// carries no such value.
func (d *Door) IsClosed() (bool, bool) {
	node, ok := d.network.Node(d.nodeID)
	if !ok {
		return false, false
	}
	for _, v := range node.Values(zwave.CommandClassSwitchBinary) {
		if v.Index == 0 {
			return v.Bool(), true
		}
	}
	return false, false
}

// OpenDoor commands the door open. Fire-and-forget: confirmation arrives via
// the value-changed signal.
func (d *Door) OpenDoor(ctx context.Context) error {
	return d.network.SetSwitch(d.valueID, true)
}

// CloseDoor commands the door closed.
func (d *Door) CloseDoor(ctx context.Context) error {
	return d.network.SetSwitch(d.valueID, false)
}

// valueChanged handles the network-wide value-changed signal. Any change on
// the bound node triggers a refresh; there is no filtering by value ID.
func (d *Door) valueChanged(v zwave.Value) {
	if v.NodeID != d.nodeID {
		return
	}
	d.logger.Debug("value changed on bound node", "node", v.NodeID, "value", v.ID)
	if d.requestRefresh != nil {
		d.requestRefresh(d.ID())
	}
}

// Close unsubscribes the adapter from the network signal.
func (d *Door) Close() {
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
}
