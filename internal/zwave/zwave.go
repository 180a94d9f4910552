// Package zwave models the slice of the Z-Wave value model the hub's device
// adapters consume: nodes, typed values addressed by network identifiers, a
// switch-set command, and a value-changed signal. The radio stack itself is
// an external collaborator; Network is the explicit dependency adapters
// receive instead of a process-wide singleton.
package zwave

// CommandClass is a Z-Wave protocol category tag identifying a value's semantics.
type CommandClass uint8

// CommandClassSwitchBinary identifies binary-switch values (0x25 = 37).
const CommandClassSwitchBinary CommandClass = 0x25

// NodeID addresses one physical device on the network.
type NodeID uint8

// ValueID addresses one exposed data point of a node.
type ValueID uint64

// Value is a snapshot of one data point on a node. Adapters hold the
// addressing identifiers, never the value itself; the network owns the data.
type Value struct {
	ID           ValueID
	NodeID       NodeID
	CommandClass CommandClass
	Index        int
	Data         any
}

// Bool returns the value payload as a boolean, false when the payload is not
// a boolean.
func (v Value) Bool() bool {
	b, _ := v.Data.(bool)
	return b
}

// Node exposes read access to one device's values.
type Node interface {
	// ID returns the node's network address.
	ID() NodeID

	// Values returns the node's values filtered to the given command class,
	// ordered by value index ascending.
	Values(class CommandClass) []Value
}

// ValueChangedFunc is invoked on every value-changed event on the network,
// regardless of node. Handlers filter by node themselves.
type ValueChangedFunc func(Value)

// Network is the adapter-facing contract of the Z-Wave controller.
type Network interface {
	// Node looks up a node by its address. ok is false when the node is not
	// (or no longer) part of the network.
	Node(id NodeID) (Node, bool)

	// SetSwitch issues a binary switch-set command against a value.
	// Fire-and-forget: the result arrives via the value-changed signal.
	SetSwitch(id ValueID, on bool) error

	// SetChangeVerified toggles automatic change-debouncing on a value.
	// Adapters that render every change disable it at bind time.
	SetChangeVerified(id ValueID, verified bool)

	// SubscribeValueChanged registers a handler for the network-wide
	// value-changed signal and returns an unsubscribe function.
	SubscribeValueChanged(fn ValueChangedFunc) (unsubscribe func())
}

// DiscoveryInfo carries the addressing identifiers the hub hands a platform
// at discovery time.
type DiscoveryInfo struct {
	NodeID  NodeID
	ValueID ValueID
}
