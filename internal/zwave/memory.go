package zwave

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryNetwork is an in-process Network implementation. It backs the hub's
// simulation mode (running without a radio attached) and the adapter tests.
// A switch-set command mutates the value and fires the value-changed signal,
// mirroring the asynchronous confirmation of a real controller.
type MemoryNetwork struct {
	mu          sync.RWMutex
	nodes       map[NodeID]*memoryNode
	values      map[ValueID]*Value
	subscribers map[int]ValueChangedFunc
	nextSub     int
	verified    map[ValueID]bool
}

// NewMemoryNetwork creates an empty in-memory network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		nodes:       make(map[NodeID]*memoryNode),
		values:      make(map[ValueID]*Value),
		subscribers: make(map[int]ValueChangedFunc),
		verified:    make(map[ValueID]bool),
	}
}

// AddValue registers a value (creating its node if needed). Used at wiring
// time to describe the simulated devices.
func (n *MemoryNetwork) AddValue(v Value) {
	n.mu.Lock()
	defer n.mu.Unlock()

	node, ok := n.nodes[v.NodeID]
	if !ok {
		node = &memoryNode{id: v.NodeID, network: n}
		n.nodes[v.NodeID] = node
	}
	stored := v
	n.values[v.ID] = &stored
	node.valueIDs = append(node.valueIDs, v.ID)
	n.verified[v.ID] = true
}

// Node implements Network.
func (n *MemoryNetwork) Node(id NodeID) (Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	node, ok := n.nodes[id]
	return node, ok
}

// SetSwitch implements Network. The new payload is applied synchronously and
// the value-changed signal fires before SetSwitch returns.
func (n *MemoryNetwork) SetSwitch(id ValueID, on bool) error {
	n.mu.Lock()
	v, ok := n.values[id]
	if !ok {
		n.mu.Unlock()
		return fmt.Errorf("zwave: no value %d on network", id)
	}
	v.Data = on
	changed := *v
	subs := make([]ValueChangedFunc, 0, len(n.subscribers))
	for _, fn := range n.subscribers {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(changed)
	}
	return nil
}

// RemoveValue drops a value from the network. Used to simulate a device
// disappearing mid-session.
func (n *MemoryNetwork) RemoveValue(id ValueID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.values, id)
}

// SetChangeVerified implements Network.
func (n *MemoryNetwork) SetChangeVerified(id ValueID, verified bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verified[id] = verified
}

// ChangeVerified reports the current debounce setting for a value. Exposed
// for tests asserting adapters disable verification at bind time.
func (n *MemoryNetwork) ChangeVerified(id ValueID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.verified[id]
}

// SubscribeValueChanged implements Network.
func (n *MemoryNetwork) SubscribeValueChanged(fn ValueChangedFunc) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextSub
	n.nextSub++
	n.subscribers[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subscribers, id)
	}
}

// memoryNode implements Node over the network's value table.
type memoryNode struct {
	id       NodeID
	network  *MemoryNetwork
	valueIDs []ValueID
}

func (m *memoryNode) ID() NodeID { return m.id }

func (m *memoryNode) Values(class CommandClass) []Value {
	m.network.mu.RLock()
	defer m.network.mu.RUnlock()

	var out []Value
	for _, id := range m.valueIDs {
		v := m.network.values[id]
		if v != nil && v.CommandClass == class {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
