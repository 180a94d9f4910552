package garagedoor

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/types"
	"hearth/internal/zwave"
)

const (
	doorNodeID  = zwave.NodeID(2)
	doorValueID = zwave.ValueID(100)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newDoorNetwork builds a memory network carrying one garage door value.
func newDoorNetwork(closed bool) *zwave.MemoryNetwork {
	n := zwave.NewMemoryNetwork()
	n.AddValue(zwave.Value{
		ID:           doorValueID,
		NodeID:       doorNodeID,
		CommandClass: zwave.CommandClassSwitchBinary,
		Index:        0,
		Data:         closed,
	})
	return n
}

// setupDoor runs the platform setup against the network and returns the
// created door entity.
func setupDoor(t *testing.T, network zwave.Network, refresh RefreshFunc) *Door {
	t.Helper()

	var added []types.Entity
	SetupPlatform(network, &zwave.DiscoveryInfo{NodeID: doorNodeID, ValueID: doorValueID},
		func(entities ...types.Entity) { added = append(added, entities...) },
		refresh, testLogger())

	require.Len(t, added, 1)
	door, ok := added[0].(*Door)
	require.True(t, ok)
	return door
}

func TestSetupPlatform_SkipsSilently(t *testing.T) {
	var added []types.Entity
	add := func(entities ...types.Entity) { added = append(added, entities...) }

	// Missing discovery info.
	SetupPlatform(newDoorNetwork(true), nil, add, nil, testLogger())
	assert.Empty(t, added)

	// Missing network.
	SetupPlatform(nil, &zwave.DiscoveryInfo{NodeID: doorNodeID, ValueID: doorValueID}, add, nil, testLogger())
	assert.Empty(t, added)

	// Node not on the network.
	SetupPlatform(zwave.NewMemoryNetwork(), &zwave.DiscoveryInfo{NodeID: doorNodeID, ValueID: doorValueID}, add, nil, testLogger())
	assert.Empty(t, added)
}

func TestSetupPlatform_DisablesChangeVerification(t *testing.T) {
	network := newDoorNetwork(true)
	require.True(t, network.ChangeVerified(doorValueID))

	setupDoor(t, network, nil)
	assert.False(t, network.ChangeVerified(doorValueID))
}

func TestDoor_IsClosed(t *testing.T) {
	network := newDoorNetwork(true)
	door := setupDoor(t, network, nil)

	closed, ok := door.IsClosed()
	require.True(t, ok)
	assert.True(t, closed)
	assert.Equal(t, "closed", door.State())

	require.NoError(t, network.SetSwitch(doorValueID, false))
	closed, ok = door.IsClosed()
	require.True(t, ok)
	assert.False(t, closed)
	assert.Equal(t, "open", door.State())
}

func TestDoor_IsClosedUsesIndexZeroOfBinarySwitchClass(t *testing.T) {
	network := zwave.NewMemoryNetwork()
	// A non-switch value at index 0 and a switch value at index 1 must both
	// be ignored; only the binary-switch value at index 0 counts.
	network.AddValue(zwave.Value{ID: 99, NodeID: doorNodeID, CommandClass: zwave.CommandClass(0x31), Index: 0, Data: 21.5})
	network.AddValue(zwave.Value{ID: 101, NodeID: doorNodeID, CommandClass: zwave.CommandClassSwitchBinary, Index: 1, Data: false})
	network.AddValue(zwave.Value{ID: doorValueID, NodeID: doorNodeID, CommandClass: zwave.CommandClassSwitchBinary, Index: 0, Data: true})

	door := setupDoor(t, network, nil)
	closed, ok := door.IsClosed()
	require.True(t, ok)
	assert.True(t, closed)
}

func TestDoor_IsClosedAbsentWhenNoBinarySwitchValue(t *testing.T) {
	network := zwave.NewMemoryNetwork()
	network.AddValue(zwave.Value{ID: doorValueID, NodeID: doorNodeID, CommandClass: zwave.CommandClass(0x31), Index: 0, Data: 21.5})

	door := setupDoor(t, network, nil)
	_, ok := door.IsClosed()
	assert.False(t, ok)
	assert.Equal(t, "unknown", door.State())
}

func TestDoor_CommandsSetSwitchPayload(t *testing.T) {
	network := newDoorNetwork(false)
	door := setupDoor(t, network, nil)
	ctx := context.Background()

	// IsClosed reads the raw switch payload, so it doubles as the payload
	// probe here: open writes true, close writes false.
	require.NoError(t, door.OpenDoor(ctx))
	closed, ok := door.IsClosed()
	require.True(t, ok)
	assert.True(t, closed)

	require.NoError(t, door.CloseDoor(ctx))
	closed, ok = door.IsClosed()
	require.True(t, ok)
	assert.False(t, closed)
}

func TestDoor_CommandsFailWhenValueGone(t *testing.T) {
	network := newDoorNetwork(true)
	door := setupDoor(t, network, nil)

	network.RemoveValue(doorValueID)
	assert.Error(t, door.OpenDoor(context.Background()))
}

func TestDoor_ValueChangedTriggersRefreshForBoundNodeOnly(t *testing.T) {
	network := newDoorNetwork(true)
	// A second device on the network.
	network.AddValue(zwave.Value{ID: 200, NodeID: 5, CommandClass: zwave.CommandClassSwitchBinary, Index: 0, Data: false})

	var refreshed []string
	door := setupDoor(t, network, func(entityID string) { refreshed = append(refreshed, entityID) })

	// Change on another node is ignored.
	require.NoError(t, network.SetSwitch(200, true))
	assert.Empty(t, refreshed)

	// Change on the bound node triggers a refresh.
	require.NoError(t, network.SetSwitch(doorValueID, false))
	require.Len(t, refreshed, 1)
	assert.Equal(t, door.ID(), refreshed[0])
}

func TestDoor_CloseUnsubscribes(t *testing.T) {
	network := newDoorNetwork(true)

	var refreshed int
	door := setupDoor(t, network, func(string) { refreshed++ })

	door.Close()
	require.NoError(t, network.SetSwitch(doorValueID, false))
	assert.Zero(t, refreshed)
}

func TestDoor_EntityIdentity(t *testing.T) {
	door := setupDoor(t, newDoorNetwork(true), nil)
	assert.Equal(t, "Garage Door", door.Name())
	assert.Equal(t, "garage_door.garage_door", door.ID())
	require.NoError(t, door.Update(context.Background()))
}
