package zone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func market() core.ZoneConfig {
	return core.ZoneConfig{
		ID:     "market",
		Name:   "Market",
		Bounds: core.Bounds{X: 10, Y: 10, Width: 6, Height: 4},
		ParkingZones: []core.GridCoordinate{
			{X: 11, Y: 12}, {X: 13, Y: 12}, {X: 15, Y: 13},
		},
	}
}

func TestRegister_Validation(t *testing.T) {
	ix := NewIndex(48, 48)
	require.NoError(t, ix.Register(market()))

	tests := []struct {
		name string
		z    core.ZoneConfig
		want string
	}{
		{"no id", core.ZoneConfig{Bounds: core.Bounds{Width: 1, Height: 1}}, "without id"},
		{"duplicate", market(), "duplicate"},
		{"empty bounds", core.ZoneConfig{ID: "a"}, "empty bounds"},
		{"off grid", core.ZoneConfig{ID: "a", Bounds: core.Bounds{X: 45, Y: 0, Width: 4, Height: 1}}, "outside the 48x48 grid"},
		{"bad tile", core.ZoneConfig{ID: "a", Bounds: core.Bounds{Width: 1, Height: 1}, TileKind: "lava"}, "unknown tile kind"},
		{"anchor outside", core.ZoneConfig{
			ID: "a", Bounds: core.Bounds{X: 0, Y: 0, Width: 2, Height: 2},
			ParkingZones: []core.GridCoordinate{{X: 2, Y: 0}},
		}, "outside bounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ix.Register(tt.z)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Len(t, ix.Zones(), 1)
}

func TestZoneContaining_EarliestWins(t *testing.T) {
	ix := NewIndex(48, 48)
	require.NoError(t, ix.Register(core.ZoneConfig{ID: "big", Bounds: core.Bounds{X: 0, Y: 0, Width: 20, Height: 20}}))
	require.NoError(t, ix.Register(core.ZoneConfig{ID: "small", Bounds: core.Bounds{X: 5, Y: 5, Width: 2, Height: 2}}))

	z, ok := ix.ZoneContaining(5.5, 5.5)
	require.True(t, ok)
	assert.Equal(t, "big", z.ID)

	_, ok = ix.ZoneContaining(30, 30)
	assert.False(t, ok)
}

func TestParkingSlotsOf(t *testing.T) {
	ix := NewIndex(48, 48)
	require.NoError(t, ix.Register(market()))

	slots, err := ix.ParkingSlotsOf("market")
	require.NoError(t, err)
	assert.Equal(t, market().ParkingZones, slots)

	slots[0].X = 99
	again, err := ix.ParkingSlotsOf("market")
	require.NoError(t, err)
	assert.Equal(t, 11.0, again[0].X, "callers cannot mutate the index")

	_, err = ix.ParkingSlotsOf("nowhere")
	assert.ErrorIs(t, err, ErrUnknownZone)
}

func TestNearestFreeSlot(t *testing.T) {
	ix := NewIndex(48, 48)
	require.NoError(t, ix.Register(market()))

	slot, ok, err := ix.NearestFreeSlot("market", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.GridCoordinate{X: 11, Y: 12}, slot)

	slot, ok, err = ix.NearestFreeSlot("market", []core.GridCoordinate{{X: 11, Y: 12}, {X: 0, Y: 0}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.GridCoordinate{X: 13, Y: 12}, slot)

	_, ok, err = ix.NearestFreeSlot("market", market().ParkingZones)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ix.NearestFreeSlot("nowhere", nil)
	assert.ErrorIs(t, err, ErrUnknownZone)
}

func TestNearestFreeSlot_Deterministic(t *testing.T) {
	ix := NewIndex(48, 48)
	require.NoError(t, ix.Register(market()))
	occupied := []core.GridCoordinate{{X: 13, Y: 12}}

	first, _, _ := ix.NearestFreeSlot("market", occupied)
	for i := 0; i < 20; i++ {
		got, _, _ := ix.NearestFreeSlot("market", occupied)
		assert.Equal(t, first, got)
	}
}

func TestLoadDefaultLayout(t *testing.T) {
	ix := NewIndex(48, 48)
	require.NoError(t, ix.LoadDefaultLayout())

	assert.True(t, ix.Has("depot"))
	assert.True(t, ix.Has("market"))

	depot, err := ix.Get("depot")
	require.NoError(t, err)
	assert.Equal(t, core.TileAsphalt, depot.TileKind)
	assert.Equal(t, uint32(0x888888), depot.BorderColor)
	require.NotNil(t, depot.LabelOffset)
	assert.Len(t, depot.ParkingZones, 3)
}

func TestLoadLayout_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.yaml")
	doc := "zones:\n  - id: a\n    bounds: {x: 0, y: 0, width: 2, height: 2}\n    parkingZones:\n      - {x: 1, y: 1}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	ix := NewIndex(48, 48)
	require.NoError(t, ix.LoadLayout(path))

	slots, err := ix.ParkingSlotsOf("a")
	require.NoError(t, err)
	assert.Equal(t, []core.GridCoordinate{{X: 1, Y: 1}}, slots)

	assert.Error(t, NewIndex(48, 48).LoadLayout("/nonexistent.yaml"))
}
