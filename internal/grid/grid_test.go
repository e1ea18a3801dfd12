package grid

import (
	"testing"

	"github.com/fleetfeast/pogicity/internal/building"
	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fp1x1 = core.Footprint{Width: 1, Height: 1}
	fp4x4 = core.Footprint{Width: 4, Height: 4}
)

func newStore(t *testing.T) *Store {
	t.Helper()
	reg, err := building.LoadDefault()
	require.NoError(t, err)
	return New(reg)
}

func TestNew_AllGrass(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, 48, s.Width())
	assert.Equal(t, 48, s.Height())

	for _, c := range s.Cells() {
		assert.True(t, c.IsEmpty())
	}
}

func TestPlace_BakeryScenario(t *testing.T) {
	s := newStore(t)

	changed, err := s.Place(2, 2, core.TileBuilding, fp4x4, PlaceMeta{BuildingID: "bakery"})
	require.NoError(t, err)
	assert.Len(t, changed, 16)
	assert.True(t, changed[0].IsOrigin)
	assert.Equal(t, "bakery", changed[0].BuildingID)
	assert.Equal(t, core.DirectionDown, changed[0].Orientation)

	c, err := s.CellAt(5, 5)
	require.NoError(t, err)
	assert.False(t, c.IsOrigin)
	assert.Equal(t, core.TileBuilding, c.Type)
	require.True(t, c.HasOriginRef())
	assert.Equal(t, 2, *c.OriginX)
	assert.Equal(t, 2, *c.OriginY)
	assert.Empty(t, c.BuildingID, "metadata lives on the origin only")

	_, err = s.Place(4, 4, core.TileRoad, fp1x1, PlaceMeta{})
	assert.ErrorIs(t, err, ErrOccupied)
}

func TestPlace_OutOfBounds(t *testing.T) {
	s := newStore(t)

	tests := []struct {
		name   string
		ox, oy int
		fp     core.Footprint
	}{
		{"negative", -1, 0, fp1x1},
		{"past edge", 48, 0, fp1x1},
		{"overhang right", 45, 0, fp4x4},
		{"overhang bottom", 0, 46, fp4x4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Checksum()
			_, err := s.Place(tt.ox, tt.oy, core.TileBuilding, tt.fp, PlaceMeta{})
			assert.ErrorIs(t, err, ErrOutOfBounds)
			assert.Equal(t, before, s.Checksum(), "failed place must not mutate")
		})
	}

	_, err := s.Place(44, 44, core.TileBuilding, fp4x4, PlaceMeta{})
	assert.NoError(t, err, "footprint touching the far corner fits")
}

func TestPlace_FailedPlacementIsAtomic(t *testing.T) {
	s := newStore(t)
	_, err := s.Place(5, 5, core.TileRoad, fp1x1, PlaceMeta{})
	require.NoError(t, err)

	before := s.Cells()
	// 4x4 at (2,2) covers (5,5) in its last cell
	_, err = s.Place(2, 2, core.TileBuilding, fp4x4, PlaceMeta{BuildingID: "bakery"})
	require.ErrorIs(t, err, ErrOccupied)
	assert.Equal(t, before, s.Cells())
}

func TestPlace_NoOverlapProperty(t *testing.T) {
	s := newStore(t)

	placements := []struct{ x, y, w, h int }{
		{0, 0, 4, 4}, {3, 3, 2, 2}, {4, 0, 3, 3}, {2, 4, 1, 1}, {6, 2, 2, 2}, {10, 10, 4, 4}, {12, 12, 1, 1},
	}
	for _, p := range placements {
		_, _ = s.Place(p.x, p.y, core.TileBuilding, core.Footprint{Width: p.w, Height: p.h}, PlaceMeta{})
	}

	// every non-empty cell resolves to exactly one origin whose object covers it
	for _, c := range s.Cells() {
		if c.IsEmpty() {
			continue
		}
		ox, oy, err := s.ResolveOrigin(c.X, c.Y)
		require.NoError(t, err)
		origin, err := s.CellAt(ox, oy)
		require.NoError(t, err)
		assert.True(t, origin.IsOrigin)
		assert.Equal(t, origin.Type, c.Type)
	}

	st := s.Stats()
	assert.Equal(t, 16+9+1+16, st.OccupiedCells)
	assert.Equal(t, 4, st.Objects[core.TileBuilding])
}

func TestPlace_Rejections(t *testing.T) {
	s := newStore(t)

	_, err := s.Place(0, 0, core.TileGrass, fp1x1, PlaceMeta{})
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	_, err = s.Place(0, 0, core.TileRoad, core.Footprint{}, PlaceMeta{})
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	_, err = s.Place(0, 0, core.TileRoad, fp1x1, PlaceMeta{Underlying: core.TileBuilding})
	assert.ErrorIs(t, err, ErrInvalidPlacement)

	assert.Panics(t, func() {
		_, _ = s.Place(0, 0, core.TileKind("lava"), fp1x1, PlaceMeta{})
	})
}

func TestPlace_Prop(t *testing.T) {
	s := newStore(t)

	changed, err := s.Place(7, 7, core.TileTile, fp1x1, PlaceMeta{Underlying: core.TileSnow})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, core.TileSnow, changed[0].UnderlyingTileType)
	assert.True(t, changed[0].IsOrigin)
}

func TestCanPlace(t *testing.T) {
	s := newStore(t)
	assert.True(t, s.CanPlace(0, 0, fp4x4))
	assert.False(t, s.CanPlace(46, 46, fp4x4))

	_, err := s.Place(1, 1, core.TileRoad, fp1x1, PlaceMeta{})
	require.NoError(t, err)
	assert.False(t, s.CanPlace(0, 0, fp4x4))
	assert.True(t, s.CanPlace(2, 2, fp4x4))
}

func TestRemove(t *testing.T) {
	s := newStore(t)
	empty := s.Checksum()

	_, err := s.Place(2, 2, core.TileBuilding, fp4x4, PlaceMeta{BuildingID: "bakery"})
	require.NoError(t, err)

	_, err = s.Remove(3, 3)
	assert.ErrorIs(t, err, ErrNotAnOrigin)

	_, err = s.Remove(-1, 3)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	cleared, err := s.Remove(2, 2)
	require.NoError(t, err)
	assert.Len(t, cleared, 16)
	for _, c := range cleared {
		assert.True(t, c.IsEmpty())
	}
	assert.Equal(t, empty, s.Checksum())
}

func TestRemove_LeavesNeighbours(t *testing.T) {
	s := newStore(t)
	_, err := s.Place(0, 0, core.TileBuilding, core.Footprint{Width: 2, Height: 2}, PlaceMeta{})
	require.NoError(t, err)
	_, err = s.Place(2, 0, core.TileBuilding, core.Footprint{Width: 2, Height: 2}, PlaceMeta{})
	require.NoError(t, err)

	_, err = s.Remove(0, 0)
	require.NoError(t, err)

	c, err := s.CellAt(3, 1)
	require.NoError(t, err)
	assert.Equal(t, core.TileBuilding, c.Type)
	assert.Equal(t, 2, *c.OriginX)
}

func TestErase(t *testing.T) {
	s := newStore(t)
	_, err := s.Place(10, 10, core.TileBuilding, fp4x4, PlaceMeta{})
	require.NoError(t, err)

	cleared, err := s.Erase(13, 12)
	require.NoError(t, err)
	assert.Len(t, cleared, 16)

	_, err = s.Erase(13, 12)
	assert.ErrorIs(t, err, ErrNotAnOrigin)
}

func TestPlaceBuilding(t *testing.T) {
	s := newStore(t)

	changed, err := s.PlaceBuilding(0, 0, "kiosk", "")
	require.NoError(t, err)
	assert.Len(t, changed, 4)
	assert.Equal(t, core.DirectionDown, changed[0].Orientation)

	changed, err = s.PlaceBuilding(10, 0, "bakery", core.DirectionLeft)
	require.NoError(t, err)
	assert.Equal(t, core.DirectionLeft, changed[0].Orientation)

	_, err = s.PlaceBuilding(20, 0, "kiosk", core.DirectionUp)
	assert.ErrorIs(t, err, ErrInvalidOrientation)

	_, err = s.PlaceBuilding(20, 0, "apartment", core.DirectionRight)
	assert.ErrorIs(t, err, ErrInvalidOrientation)

	_, err = s.PlaceBuilding(20, 0, "bakery", core.Direction("north"))
	assert.ErrorIs(t, err, ErrInvalidOrientation)

	_, err = s.PlaceBuilding(20, 0, "castle", "")
	assert.ErrorIs(t, err, building.ErrUnknownBuildingID)

	_, err = New(nil).PlaceBuilding(0, 0, "bakery", "")
	assert.ErrorIs(t, err, building.ErrUnknownBuildingID)
}

func TestCellAt_ReturnsCopy(t *testing.T) {
	s := newStore(t)
	_, err := s.Place(0, 0, core.TileBuilding, core.Footprint{Width: 2, Height: 1}, PlaceMeta{})
	require.NoError(t, err)

	c, err := s.CellAt(1, 0)
	require.NoError(t, err)
	*c.OriginX = 40

	again, err := s.CellAt(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, *again.OriginX)
}

func TestResolveOrigin(t *testing.T) {
	s := newStore(t)
	_, err := s.Place(5, 6, core.TileBuilding, fp4x4, PlaceMeta{})
	require.NoError(t, err)

	x, y, err := s.ResolveOrigin(8, 9)
	require.NoError(t, err)
	assert.Equal(t, 5, x)
	assert.Equal(t, 6, y)

	x, y, err = s.ResolveOrigin(5, 6)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, []int{x, y})

	x, y, err = s.ResolveOrigin(7, 20)
	require.NoError(t, err, "empty cells resolve to themselves")
	assert.Equal(t, []int{7, 20}, []int{x, y})

	_, err = s.Erase(7, 20)
	assert.ErrorIs(t, err, ErrNotAnOrigin)

	_, _, err = s.ResolveOrigin(48, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestStats(t *testing.T) {
	s := newStore(t)
	_, err := s.PlaceBuilding(0, 0, "bakery", "")
	require.NoError(t, err)
	_, err = s.Place(10, 10, core.TileRoad, fp1x1, PlaceMeta{})
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, 17, st.OccupiedCells)
	assert.Equal(t, 48*48, st.TotalCells)
	assert.Equal(t, 1, st.Objects[core.TileRoad])
	assert.Equal(t, 1, st.Buildings["bakery"])
}

func TestChecksum_ChangesWithContent(t *testing.T) {
	a := newStore(t)
	b := newStore(t)
	assert.Equal(t, a.Checksum(), b.Checksum())
	assert.Len(t, a.Checksum(), 64)

	_, err := a.Place(0, 0, core.TileRoad, fp1x1, PlaceMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, a.Checksum(), b.Checksum())
}
