// Package grid is the authoritative store of world cells. It enforces the
// multi-cell occupancy rules: footprints never overlap, every non-origin
// cell of an object points back at its origin, and placement and removal
// either succeed completely or leave the grid untouched.
//
// Store is not safe for concurrent use; the simulation engine serializes access.
package grid

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetfeast/pogicity/internal/building"
	"github.com/fleetfeast/pogicity/internal/tiles"
	"github.com/fleetfeast/pogicity/pkg/core"
	"lukechampine.com/blake3"
)

// Default world extent.
const (
	Width  = 48
	Height = 48
)

var (
	// ErrOutOfBounds is returned for coordinates or footprints outside the grid.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrOccupied is returned when a footprint covers a non-empty cell.
	ErrOccupied = errors.New("cell occupied")
	// ErrNotAnOrigin is returned when removing at a cell that does not own an object.
	ErrNotAnOrigin = errors.New("not an origin cell")
	// ErrInvalidOrientation is returned for an orientation the building does not support.
	ErrInvalidOrientation = errors.New("invalid orientation")
	// ErrInvalidPlacement is returned for placements that can never succeed,
	// such as grass or an empty footprint.
	ErrInvalidPlacement = errors.New("invalid placement")
)

// PlaceMeta is the metadata stored on an object's origin cell.
type PlaceMeta struct {
	BuildingID  string
	Orientation core.Direction
	// Underlying marks the placed object as a prop layered over this surface.
	Underlying core.TileKind
}

// Store holds the cells of a fixed-size grid.
type Store struct {
	width     int
	height    int
	cells     []core.GridCell
	buildings building.Registry
}

// New creates a 48x48 grid of grass. reg resolves building footprints for
// PlaceBuilding and may be nil if only Place is used.
func New(reg building.Registry) *Store {
	return NewSized(Width, Height, reg)
}

// NewSized creates a grid of the given size.
func NewSized(width, height int, reg building.Registry) *Store {
	s := &Store{
		width:     width,
		height:    height,
		cells:     make([]core.GridCell, width*height),
		buildings: reg,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			s.cells[s.index(x, y)] = grass(x, y)
		}
	}
	return s
}

// Width returns the number of columns.
func (s *Store) Width() int { return s.width }

// Height returns the number of rows.
func (s *Store) Height() int { return s.height }

func (s *Store) index(x, y int) int {
	return y*s.width + x
}

func (s *Store) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.width && y < s.height
}

func grass(x, y int) core.GridCell {
	return core.GridCell{Type: core.TileGrass, X: x, Y: y}
}

func cloneCell(c core.GridCell) core.GridCell {
	if c.OriginX != nil {
		v := *c.OriginX
		c.OriginX = &v
	}
	if c.OriginY != nil {
		v := *c.OriginY
		c.OriginY = &v
	}
	return c
}

// CellAt returns a copy of the cell at (x, y).
func (s *Store) CellAt(x, y int) (core.GridCell, error) {
	if !s.inBounds(x, y) {
		return core.GridCell{}, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	return cloneCell(s.cells[s.index(x, y)]), nil
}

// CanPlace reports whether a footprint at (ox, oy) fits in bounds on empty cells.
func (s *Store) CanPlace(ox, oy int, fp core.Footprint) bool {
	return s.checkPlacement(ox, oy, fp) == nil
}

func (s *Store) checkPlacement(ox, oy int, fp core.Footprint) error {
	if fp.Width < 1 || fp.Height < 1 {
		return fmt.Errorf("%w: footprint %dx%d", ErrInvalidPlacement, fp.Width, fp.Height)
	}
	if !s.inBounds(ox, oy) || !s.inBounds(ox+fp.Width-1, oy+fp.Height-1) {
		return fmt.Errorf("%w: %dx%d at (%d,%d)", ErrOutOfBounds, fp.Width, fp.Height, ox, oy)
	}
	for y := oy; y < oy+fp.Height; y++ {
		for x := ox; x < ox+fp.Width; x++ {
			if !s.cells[s.index(x, y)].IsEmpty() {
				return fmt.Errorf("%w: (%d,%d)", ErrOccupied, x, y)
			}
		}
	}
	return nil
}

// Place writes an object of the given kind and footprint with its origin at
// (ox, oy). On success it returns copies of every mutated cell, origin first.
// On failure the grid is unchanged.
func (s *Store) Place(ox, oy int, kind core.TileKind, fp core.Footprint, meta PlaceMeta) ([]core.GridCell, error) {
	if kind == core.TileGrass {
		return nil, fmt.Errorf("%w: grass is the empty state", ErrInvalidPlacement)
	}
	// validates the kind against the closed set
	tiles.FootprintOf(kind)

	if meta.Underlying != "" {
		if meta.Underlying == core.TileBuilding {
			return nil, fmt.Errorf("%w: buildings cannot be an underlying surface", ErrInvalidPlacement)
		}
		tiles.FootprintOf(meta.Underlying)
	}

	if err := s.checkPlacement(ox, oy, fp); err != nil {
		return nil, err
	}

	origin := core.GridCell{
		Type:               kind,
		X:                  ox,
		Y:                  oy,
		IsOrigin:           true,
		UnderlyingTileType: meta.Underlying,
	}
	if kind == core.TileBuilding {
		origin.BuildingID = meta.BuildingID
		origin.Orientation = meta.Orientation
		if origin.Orientation == "" {
			origin.Orientation = core.DefaultDirection
		}
	}

	changed := make([]core.GridCell, 0, fp.Cells())
	s.cells[s.index(ox, oy)] = origin
	changed = append(changed, cloneCell(origin))

	for y := oy; y < oy+fp.Height; y++ {
		for x := ox; x < ox+fp.Width; x++ {
			if x == ox && y == oy {
				continue
			}
			rx, ry := ox, oy
			c := core.GridCell{Type: kind, X: x, Y: y, OriginX: &rx, OriginY: &ry}
			s.cells[s.index(x, y)] = c
			changed = append(changed, cloneCell(c))
		}
	}
	return changed, nil
}

// PlaceBuilding places a catalog building. The footprint and the allowed
// orientations come from the registry; an empty orientation means the default.
func (s *Store) PlaceBuilding(ox, oy int, buildingID string, orientation core.Direction) ([]core.GridCell, error) {
	if s.buildings == nil {
		return nil, fmt.Errorf("%w: %q (no registry)", building.ErrUnknownBuildingID, buildingID)
	}
	def, err := s.buildings.Lookup(buildingID)
	if err != nil {
		return nil, err
	}

	if orientation == "" {
		orientation = core.DefaultDirection
	} else if _, err := core.ParseDirection(string(orientation)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrientation, err)
	}
	if def.Rotatable() && !def.Allows(orientation) {
		return nil, fmt.Errorf("%w: %s cannot face %s", ErrInvalidOrientation, buildingID, orientation)
	}
	if !def.Rotatable() && orientation != core.DefaultDirection {
		return nil, fmt.Errorf("%w: %s is not rotatable", ErrInvalidOrientation, buildingID)
	}

	return s.Place(ox, oy, core.TileBuilding, def.Footprint, PlaceMeta{
		BuildingID:  buildingID,
		Orientation: orientation,
	})
}

// Remove clears the object whose origin is at (ox, oy) back to grass and
// returns the cleared cells. On failure the grid is unchanged.
func (s *Store) Remove(ox, oy int) ([]core.GridCell, error) {
	if !s.inBounds(ox, oy) {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, ox, oy)
	}
	if !s.cells[s.index(ox, oy)].IsOrigin {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrNotAnOrigin, ox, oy)
	}

	owned := []int{s.index(ox, oy)}
	for i, c := range s.cells {
		if c.HasOriginRef() && *c.OriginX == ox && *c.OriginY == oy {
			owned = append(owned, i)
		}
	}

	cleared := make([]core.GridCell, 0, len(owned))
	for _, i := range owned {
		c := grass(s.cells[i].X, s.cells[i].Y)
		s.cells[i] = c
		cleared = append(cleared, c)
	}
	return cleared, nil
}

// ResolveOrigin returns the origin of the object covering (x, y). Origins and
// unoccupied cells resolve to themselves.
func (s *Store) ResolveOrigin(x, y int) (int, int, error) {
	if !s.inBounds(x, y) {
		return 0, 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	c := s.cells[s.index(x, y)]
	switch {
	case c.IsOrigin:
		return x, y, nil
	case c.HasOriginRef():
		return *c.OriginX, *c.OriginY, nil
	default:
		return x, y, nil
	}
}

// Erase removes whatever object covers (x, y), wherever in its footprint the
// cell lies.
func (s *Store) Erase(x, y int) ([]core.GridCell, error) {
	ox, oy, err := s.ResolveOrigin(x, y)
	if err != nil {
		return nil, err
	}
	return s.Remove(ox, oy)
}

// Cells returns a copy of every cell in row-major order.
func (s *Store) Cells() []core.GridCell {
	out := make([]core.GridCell, len(s.cells))
	for i, c := range s.cells {
		out[i] = cloneCell(c)
	}
	return out
}

// Stats summarises occupancy.
type Stats struct {
	Objects       map[core.TileKind]int `json:"objects"`
	Buildings     map[string]int        `json:"buildings"`
	OccupiedCells int                   `json:"occupiedCells"`
	TotalCells    int                   `json:"totalCells"`
}

// Stats counts placed objects per kind and occupied cells.
func (s *Store) Stats() Stats {
	st := Stats{
		Objects:    make(map[core.TileKind]int),
		Buildings:  make(map[string]int),
		TotalCells: len(s.cells),
	}
	for _, c := range s.cells {
		if c.IsEmpty() {
			continue
		}
		st.OccupiedCells++
		if c.IsOrigin {
			st.Objects[c.Type]++
			if c.Type == core.TileBuilding && c.BuildingID != "" {
				st.Buildings[c.BuildingID]++
			}
		}
	}
	return st
}

// Checksum returns a hex blake3 digest of the cell array. Two stores with
// identical contents produce identical checksums.
func (s *Store) Checksum() string {
	data, err := json.Marshal(s.cells)
	if err != nil {
		// GridCell only holds strings, ints and bools
		panic(fmt.Sprintf("grid: marshal cells: %v", err))
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
