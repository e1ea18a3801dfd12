package grid

import (
	"fmt"

	"github.com/fleetfeast/pogicity/pkg/core"
)

type originKey struct{ x, y int }

// Restore replaces the grid contents with cells, typically from a saved
// snapshot. The input must be a complete row-major grid of the store's size
// and satisfy every occupancy invariant; otherwise the grid is unchanged.
func (s *Store) Restore(cells []core.GridCell) error {
	if len(cells) != len(s.cells) {
		return fmt.Errorf("restore: got %d cells, want %d", len(cells), len(s.cells))
	}

	members := make(map[originKey][]core.GridCell)
	for i, c := range cells {
		x, y := i%s.width, i/s.width
		if c.X != x || c.Y != y {
			return fmt.Errorf("restore: cell %d claims (%d,%d), want (%d,%d)", i, c.X, c.Y, x, y)
		}
		if _, err := core.ParseTileKind(string(c.Type)); err != nil {
			return fmt.Errorf("restore: cell (%d,%d): %w", x, y, err)
		}

		switch {
		case c.Type == core.TileGrass:
			if c.IsOrigin || c.OriginX != nil || c.OriginY != nil {
				return fmt.Errorf("restore: grass at (%d,%d) carries ownership", x, y)
			}
		case c.IsOrigin:
			if c.OriginX != nil || c.OriginY != nil {
				return fmt.Errorf("restore: origin (%d,%d) has a back-reference", x, y)
			}
			k := originKey{x, y}
			members[k] = append(members[k], c)
		case c.HasOriginRef():
			if c.BuildingID != "" || c.Orientation != "" || c.UnderlyingTileType != "" {
				return fmt.Errorf("restore: non-origin (%d,%d) carries metadata", x, y)
			}
			k := originKey{*c.OriginX, *c.OriginY}
			members[k] = append(members[k], c)
		default:
			return fmt.Errorf("restore: (%d,%d) is %s without an owner", x, y, c.Type)
		}
	}

	for k, group := range members {
		if !s.inBounds(k.x, k.y) {
			return fmt.Errorf("restore: reference to origin (%d,%d) %w", k.x, k.y, ErrOutOfBounds)
		}
		origin := cells[s.index(k.x, k.y)]
		if !origin.IsOrigin {
			return fmt.Errorf("restore: (%d,%d) referenced as origin: %w", k.x, k.y, ErrNotAnOrigin)
		}

		maxX, maxY := k.x, k.y
		for _, c := range group {
			if c.Type != origin.Type {
				return fmt.Errorf("restore: (%d,%d) is %s but its origin is %s", c.X, c.Y, c.Type, origin.Type)
			}
			if c.X < k.x || c.Y < k.y {
				return fmt.Errorf("restore: (%d,%d) lies above or left of its origin (%d,%d)", c.X, c.Y, k.x, k.y)
			}
			maxX = max(maxX, c.X)
			maxY = max(maxY, c.Y)
		}
		if area := (maxX - k.x + 1) * (maxY - k.y + 1); area != len(group) {
			return fmt.Errorf("restore: object at (%d,%d) is not a full rectangle", k.x, k.y)
		}
	}

	next := make([]core.GridCell, len(cells))
	for i, c := range cells {
		next[i] = cloneCell(c)
	}
	s.cells = next
	return nil
}
