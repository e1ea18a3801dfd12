// pkg/core/tile.go
package core

import (
	"encoding/json"
	"fmt"
)

// TileKind is the closed set of things a cell can hold. Grass is the empty state.
type TileKind string

const (
	TileGrass    TileKind = "grass"
	TileRoad     TileKind = "road"
	TileAsphalt  TileKind = "asphalt"
	TileTile     TileKind = "tile"
	TileSnow     TileKind = "snow"
	TileBuilding TileKind = "building"
)

// TileKinds lists every kind in declaration order.
var TileKinds = []TileKind{TileGrass, TileRoad, TileAsphalt, TileTile, TileSnow, TileBuilding}

// ParseTileKind validates external input. Use it at every boundary that
// accepts a kind from outside the process.
func ParseTileKind(s string) (TileKind, error) {
	for _, k := range TileKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown tile kind %q", s)
}

// UnmarshalJSON rejects kinds outside the closed set.
func (k *TileKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*k = ""
		return nil
	}
	parsed, err := ParseTileKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Direction is a cardinal facing used by buildings and agents.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// DefaultDirection is the orientation given to rotatable buildings when none is requested.
const DefaultDirection = DirectionDown

// ParseDirection validates a direction from external input.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Footprint is the width and height in cells of a placed object.
type Footprint struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Cells returns the number of cells covered.
func (f Footprint) Cells() int {
	return f.Width * f.Height
}

// GridCell is a single cell of the world grid.
//
// The origin of a placed object (its top-left cell) carries the object's
// metadata. Every other cell of the footprint stores only OriginX/OriginY so
// that any cell can be resolved back to the object that owns it.
type GridCell struct {
	Type               TileKind  `json:"type"`
	X                  int       `json:"x"`
	Y                  int       `json:"y"`
	IsOrigin           bool      `json:"isOrigin,omitempty"`
	OriginX            *int      `json:"originX,omitempty"`
	OriginY            *int      `json:"originY,omitempty"`
	BuildingID         string    `json:"buildingId,omitempty"`
	Orientation        Direction `json:"buildingOrientation,omitempty"`
	UnderlyingTileType TileKind  `json:"underlyingTileType,omitempty"`
}

// IsEmpty reports whether the cell is bare grass with no owner.
func (c GridCell) IsEmpty() bool {
	return c.Type == TileGrass && !c.IsOrigin && c.OriginX == nil && c.OriginY == nil
}

// HasOriginRef reports whether the cell points back at some other origin.
func (c GridCell) HasOriginRef() bool {
	return c.OriginX != nil && c.OriginY != nil
}
