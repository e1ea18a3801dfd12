// pkg/core/coordinate.go
package core

import "math"

// GridCoordinate is a position on the tile grid. Tiles sit on integral
// coordinates; agents between tiles carry fractional ones.
type GridCoordinate struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Cell returns the integral tile containing the coordinate.
func (c GridCoordinate) Cell() (int, int) {
	return int(math.Floor(c.X)), int(math.Floor(c.Y))
}

// Equal reports whether two coordinates are within eps of each other on both axes.
func (c GridCoordinate) Equal(o GridCoordinate, eps float64) bool {
	return math.Abs(c.X-o.X) <= eps && math.Abs(c.Y-o.Y) <= eps
}

// ScreenCoordinate is an isometric pixel position.
type ScreenCoordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BuildingOrigin identifies a placed building by its origin cell.
type BuildingOrigin struct {
	X int `json:"x"`
	Y int `json:"y"`
}
