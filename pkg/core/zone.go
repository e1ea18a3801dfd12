// pkg/core/zone.go
package core

// Bounds is a rectangle on the grid. X/Y is inclusive, X+Width/Y+Height exclusive.
type Bounds struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Contains reports whether a (possibly fractional) grid point falls inside the bounds.
func (b Bounds) Contains(gx, gy float64) bool {
	return gx >= float64(b.X) && gx < float64(b.X+b.Width) &&
		gy >= float64(b.Y) && gy < float64(b.Y+b.Height)
}

// LabelOffset shifts a zone's on-map label.
type LabelOffset struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ZoneConfig describes a named region of the map and the parking anchors inside it.
type ZoneConfig struct {
	ID           string           `json:"id" yaml:"id"`
	Name         string           `json:"name" yaml:"name"`
	Bounds       Bounds           `json:"bounds" yaml:"bounds"`
	TileKind     TileKind         `json:"tileType" yaml:"tileType"`
	BorderColor  uint32           `json:"borderColor" yaml:"borderColor"`
	LabelOffset  *LabelOffset     `json:"labelOffset,omitempty" yaml:"labelOffset,omitempty"`
	ParkingZones []GridCoordinate `json:"parking_zones" yaml:"parkingZones"`
}
