// Package iso maps between grid coordinates and isometric screen pixels.
package iso

import (
	"math"

	"github.com/fleetfeast/pogicity/pkg/core"
)

// Default tile dimensions in pixels.
const (
	TileWidth  = 44
	TileHeight = 22
)

// Projection is a 2:1 isometric projection parameterised by tile size.
// The zero value is not usable; use Default or New.
type Projection struct {
	halfW float64
	halfH float64
}

// Default is the projection for 44x22 tiles.
var Default = New(TileWidth, TileHeight)

// New builds a projection for the given tile size.
func New(tileWidth, tileHeight float64) Projection {
	return Projection{halfW: tileWidth / 2, halfH: tileHeight / 2}
}

// GridToScreen returns the screen position of a grid point.
func (p Projection) GridToScreen(gx, gy float64) core.ScreenCoordinate {
	return core.ScreenCoordinate{
		X: (gx - gy) * p.halfW,
		Y: (gx + gy) * p.halfH,
	}
}

// ScreenToGrid is the exact inverse of GridToScreen. The result is not
// clamped or validated against the grid.
func (p Projection) ScreenToGrid(sx, sy float64) core.GridCoordinate {
	a := sx / p.halfW
	b := sy / p.halfH
	return core.GridCoordinate{
		X: (a + b) / 2,
		Y: (b - a) / 2,
	}
}

// CellAt returns the integer cell under a screen point.
func (p Projection) CellAt(sx, sy float64) (int, int) {
	g := p.ScreenToGrid(sx, sy)
	return int(math.Floor(g.X)), int(math.Floor(g.Y))
}

// GridToScreen projects with the default tile size.
func GridToScreen(gx, gy float64) core.ScreenCoordinate {
	return Default.GridToScreen(gx, gy)
}

// ScreenToGrid inverts with the default tile size.
func ScreenToGrid(sx, sy float64) core.GridCoordinate {
	return Default.ScreenToGrid(sx, sy)
}
