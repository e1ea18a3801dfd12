// Package geo anchors the city grid on the map and exports the world as
// GeoJSON.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/fleetfeast/pogicity/internal/config"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Grid cells are laid out in Web Mercator (EPSG:3857) from the anchor's
// origin and reported in WGS84 (EPSG:4326). Grid X grows east, grid Y grows
// south.

// ErrInvalidAnchor is returned for an anchor off the map or with a
// non-positive cell size.
var ErrInvalidAnchor = errors.New("invalid grid anchor")

// Anchor places grid cell (0, 0) at a WGS84 position.
type Anchor struct {
	originX, originY float64 // EPSG:3857
	// scale converts ground meters to 3857 units at the origin latitude.
	scale      float64
	cellMeters float64
	toMap      func(x, y, z float64) (float64, float64, float64)
}

// NewAnchor validates cfg and precomputes the projected origin.
func NewAnchor(cfg config.GeoConfig) (*Anchor, error) {
	if cfg.OriginLat <= -85 || cfg.OriginLat >= 85 || cfg.OriginLon < -180 || cfg.OriginLon > 180 {
		return nil, fmt.Errorf("%w: origin %g,%g", ErrInvalidAnchor, cfg.OriginLat, cfg.OriginLon)
	}
	if cfg.CellMeters <= 0 {
		return nil, fmt.Errorf("%w: cell size %g", ErrInvalidAnchor, cfg.CellMeters)
	}

	epsg := wgs84.EPSG()
	x, y, _ := epsg.Transform(4326, 3857)(cfg.OriginLon, cfg.OriginLat, 0)
	return &Anchor{
		originX:    x,
		originY:    y,
		scale:      1 / math.Cos(cfg.OriginLat*math.Pi/180),
		cellMeters: cfg.CellMeters,
		toMap:      epsg.Transform(3857, 4326),
	}, nil
}

// Project returns the EPSG:3857 position of a grid point.
func (a *Anchor) Project(gx, gy float64) (x, y float64) {
	step := a.cellMeters * a.scale
	return a.originX + gx*step, a.originY - gy*step
}

// LonLat returns the WGS84 position of a grid point.
func (a *Anchor) LonLat(gx, gy float64) (lon, lat float64) {
	x, y := a.Project(gx, gy)
	lon, lat, _ = a.toMap(x, y, 0)
	return lon, lat
}

// Point returns a grid point as a WGS84 point geometry.
func (a *Anchor) Point(gx, gy float64) geom.Point {
	lon, lat := a.LonLat(gx, gy)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: lon, Y: lat},
		Type: geom.DimXY,
	})
}

// Rect returns the outline of a cell rectangle as a WGS84 polygon.
func (a *Anchor) Rect(x, y, width, height int) geom.Polygon {
	corners := [][2]int{{x, y}, {x + width, y}, {x + width, y + height}, {x, y + height}, {x, y}}
	flat := make([]float64, 0, len(corners)*2)
	for _, c := range corners {
		lon, lat := a.LonLat(float64(c[0]), float64(c[1]))
		flat = append(flat, lon, lat)
	}
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring})
}

// Line returns a path of grid points as a WGS84 line string. Fewer than two
// points give an empty line string.
func (a *Anchor) Line(points [][2]float64) geom.LineString {
	if len(points) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		lon, lat := a.LonLat(p[0], p[1])
		flat = append(flat, lon, lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}
