package geo

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fleetfeast/pogicity/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Feature kinds written to the "kind" property.
const (
	KindZone      = "zone"
	KindObject    = "object"
	KindCar       = "car"
	KindPath      = "path"
	KindCharacter = "character"
)

// Feature is one GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   geom.Geometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is a GeoJSON document.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func feature(id string, g geom.Geometry, props map[string]any) Feature {
	return Feature{Type: "Feature", ID: id, Geometry: g, Properties: props}
}

// Export converts a world snapshot and its zones into GeoJSON features:
// zone outlines, one polygon per placed object, car and pedestrian points,
// and the remaining route of every car still moving.
func Export(snap core.WorldSnapshot, zones []core.ZoneConfig, a *Anchor) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	for _, z := range zones {
		b := z.Bounds
		fc.Features = append(fc.Features, feature("zone:"+z.ID, a.Rect(b.X, b.Y, b.Width, b.Height).AsGeometry(), map[string]any{
			"kind":     KindZone,
			"name":     z.Name,
			"tileType": z.TileKind,
			"parking":  len(z.ParkingZones),
		}))
	}

	for _, obj := range objects(snap.Cells) {
		props := map[string]any{
			"kind":     KindObject,
			"tileType": obj.origin.Type,
			"width":    obj.width,
			"height":   obj.height,
		}
		if obj.origin.BuildingID != "" {
			props["buildingId"] = obj.origin.BuildingID
			props["orientation"] = obj.origin.Orientation
		}
		if obj.origin.UnderlyingTileType != "" {
			props["underlyingTileType"] = obj.origin.UnderlyingTileType
		}
		id := fmt.Sprintf("object:%d,%d", obj.origin.X, obj.origin.Y)
		fc.Features = append(fc.Features, feature(id, a.Rect(obj.origin.X, obj.origin.Y, obj.width, obj.height).AsGeometry(), props))
	}

	for _, c := range snap.Cars {
		props := map[string]any{
			"kind":      KindCar,
			"carType":   c.CarType,
			"direction": c.Direction,
			"parked":    c.IsParked,
		}
		if c.ParkedAtZone != nil {
			props["parkedAtZone"] = *c.ParkedAtZone
		}
		if c.DestinationZone != nil {
			props["destinationZone"] = *c.DestinationZone
		}
		fc.Features = append(fc.Features, feature("car:"+c.ID, a.Point(c.Position.X, c.Position.Y).AsGeometry(), props))

		if route := remaining(c); len(route) >= 2 {
			fc.Features = append(fc.Features, feature("path:"+c.ID, a.Line(route).AsGeometry(), map[string]any{
				"kind": KindPath,
				"car":  c.ID,
			}))
		}
	}

	for _, ch := range snap.Characters {
		fc.Features = append(fc.Features, feature("character:"+ch.ID, a.Point(ch.Position.X, ch.Position.Y).AsGeometry(), map[string]any{
			"kind":          KindCharacter,
			"characterType": ch.CharacterType,
			"direction":     ch.Direction,
		}))
	}
	return fc
}

// WriteGeoJSON encodes fc to w.
func WriteGeoJSON(w io.Writer, fc FeatureCollection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	return nil
}

type object struct {
	origin        core.GridCell
	width, height int
}

// objects groups cells by owning origin and measures each footprint.
func objects(cells []core.GridCell) []object {
	byOrigin := make(map[[2]int]*object)
	for _, c := range cells {
		if c.IsOrigin {
			key := [2]int{c.X, c.Y}
			if o, ok := byOrigin[key]; ok {
				o.origin = c
			} else {
				byOrigin[key] = &object{origin: c, width: 1, height: 1}
			}
		}
	}
	for _, c := range cells {
		if !c.HasOriginRef() {
			continue
		}
		o, ok := byOrigin[[2]int{*c.OriginX, *c.OriginY}]
		if !ok {
			continue
		}
		if w := c.X - o.origin.X + 1; w > o.width {
			o.width = w
		}
		if h := c.Y - o.origin.Y + 1; h > o.height {
			o.height = h
		}
	}

	out := make([]object, 0, len(byOrigin))
	for _, o := range byOrigin {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].origin.Y != out[j].origin.Y {
			return out[i].origin.Y < out[j].origin.Y
		}
		return out[i].origin.X < out[j].origin.X
	})
	return out
}

// remaining returns the car position followed by the unvisited path points.
func remaining(c core.Car) [][2]float64 {
	if c.PathIndex >= len(c.Path) {
		return nil
	}
	out := [][2]float64{{c.Position.X, c.Position.Y}}
	for _, p := range c.Path[c.PathIndex:] {
		out = append(out, [2]float64{p.X, p.Y})
	}
	return out
}
