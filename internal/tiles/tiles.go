// Package tiles holds the static footprint table for every tile kind.
package tiles

import (
	"fmt"

	"github.com/fleetfeast/pogicity/internal/building"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// DefaultBuildingFootprint applies to a building with no catalog override.
var DefaultBuildingFootprint = core.Footprint{Width: 4, Height: 4}

var single = core.Footprint{Width: 1, Height: 1}

// FootprintOf returns the footprint of a kind. It panics on a kind outside
// the closed set; external input must go through core.ParseTileKind first.
func FootprintOf(kind core.TileKind) core.Footprint {
	switch kind {
	case core.TileGrass, core.TileRoad, core.TileAsphalt, core.TileTile, core.TileSnow:
		return single
	case core.TileBuilding:
		return DefaultBuildingFootprint
	default:
		panic(fmt.Sprintf("tiles: unknown tile kind %q", kind))
	}
}

// Resolve returns the concrete footprint for a placement. Buildings consult
// the registry so that per-building overrides win over the default.
func Resolve(kind core.TileKind, buildingID string, reg building.Registry) (core.Footprint, error) {
	if kind != core.TileBuilding {
		return FootprintOf(kind), nil
	}
	if buildingID == "" || reg == nil {
		return FootprintOf(kind), nil
	}
	def, err := reg.Lookup(buildingID)
	if err != nil {
		return core.Footprint{}, err
	}
	return def.Footprint, nil
}
