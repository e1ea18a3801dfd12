package parser

import "github.com/fleetfeast/pogicity/pkg/core"

// PlaceRequest places a surface or road. A zero Footprint means the kind's
// default footprint.
type PlaceRequest struct {
	X, Y      int
	Kind      core.TileKind
	Footprint core.Footprint
}

// PlaceBuildingRequest places a catalog building.
type PlaceBuildingRequest struct {
	X, Y        int
	BuildingID  string
	Orientation core.Direction
}

// CellRequest addresses one cell, for removal or erasing.
type CellRequest struct {
	X, Y int
}

// SendCarRequest routes a car to the building owning a cell.
type SendCarRequest struct {
	ID   string
	X, Y int
}
