// Package convert provides functions to convert GORM models to core models
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fleetfeast/pogicity/internal/model"
	"github.com/fleetfeast/pogicity/pkg/core"
)

func nullIntPtr(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return core.StringPtr(n.String)
}

func nullOrigin(x, y sql.NullInt32) *core.BuildingOrigin {
	if !x.Valid || !y.Valid {
		return nil
	}
	return &core.BuildingOrigin{X: int(x.Int32), Y: int(y.Int32)}
}

// GridCellToCore converts a GORM GridCell to a core.GridCell.
func GridCellToCore(c model.GridCell) core.GridCell {
	return core.GridCell{
		Type:               core.TileKind(c.Type),
		X:                  c.X,
		Y:                  c.Y,
		IsOrigin:           c.IsOrigin,
		OriginX:            nullIntPtr(c.OriginX),
		OriginY:            nullIntPtr(c.OriginY),
		BuildingID:         c.BuildingID,
		Orientation:        core.Direction(c.Orientation),
		UnderlyingTileType: core.TileKind(c.UnderlyingTileType),
	}
}

// CarToCore converts a GORM Car to a core.Car.
// GORM Car.AgentID maps to core Car.ID.
func CarToCore(c model.Car) (core.Car, error) {
	var path []core.GridCoordinate
	if len(c.Path) > 0 {
		if err := json.Unmarshal(c.Path, &path); err != nil {
			return core.Car{}, fmt.Errorf("car %s: bad path: %w", c.AgentID, err)
		}
	}

	return core.Car{
		ID:                  c.AgentID,
		Position:            core.GridCoordinate{X: c.PositionX, Y: c.PositionY},
		Direction:           core.Direction(c.Direction),
		Speed:               c.Speed,
		Waiting:             c.Waiting,
		CarType:             core.CarType(c.CarType),
		IsParked:            c.IsParked,
		Path:                path,
		PathIndex:           c.PathIndex,
		ParkedAtBuilding:    nullOrigin(c.ParkedAtBuildingX, c.ParkedAtBuildingY),
		DestinationBuilding: nullOrigin(c.DestinationBuildingX, c.DestinationBuildingY),
		ParkedAtZone:        nullStringPtr(c.ParkedAtZone),
		DestinationZone:     nullStringPtr(c.DestinationZone),
	}, nil
}

// CharacterToCore converts a GORM Character to a core.Character.
func CharacterToCore(c model.Character) core.Character {
	return core.Character{
		ID:            c.AgentID,
		Position:      core.GridCoordinate{X: c.PositionX, Y: c.PositionY},
		Direction:     core.Direction(c.Direction),
		Speed:         c.Speed,
		CharacterType: core.CharacterType(c.CharacterType),
	}
}

// WorldSnapshotToCore rebuilds a full row-major grid from the stored
// non-grass cells and restores agent order.
func WorldSnapshotToCore(s model.WorldSnapshot) (core.WorldSnapshot, error) {
	out := core.WorldSnapshot{
		ID:         s.ID,
		SavedAt:    s.SavedAt,
		Tick:       s.Tick,
		GridWidth:  s.GridWidth,
		GridHeight: s.GridHeight,
		Checksum:   s.Checksum,
	}
	if s.GridWidth <= 0 || s.GridHeight <= 0 {
		return out, fmt.Errorf("snapshot %d has invalid size %dx%d", s.ID, s.GridWidth, s.GridHeight)
	}

	out.Cells = make([]core.GridCell, s.GridWidth*s.GridHeight)
	for i := range out.Cells {
		out.Cells[i] = core.GridCell{Type: core.TileGrass, X: i % s.GridWidth, Y: i / s.GridWidth}
	}
	for _, c := range s.Cells {
		if c.X < 0 || c.X >= s.GridWidth || c.Y < 0 || c.Y >= s.GridHeight {
			return out, fmt.Errorf("snapshot %d: cell (%d,%d) outside %dx%d", s.ID, c.X, c.Y, s.GridWidth, s.GridHeight)
		}
		out.Cells[c.Y*s.GridWidth+c.X] = GridCellToCore(c)
	}

	cars := append([]model.Car(nil), s.Cars...)
	sort.SliceStable(cars, func(i, j int) bool { return cars[i].Ordinal < cars[j].Ordinal })
	for _, c := range cars {
		car, err := CarToCore(c)
		if err != nil {
			return out, err
		}
		out.Cars = append(out.Cars, car)
	}

	chars := append([]model.Character(nil), s.Characters...)
	sort.SliceStable(chars, func(i, j int) bool { return chars[i].Ordinal < chars[j].Ordinal })
	for _, ch := range chars {
		out.Characters = append(out.Characters, CharacterToCore(ch))
	}
	return out, nil
}

// TruckStateToCore converts a GORM TruckState to a core.TruckState.
func TruckStateToCore(s model.TruckState) core.TruckState {
	return core.TruckState{
		ID:              s.TruckID,
		Status:          core.TruckStatus(s.Status),
		CurrentZone:     s.CurrentZone,
		DestinationZone: nullStringPtr(s.DestinationZone),
		ArrivalTime:     s.ArrivalTime,
	}
}
