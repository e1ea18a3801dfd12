package convert

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fleetfeast/pogicity/internal/model"
	"github.com/fleetfeast/pogicity/pkg/core"
	"gorm.io/datatypes"
)

func intPtrToNull(p *int) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*p), Valid: true}
}

func stringPtrToNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func originToNull(o *core.BuildingOrigin) (sql.NullInt32, sql.NullInt32) {
	if o == nil {
		return sql.NullInt32{}, sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(o.X), Valid: true}, sql.NullInt32{Int32: int32(o.Y), Valid: true}
}

// pathToJSON converts a route to datatypes.JSON for DB storage.
func pathToJSON(path []core.GridCoordinate) datatypes.JSON {
	if len(path) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(path)
	return datatypes.JSON(data)
}

// CoreToGridCell converts a core.GridCell to a GORM GridCell.
func CoreToGridCell(c core.GridCell) model.GridCell {
	return model.GridCell{
		X:                  c.X,
		Y:                  c.Y,
		Type:               string(c.Type),
		IsOrigin:           c.IsOrigin,
		OriginX:            intPtrToNull(c.OriginX),
		OriginY:            intPtrToNull(c.OriginY),
		BuildingID:         c.BuildingID,
		Orientation:        string(c.Orientation),
		UnderlyingTileType: string(c.UnderlyingTileType),
	}
}

// CoreToCar converts a core.Car to a GORM Car.
// core.Car.ID maps to GORM Car.AgentID.
func CoreToCar(c core.Car, ordinal int) model.Car {
	pbx, pby := originToNull(c.ParkedAtBuilding)
	dbx, dby := originToNull(c.DestinationBuilding)
	return model.Car{
		Ordinal:              ordinal,
		AgentID:              c.ID,
		PositionX:            c.Position.X,
		PositionY:            c.Position.Y,
		Direction:            string(c.Direction),
		Speed:                c.Speed,
		Waiting:              c.Waiting,
		CarType:              string(c.CarType),
		IsParked:             c.IsParked,
		Path:                 pathToJSON(c.Path),
		PathIndex:            c.PathIndex,
		ParkedAtBuildingX:    pbx,
		ParkedAtBuildingY:    pby,
		DestinationBuildingX: dbx,
		DestinationBuildingY: dby,
		ParkedAtZone:         stringPtrToNull(c.ParkedAtZone),
		DestinationZone:      stringPtrToNull(c.DestinationZone),
	}
}

// CoreToCharacter converts a core.Character to a GORM Character.
func CoreToCharacter(ch core.Character, ordinal int) model.Character {
	return model.Character{
		Ordinal:       ordinal,
		AgentID:       ch.ID,
		PositionX:     ch.Position.X,
		PositionY:     ch.Position.Y,
		Direction:     string(ch.Direction),
		Speed:         ch.Speed,
		CharacterType: string(ch.CharacterType),
	}
}

// CoreToWorldSnapshot converts a core.WorldSnapshot to a GORM WorldSnapshot,
// dropping empty grass cells.
func CoreToWorldSnapshot(s core.WorldSnapshot) model.WorldSnapshot {
	out := model.WorldSnapshot{
		ID:         s.ID,
		SavedAt:    s.SavedAt,
		Tick:       s.Tick,
		GridWidth:  s.GridWidth,
		GridHeight: s.GridHeight,
		Checksum:   s.Checksum,
	}
	for _, c := range s.Cells {
		if c.IsEmpty() {
			continue
		}
		out.Cells = append(out.Cells, CoreToGridCell(c))
	}
	for i, c := range s.Cars {
		out.Cars = append(out.Cars, CoreToCar(c, i))
	}
	for i, ch := range s.Characters {
		out.Characters = append(out.Characters, CoreToCharacter(ch, i))
	}
	return out
}

// CoreToTruckState converts a core.TruckState received at the given time to a GORM TruckState.
func CoreToTruckState(s core.TruckState, at time.Time) model.TruckState {
	return model.TruckState{
		Time:            at,
		TruckID:         s.ID,
		Status:          string(s.Status),
		CurrentZone:     s.CurrentZone,
		DestinationZone: stringPtrToNull(s.DestinationZone),
		ArrivalTime:     s.ArrivalTime,
	}
}
