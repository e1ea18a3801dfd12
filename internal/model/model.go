package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&WorldSnapshot{},
	&GridCell{},
	&Car{},
	&Character{},
	&TruckState{},
	&WriterPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// WriterPerformance records one background write cycle.
type WriterPerformance struct {
	Time                time.Time `json:"time" gorm:"index:idx_writerperf_time"`
	QueuedTruckStates   int       `json:"queuedTruckStates"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*WriterPerformance) TableName() string {
	return "writer_performances"
}

////////////////////////
// WORLD
////////////////////////

// WorldSnapshot is one complete save. Only non-grass cells are stored;
// grass is implied for every coordinate without a GridCell row.
type WorldSnapshot struct {
	ID         uint        `json:"id" gorm:"primarykey;autoIncrement;"`
	SavedAt    time.Time   `json:"savedAt" gorm:"index:idx_snapshot_saved_at"`
	Tick       uint64      `json:"tick"`
	GridWidth  int         `json:"gridWidth"`
	GridHeight int         `json:"gridHeight"`
	Checksum   string      `json:"checksum" gorm:"size:64"`
	Cells      []GridCell  `json:"cells" gorm:"foreignKey:SnapshotID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Cars       []Car       `json:"cars" gorm:"foreignKey:SnapshotID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Characters []Character `json:"characters" gorm:"foreignKey:SnapshotID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*WorldSnapshot) TableName() string {
	return "world_snapshots"
}

// GridCell is a non-grass cell of a snapshot.
type GridCell struct {
	ID                 uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	SnapshotID         uint          `json:"snapshotId" gorm:"index:idx_gridcell_snapshot_id"`
	X                  int           `json:"x"`
	Y                  int           `json:"y"`
	Type               string        `json:"type" gorm:"size:16"`
	IsOrigin           bool          `json:"isOrigin"`
	OriginX            sql.NullInt32 `json:"originX" gorm:"default:NULL"`
	OriginY            sql.NullInt32 `json:"originY" gorm:"default:NULL"`
	BuildingID         string        `json:"buildingId" gorm:"size:64"`
	Orientation        string        `json:"orientation" gorm:"size:8"`
	UnderlyingTileType string        `json:"underlyingTileType" gorm:"size:16"`
}

func (*GridCell) TableName() string {
	return "grid_cells"
}

////////////////////////
// AGENTS
////////////////////////

// Car is a vehicle agent at save time. Ordinal keeps registry order.
type Car struct {
	ID                   uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SnapshotID           uint           `json:"snapshotId" gorm:"index:idx_car_snapshot_id"`
	Ordinal              int            `json:"ordinal"`
	AgentID              string         `json:"agentId" gorm:"size:64"`
	PositionX            float64        `json:"positionX"`
	PositionY            float64        `json:"positionY"`
	Direction            string         `json:"direction" gorm:"size:8"`
	Speed                float64        `json:"speed"`
	Waiting              int            `json:"waiting"`
	CarType              string         `json:"carType" gorm:"size:16"`
	IsParked             bool           `json:"isParked"`
	Path                 datatypes.JSON `json:"path"`
	PathIndex            int            `json:"pathIndex"`
	ParkedAtBuildingX    sql.NullInt32  `json:"parkedAtBuildingX" gorm:"default:NULL"`
	ParkedAtBuildingY    sql.NullInt32  `json:"parkedAtBuildingY" gorm:"default:NULL"`
	DestinationBuildingX sql.NullInt32  `json:"destinationBuildingX" gorm:"default:NULL"`
	DestinationBuildingY sql.NullInt32  `json:"destinationBuildingY" gorm:"default:NULL"`
	ParkedAtZone         sql.NullString `json:"parkedAtZone" gorm:"size:64;default:NULL"`
	DestinationZone      sql.NullString `json:"destinationZone" gorm:"size:64;default:NULL"`
}

func (*Car) TableName() string {
	return "cars"
}

// Character is a pedestrian at save time.
type Character struct {
	ID            uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SnapshotID    uint    `json:"snapshotId" gorm:"index:idx_character_snapshot_id"`
	Ordinal       int     `json:"ordinal"`
	AgentID       string  `json:"agentId" gorm:"size:64"`
	PositionX     float64 `json:"positionX"`
	PositionY     float64 `json:"positionY"`
	Direction     string  `json:"direction" gorm:"size:8"`
	Speed         float64 `json:"speed"`
	CharacterType string  `json:"characterType" gorm:"size:16"`
}

func (*Character) TableName() string {
	return "characters"
}

////////////////////////
// FLEET
////////////////////////

// TruckState is one truck from one backend report. Time is when the report
// was received; rows sharing a Time form one report.
type TruckState struct {
	ID              uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time            time.Time      `json:"time" gorm:"index:idx_truckstate_time"`
	TruckID         string         `json:"truckId" gorm:"size:64;index:idx_truckstate_truck_id"`
	Status          string         `json:"status" gorm:"size:16"`
	CurrentZone     string         `json:"currentZone" gorm:"size:64"`
	DestinationZone sql.NullString `json:"destinationZone" gorm:"size:64;default:NULL"`
	ArrivalTime     float64        `json:"arrivalTime"`
}

func (*TruckState) TableName() string {
	return "truck_states"
}
