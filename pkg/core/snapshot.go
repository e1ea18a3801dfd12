// pkg/core/snapshot.go
package core

import "time"

// WorldSnapshot is a complete, self-consistent save of the world.
type WorldSnapshot struct {
	ID         uint        `json:"id"`
	SavedAt    time.Time   `json:"savedAt"`
	Tick       uint64      `json:"tick"`
	GridWidth  int         `json:"gridWidth"`
	GridHeight int         `json:"gridHeight"`
	Checksum   string      `json:"checksum"`
	Cells      []GridCell  `json:"cells"`
	Cars       []Car       `json:"cars"`
	Characters []Character `json:"characters"`
}
