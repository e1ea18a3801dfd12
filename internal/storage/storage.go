// Package storage defines the persistence contract for world snapshots and
// truck state history. Implementations live in the subpackages.
package storage

import (
	"errors"
	"time"

	"github.com/fleetfeast/pogicity/pkg/core"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SaveSnapshot persists a complete world save and assigns s.ID.
	SaveSnapshot(s *core.WorldSnapshot) error
	// LoadSnapshot returns the most recent save, or ErrNoSnapshot.
	LoadSnapshot() (core.WorldSnapshot, error)

	// RecordTruckStates appends one backend report to the fleet history.
	RecordTruckStates(states []core.TruckState, at time.Time) error
}

// Exportable is an optional interface for backends that write save files
// to disk.
type Exportable interface {
	ExportedFilePath() string
}

// WriteDurationProvider is an optional interface for backends that batch
// writes in the background and can report how long the last batch took.
type WriteDurationProvider interface {
	LastWriteDuration() time.Duration
}
