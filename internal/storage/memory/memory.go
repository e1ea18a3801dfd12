// Package memory keeps snapshots and truck history in memory and exports
// every save to a digest-checked JSON file.
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// MaxTruckHistory bounds the number of truck reports kept in memory.
const MaxTruckHistory = 10000

// TruckReport is one backend report as received.
type TruckReport struct {
	At     time.Time
	States []core.TruckState
}

// Backend stores snapshots in memory and exports each one to OutputDir.
type Backend struct {
	cfg config.MemoryConfig

	latest  *core.WorldSnapshot
	history []TruckReport

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init validates the compression setting.
func (b *Backend) Init() error {
	_, err := codecFor(b.cfg.Compression)
	return err
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// SaveSnapshot keeps s as the latest save and writes it to disk. The ID is
// assigned before export so the file and memory agree.
func (b *Backend) SaveSnapshot(s *core.WorldSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter

	if b.cfg.OutputDir != "" {
		path, err := b.export(s)
		if err != nil {
			return err
		}
		b.lastExportPath = path
	}

	cp := *s
	b.latest = &cp
	return nil
}

// LoadSnapshot returns the latest save from memory, falling back to the
// newest export in OutputDir.
func (b *Backend) LoadSnapshot() (core.WorldSnapshot, error) {
	b.mu.RLock()
	latest := b.latest
	b.mu.RUnlock()
	if latest != nil {
		return *latest, nil
	}

	if b.cfg.OutputDir == "" {
		return core.WorldSnapshot{}, storage.ErrNoSnapshot
	}
	snap, err := ReadLatest(b.cfg.OutputDir)
	if err != nil {
		return core.WorldSnapshot{}, err
	}

	b.mu.Lock()
	if snap.ID > b.idCounter {
		b.idCounter = snap.ID
	}
	b.mu.Unlock()
	return snap, nil
}

// RecordTruckStates appends a report, dropping the oldest beyond MaxTruckHistory.
func (b *Backend) RecordTruckStates(states []core.TruckState, at time.Time) error {
	if len(states) == 0 {
		return errors.New("empty truck report")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, TruckReport{At: at, States: append([]core.TruckState(nil), states...)})
	if over := len(b.history) - MaxTruckHistory; over > 0 {
		b.history = append(b.history[:0:0], b.history[over:]...)
	}
	return nil
}

// TruckHistory returns a copy of the recorded reports, oldest first.
func (b *Backend) TruckHistory() []TruckReport {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]TruckReport(nil), b.history...)
}

// ExportedFilePath returns the path of the last written save file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
