package sim

import (
	"fmt"
	"time"

	"github.com/fleetfeast/pogicity/internal/agent"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// Snapshot captures the grid and every agent at the current tick.
func (e *Engine) Snapshot() core.WorldSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.WorldSnapshot{
		SavedAt:    time.Now().UTC(),
		Tick:       e.tick,
		GridWidth:  e.grid.Width(),
		GridHeight: e.grid.Height(),
		Checksum:   e.checksum,
		Cells:      e.grid.Cells(),
		Cars:       e.agents.Cars(),
		Characters: e.agents.Characters(),
	}
}

// Restore replaces the world with a saved snapshot. The snapshot is checked
// in full before anything changes; on error the engine is untouched.
// Remembered truck statuses are dropped so the next backend snapshot is
// applied from scratch.
func (e *Engine) Restore(snap core.WorldSnapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if snap.GridWidth != e.grid.Width() || snap.GridHeight != e.grid.Height() {
		return fmt.Errorf("restore: snapshot is %dx%d, grid is %dx%d",
			snap.GridWidth, snap.GridHeight, e.grid.Width(), e.grid.Height())
	}

	// validate agents on a scratch registry before touching the grid
	scratch := agent.NewRegistry()
	if err := scratch.Load(snap.Cars, snap.Characters); err != nil {
		return fmt.Errorf("restore agents: %w", err)
	}
	if err := e.grid.Restore(snap.Cells); err != nil {
		return fmt.Errorf("restore grid: %w", err)
	}

	sum := e.grid.Checksum()
	if snap.Checksum != "" && snap.Checksum != sum {
		e.logger.Warn("Snapshot checksum mismatch", "stored", snap.Checksum, "computed", sum)
	}

	e.agents = scratch
	e.checksum = sum
	e.tick = snap.Tick
	e.latest = nil
	e.pending.Clear()
	e.fleet.Reset()

	e.logger.Info("World restored", "tick", snap.Tick, "cars", len(snap.Cars), "characters", len(snap.Characters))
	return nil
}
