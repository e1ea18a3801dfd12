package worker

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetfeast/pogicity/internal/dispatcher"
	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/internal/tiles"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// ErrNoBackend is returned by commands that need storage when none is configured.
var ErrNoBackend = errors.New("no storage backend configured")

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Editor commands - sync, the caller wants the changed cells back
	d.Register(":PLACE:", m.handlePlace, dispatcher.Logged())
	d.Register(":PLACE:BUILDING:", m.handlePlaceBuilding, dispatcher.Logged())
	d.Register(":REMOVE:", m.handleRemove, dispatcher.Logged())
	d.Register(":ERASE:", m.handleErase, dispatcher.Logged())

	// Agents
	d.Register(":SPAWN:CAR:", m.handleSpawnCar, dispatcher.Logged())
	d.Register(":SPAWN:CHARACTER:", m.handleSpawnCharacter, dispatcher.Logged())
	d.Register(":DESPAWN:", m.handleDespawn, dispatcher.Logged())
	d.Register(":SEND:CAR:", m.handleSendCar, dispatcher.Logged())

	// Fleet feed - buffered, the engine only keeps the latest report anyway
	d.Register(":TRUCKS:", m.handleTrucks, dispatcher.Buffered(100), dispatcher.Logged())

	// Persistence
	d.Register(":SAVE:", m.handleSave, dispatcher.Logged())
	d.Register(":LOAD:", m.handleLoad, dispatcher.Logged())

	// Scene settings
	d.Register(":SETTINGS:LIGHTING:", m.handleLighting, dispatcher.Logged())
	d.Register(":SETTINGS:VISUAL:", m.handleVisual, dispatcher.Logged())

	d.Register(":STATS:", m.handleStats)
}

func (m *Manager) handlePlace(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParsePlace(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse place: %w", err)
	}
	// buildings need a catalog id; they go through :PLACE:BUILDING:
	if req.Kind == core.TileBuilding {
		return nil, fmt.Errorf("%w: use :PLACE:BUILDING: for buildings", grid.ErrInvalidPlacement)
	}
	fp := req.Footprint
	if fp.Width == 0 && fp.Height == 0 {
		fp = tiles.FootprintOf(req.Kind)
	}
	cells, err := m.deps.Engine.Place(req.X, req.Y, req.Kind, fp, grid.PlaceMeta{})
	if err != nil {
		return nil, fmt.Errorf("failed to place %s at (%d,%d): %w", req.Kind, req.X, req.Y, err)
	}
	return cells, nil
}

func (m *Manager) handlePlaceBuilding(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParsePlaceBuilding(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse place building: %w", err)
	}
	cells, err := m.deps.Engine.PlaceBuilding(req.X, req.Y, req.BuildingID, req.Orientation)
	if err != nil {
		return nil, fmt.Errorf("failed to place building %q at (%d,%d): %w", req.BuildingID, req.X, req.Y, err)
	}
	return cells, nil
}

func (m *Manager) handleRemove(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParseCell(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse remove: %w", err)
	}
	cells, err := m.deps.Engine.Remove(req.X, req.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to remove at (%d,%d): %w", req.X, req.Y, err)
	}
	return cells, nil
}

func (m *Manager) handleErase(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParseCell(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse erase: %w", err)
	}
	cells, err := m.deps.Engine.Erase(req.X, req.Y)
	if err != nil {
		return nil, fmt.Errorf("failed to erase at (%d,%d): %w", req.X, req.Y, err)
	}
	return cells, nil
}

func (m *Manager) handleSpawnCar(e dispatcher.Event) (any, error) {
	car, err := m.deps.Parser.ParseSpawnCar(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse car: %w", err)
	}
	if err := m.deps.Engine.SpawnCar(car); err != nil {
		return nil, fmt.Errorf("failed to spawn car %q: %w", car.ID, err)
	}
	return car.ID, nil
}

func (m *Manager) handleSpawnCharacter(e dispatcher.Event) (any, error) {
	ch, err := m.deps.Parser.ParseSpawnCharacter(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse character: %w", err)
	}
	if err := m.deps.Engine.SpawnCharacter(ch); err != nil {
		return nil, fmt.Errorf("failed to spawn character %q: %w", ch.ID, err)
	}
	return ch.ID, nil
}

func (m *Manager) handleDespawn(e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseAgentID(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse despawn: %w", err)
	}
	if err := m.deps.Engine.Despawn(id); err != nil {
		return nil, fmt.Errorf("failed to despawn %q: %w", id, err)
	}
	return nil, nil
}

func (m *Manager) handleSendCar(e dispatcher.Event) (any, error) {
	req, err := m.deps.Parser.ParseSendCar(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse send car: %w", err)
	}
	if err := m.deps.Engine.SendCarToBuilding(req.ID, req.X, req.Y); err != nil {
		return nil, fmt.Errorf("failed to send car %q: %w", req.ID, err)
	}
	return nil, nil
}

func (m *Manager) handleTrucks(e dispatcher.Event) (any, error) {
	snap, err := m.deps.Parser.ParseTrucks(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trucks: %w", err)
	}
	return nil, m.SubmitTrucks(snap)
}

// SubmitTrucks hands a backend report to the engine and appends it to the
// fleet history. The feed sinks call it directly.
func (m *Manager) SubmitTrucks(snap core.TruckSnapshot) error {
	if snap.ReceivedAt.IsZero() {
		snap.ReceivedAt = time.Now()
	}
	m.deps.Engine.SubmitTrucks(snap)

	if m.hasBackend() && len(snap.Trucks) > 0 {
		if err := m.backend.RecordTruckStates(snap.Trucks, snap.ReceivedAt); err != nil {
			return fmt.Errorf("failed to record truck states: %w", err)
		}
	}
	return nil
}

func (m *Manager) handleSave(e dispatcher.Event) (any, error) {
	if !m.hasBackend() {
		return nil, ErrNoBackend
	}
	snap := m.deps.Engine.Snapshot()
	if err := m.backend.SaveSnapshot(&snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	m.deps.LogManager.WriteLog(":SAVE:", fmt.Sprintf("Saved snapshot %d at tick %d", snap.ID, snap.Tick), "INFO")
	return snap.ID, nil
}

func (m *Manager) handleLoad(e dispatcher.Event) (any, error) {
	if !m.hasBackend() {
		return nil, ErrNoBackend
	}
	snap, err := m.backend.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := m.deps.Engine.Restore(snap); err != nil {
		return nil, fmt.Errorf("failed to restore snapshot %d: %w", snap.ID, err)
	}
	return snap.ID, nil
}

func (m *Manager) handleLighting(e dispatcher.Event) (any, error) {
	l, err := m.deps.Parser.ParseLighting(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lighting: %w", err)
	}
	if err := m.deps.Settings.SetLighting(l); err != nil {
		return nil, fmt.Errorf("failed to set lighting: %w", err)
	}
	return l, nil
}

func (m *Manager) handleVisual(e dispatcher.Event) (any, error) {
	v, err := m.deps.Parser.ParseVisual(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse visual settings: %w", err)
	}
	if err := m.deps.Settings.SetVisual(v); err != nil {
		return nil, fmt.Errorf("failed to set visual settings: %w", err)
	}
	return m.deps.Settings.Scene().Visual, nil
}

func (m *Manager) handleStats(e dispatcher.Event) (any, error) {
	return m.deps.Engine.Stats(), nil
}
