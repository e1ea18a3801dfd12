package sim

import (
	"fmt"

	"github.com/fleetfeast/pogicity/internal/agent"
	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// Place puts a tile or prop on the grid. See grid.Store.Place.
func (e *Engine) Place(x, y int, kind core.TileKind, fp core.Footprint, meta grid.PlaceMeta) ([]core.GridCell, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edited(e.grid.Place(x, y, kind, fp, meta))
}

// PlaceBuilding puts a catalog building on the grid.
func (e *Engine) PlaceBuilding(x, y int, buildingID string, orientation core.Direction) ([]core.GridCell, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edited(e.grid.PlaceBuilding(x, y, buildingID, orientation))
}

// Remove clears the object whose origin is (x, y).
func (e *Engine) Remove(x, y int) ([]core.GridCell, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edited(e.grid.Remove(x, y))
}

// Erase clears whatever object covers (x, y).
func (e *Engine) Erase(x, y int) ([]core.GridCell, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.edited(e.grid.Erase(x, y))
}

// edited refreshes the cached checksum after a successful mutation.
func (e *Engine) edited(cells []core.GridCell, err error) ([]core.GridCell, error) {
	if err != nil {
		return nil, err
	}
	e.checksum = e.grid.Checksum()
	return cells, nil
}

// CellAt returns a copy of the cell at (x, y).
func (e *Engine) CellAt(x, y int) (core.GridCell, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.CellAt(x, y)
}

// ResolveOrigin returns the origin of the object covering (x, y).
func (e *Engine) ResolveOrigin(x, y int) (int, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.ResolveOrigin(x, y)
}

// CanPlace reports whether fp fits at (x, y) without overlap.
func (e *Engine) CanPlace(x, y int, fp core.Footprint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.CanPlace(x, y, fp)
}

// Stats summarises grid occupancy.
func (e *Engine) Stats() grid.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Stats()
}

// Cells returns a copy of every cell in row-major order.
func (e *Engine) Cells() []core.GridCell {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid.Cells()
}

// GridSize returns the grid extent.
func (e *Engine) GridSize() (width, height int) {
	return e.grid.Width(), e.grid.Height()
}

// Zones returns every zone in declaration order.
func (e *Engine) Zones() []core.ZoneConfig {
	return e.zones.Zones()
}

// SpawnCar adds a generic car at a grid position.
func (e *Engine) SpawnCar(c core.Car) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.inBounds(c.Position); err != nil {
		return err
	}
	return e.agents.AddCar(c)
}

// SpawnCharacter adds a pedestrian at a grid position.
func (e *Engine) SpawnCharacter(ch core.Character) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.inBounds(ch.Position); err != nil {
		return err
	}
	return e.agents.AddCharacter(ch)
}

func (e *Engine) inBounds(p core.GridCoordinate) error {
	x, y := p.Cell()
	if _, err := e.grid.CellAt(x, y); err != nil {
		return fmt.Errorf("spawn at (%g,%g): %w", p.X, p.Y, err)
	}
	return nil
}

// Despawn removes a car or character. A despawned truck is re-created on
// the next snapshot that mentions it.
func (e *Engine) Despawn(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.agents.Remove(id); err != nil {
		return err
	}
	e.reconciler.Forget(id)
	return nil
}

// SendCarToBuilding routes a car to the building covering (x, y). The car
// parks at the building origin when it arrives.
func (e *Engine) SendCarToBuilding(id string, x, y int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	car, ok := e.agents.Car(id)
	if !ok {
		return fmt.Errorf("%w: %q", agent.ErrUnknownAgent, id)
	}
	ox, oy, err := e.grid.ResolveOrigin(x, y)
	if err != nil {
		return err
	}
	origin, _ := e.grid.CellAt(ox, oy)
	if origin.Type != core.TileBuilding {
		return fmt.Errorf("(%d,%d) is %s: %w", x, y, origin.Type, grid.ErrNotAnOrigin)
	}
	return e.mover.PlanToBuilding(car, core.BuildingOrigin{X: ox, Y: oy})
}

// Cars returns copies of every car.
func (e *Engine) Cars() []core.Car {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agents.Cars()
}

// Characters returns copies of every pedestrian.
func (e *Engine) Characters() []core.Character {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agents.Characters()
}

// Car returns a copy of one car.
func (e *Engine) Car(id string) (core.Car, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.agents.Cars() {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Car{}, fmt.Errorf("%w: %q", agent.ErrUnknownAgent, id)
}
