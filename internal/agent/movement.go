package agent

import (
	"fmt"
	"math"

	"github.com/fleetfeast/pogicity/pkg/core"
)

// Planner produces a route between two grid points. The returned path must
// end at to; the first waypoint is the first step away from from.
type Planner interface {
	Plan(from, to core.GridCoordinate) ([]core.GridCoordinate, error)
}

// DirectPlanner routes along the X axis first and then the Y axis in unit
// steps, ignoring obstacles.
type DirectPlanner struct{}

// Plan implements Planner.
func (DirectPlanner) Plan(from, to core.GridCoordinate) ([]core.GridCoordinate, error) {
	var path []core.GridCoordinate
	cur := from
	for cur.X != to.X {
		cur.X = stepToward(cur.X, to.X)
		path = append(path, cur)
	}
	for cur.Y != to.Y {
		cur.Y = stepToward(cur.Y, to.Y)
		path = append(path, cur)
	}
	if len(path) == 0 {
		path = append(path, to)
	}
	return path, nil
}

func stepToward(v, target float64) float64 {
	if math.Abs(target-v) <= 1 {
		return target
	}
	if target > v {
		return v + 1
	}
	return v - 1
}

// Mover plans and advances agents. It reads zones but never mutates the
// grid or the zone layout.
type Mover struct {
	planner Planner
	zones   ZoneIndex
}

// NewMover creates a mover. A nil planner means DirectPlanner.
func NewMover(planner Planner, zones ZoneIndex) *Mover {
	if planner == nil {
		planner = DirectPlanner{}
	}
	return &Mover{planner: planner, zones: zones}
}

// PlanTrucks gives a route to every en-route zone-bound car that has none,
// targeting the first free anchor of its destination. A car whose
// destination has no free anchor waits without a route.
func (m *Mover) PlanTrucks(reg *Registry) (planned int, errs []error) {
	reg.EachCar(func(c *core.Car) {
		if c.IsParked || c.DestinationZone == nil || len(c.Path) > 0 {
			return
		}
		slot, ok, err := m.zones.NearestFreeSlot(*c.DestinationZone, OccupiedSlots(reg, c.ID))
		if err != nil {
			errs = append(errs, fmt.Errorf("plan %s: %w", c.ID, err))
			return
		}
		if !ok {
			return
		}
		path, err := m.planner.Plan(c.Position, slot)
		if err != nil {
			errs = append(errs, fmt.Errorf("plan %s: %w", c.ID, err))
			return
		}
		c.Path = path
		c.PathIndex = 0
		planned++
	})
	return planned, errs
}

// PlanToBuilding routes a car to a building origin.
func (m *Mover) PlanToBuilding(c *core.Car, target core.BuildingOrigin) error {
	path, err := m.planner.Plan(c.Position, core.GridCoordinate{X: float64(target.X), Y: float64(target.Y)})
	if err != nil {
		return err
	}
	c.ClearZonePair()
	c.ParkedAtBuilding = nil
	c.DestinationBuilding = &target
	c.IsParked = false
	c.Path = path
	c.PathIndex = 0
	return nil
}

// Advance moves a car up to Speed cells along its path. It reports whether
// the car reached the end of its path this tick. A building-bound car parks
// at its destination on arrival; zone-bound trucks stop and wait for the
// backend to report them parked.
func (m *Mover) Advance(c *core.Car) bool {
	if c.IsParked || !c.HasPath() {
		return false
	}

	remaining := c.Speed
	for remaining > 0 && c.HasPath() {
		target := c.Path[c.PathIndex]
		dx, dy := target.X-c.Position.X, target.Y-c.Position.Y
		dist := math.Hypot(dx, dy)
		if dist > 0 {
			c.Direction = facing(dx, dy, c.Direction)
		}
		if dist <= remaining {
			c.Position = target
			c.PathIndex++
			remaining -= dist
			continue
		}
		c.Position.X += dx / dist * remaining
		c.Position.Y += dy / dist * remaining
		remaining = 0
	}

	if c.HasPath() {
		return false
	}
	if c.DestinationBuilding != nil {
		c.ParkedAtBuilding = c.DestinationBuilding
		c.DestinationBuilding = nil
		c.IsParked = true
		c.ClearPath()
	}
	return true
}

// facing picks the cardinal direction of the dominant movement axis.
func facing(dx, dy float64, current core.Direction) core.Direction {
	switch {
	case math.Abs(dx) >= math.Abs(dy) && dx > 0:
		return core.DirectionRight
	case math.Abs(dx) >= math.Abs(dy) && dx < 0:
		return core.DirectionLeft
	case dy > 0:
		return core.DirectionDown
	case dy < 0:
		return core.DirectionUp
	default:
		return current
	}
}

// Walkable reports whether a pedestrian may enter a cell.
type Walkable func(x, y int) bool

// StepCharacter walks a pedestrian Speed cells in its facing direction. If
// the next cell is not walkable the character turns clockwise instead.
func (m *Mover) StepCharacter(ch *core.Character, walkable Walkable) {
	dx, dy := vector(ch.Direction)
	next := core.GridCoordinate{X: ch.Position.X + dx*ch.Speed, Y: ch.Position.Y + dy*ch.Speed}
	if walkable(next.Cell()) {
		ch.Position = next
		return
	}
	ch.Direction = clockwise(ch.Direction)
}

func vector(d core.Direction) (float64, float64) {
	switch d {
	case core.DirectionUp:
		return 0, -1
	case core.DirectionDown:
		return 0, 1
	case core.DirectionLeft:
		return -1, 0
	case core.DirectionRight:
		return 1, 0
	default:
		panic(fmt.Sprintf("agent: unknown direction %q", d))
	}
}

func clockwise(d core.Direction) core.Direction {
	switch d {
	case core.DirectionDown:
		return core.DirectionLeft
	case core.DirectionLeft:
		return core.DirectionUp
	case core.DirectionUp:
		return core.DirectionRight
	case core.DirectionRight:
		return core.DirectionDown
	default:
		panic(fmt.Sprintf("agent: unknown direction %q", d))
	}
}
