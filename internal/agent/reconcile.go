package agent

import (
	"fmt"
	"hash/fnv"

	"github.com/fleetfeast/pogicity/internal/cache"
	"github.com/fleetfeast/pogicity/internal/zone"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// ZoneIndex is the part of the zone index the agent layer reads.
type ZoneIndex interface {
	Has(id string) bool
	Get(id string) (core.ZoneConfig, error)
	NearestFreeSlot(id string, occupied []core.GridCoordinate) (core.GridCoordinate, bool, error)
}

// Reconciler maps backend truck states onto local car records.
//
//	IDLE        parked at current_zone, destination and path cleared
//	MOVING      not parked, heading to destination_zone; path cleared when the destination changes
//	SERVING     parked at current_zone, Waiting counts ticks spent serving
//	RESTOCKING  parked at the depot zone, path cleared
//
// A state naming an unknown zone is rejected and the truck keeps its
// previous local state. The backend never moves a truck directly; position
// only changes through Advance.
type Reconciler struct {
	zones ZoneIndex
	depot string
	fleet *cache.FleetCache
}

// NewReconciler creates a reconciler that sends restocking trucks to depot.
func NewReconciler(zones ZoneIndex, depot string, fleet *cache.FleetCache) (*Reconciler, error) {
	if !zones.Has(depot) {
		return nil, fmt.Errorf("depot zone: %w: %q", zone.ErrUnknownZone, depot)
	}
	if fleet == nil {
		fleet = cache.NewFleetCache()
	}
	return &Reconciler{zones: zones, depot: depot, fleet: fleet}, nil
}

// Depot returns the zone restocking trucks park at.
func (r *Reconciler) Depot() string {
	return r.depot
}

// Result summarises one reconciliation pass.
type Result struct {
	Applied int
	Held    int
	Spawned []string
	Errors  []error
}

// Reconcile applies every state in order. It never stops early: a bad
// state is reported in Result.Errors and the rest are still applied.
func (r *Reconciler) Reconcile(reg *Registry, states []core.TruckState) Result {
	var res Result
	for _, s := range states {
		spawned, applied, err := r.apply(reg, s)
		switch {
		case err != nil:
			res.Errors = append(res.Errors, err)
			res.Held++
		case !applied:
			res.Held++
		default:
			res.Applied++
		}
		if spawned {
			res.Spawned = append(res.Spawned, s.ID)
		}
	}
	return res
}

func (r *Reconciler) validate(s core.TruckState) error {
	switch s.Status {
	case core.TruckIdle, core.TruckServing:
		if !r.zones.Has(s.CurrentZone) {
			return fmt.Errorf("truck %s %s: %w: %q", s.ID, s.Status, zone.ErrUnknownZone, s.CurrentZone)
		}
	case core.TruckMoving:
		if s.DestinationZone != nil && !r.zones.Has(*s.DestinationZone) {
			return fmt.Errorf("truck %s MOVING: %w: %q", s.ID, zone.ErrUnknownZone, *s.DestinationZone)
		}
	case core.TruckRestocking:
	default:
		panic(fmt.Sprintf("agent: unknown truck status %q", s.Status))
	}
	return nil
}

func (r *Reconciler) apply(reg *Registry, s core.TruckState) (spawned, applied bool, err error) {
	if err := r.validate(s); err != nil {
		return false, false, err
	}
	if s.Status == core.TruckMoving && s.DestinationZone == nil {
		// nowhere to go; keep whatever the truck was doing
		return false, false, nil
	}

	car, ok := reg.Car(s.ID)
	if !ok {
		if err := r.spawn(reg, s); err != nil {
			return false, false, err
		}
		car, _ = reg.Car(s.ID)
		spawned = true
	}

	prev, seen := r.fleet.GetTruck(s.ID)

	switch s.Status {
	case core.TruckIdle:
		park(car, s.CurrentZone)
		car.Waiting = 0
	case core.TruckMoving:
		dest := *s.DestinationZone
		if car.DestinationZone == nil || *car.DestinationZone != dest {
			car.ClearPath()
		}
		car.IsParked = false
		car.ParkedAtZone = nil
		car.DestinationZone = core.StringPtr(dest)
		car.ClearBuildingPair()
		car.Waiting = 0
	case core.TruckServing:
		park(car, s.CurrentZone)
		if !seen || prev.Status != core.TruckServing {
			car.Waiting = 0
		}
		car.Waiting++
	case core.TruckRestocking:
		park(car, r.depot)
		car.Waiting = 0
	}

	r.fleet.SetTruck(s)
	return spawned, true, nil
}

func park(car *core.Car, zoneID string) {
	car.IsParked = true
	car.ParkedAtZone = core.StringPtr(zoneID)
	car.DestinationZone = nil
	car.ClearBuildingPair()
	car.ClearPath()
}

// spawn creates the local record for a truck seen for the first time,
// placed on a free anchor of the zone it is reported in.
func (r *Reconciler) spawn(reg *Registry, s core.TruckState) error {
	home := s.CurrentZone
	switch {
	case s.Status == core.TruckRestocking:
		home = r.depot
	case !r.zones.Has(home) && s.DestinationZone != nil:
		home = *s.DestinationZone
	}

	z, err := r.zones.Get(home)
	if err != nil {
		return fmt.Errorf("spawn truck %s: %w", s.ID, err)
	}

	pos := core.GridCoordinate{X: float64(z.Bounds.X), Y: float64(z.Bounds.Y)}
	if slot, ok, err := r.zones.NearestFreeSlot(home, OccupiedSlots(reg, "")); err == nil && ok {
		pos = slot
	}

	return reg.AddCar(core.Car{
		ID:           s.ID,
		Position:     pos,
		Speed:        core.CarSpeed,
		Direction:    core.DefaultDirection,
		CarType:      truckType(s.ID),
		IsParked:     true,
		ParkedAtZone: core.StringPtr(home),
	})
}

var truckTypes = []core.CarType{core.CarTruck1, core.CarTruck2, core.CarTruck3}

// truckType picks a stable sprite for a truck id.
func truckType(id string) core.CarType {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return truckTypes[h.Sum32()%uint32(len(truckTypes))]
}

// Forget drops the remembered state of a truck, e.g. after it is despawned.
func (r *Reconciler) Forget(id string) {
	r.fleet.RemoveTruck(id)
}

// OccupiedSlots lists positions that zone-bound cars other than exclude
// hold or are heading to: parked positions and the final waypoint of any
// planned route.
func OccupiedSlots(reg *Registry, exclude string) []core.GridCoordinate {
	var out []core.GridCoordinate
	reg.EachCar(func(c *core.Car) {
		if c.ID == exclude || !c.ZoneBound() {
			return
		}
		if c.IsParked {
			out = append(out, c.Position)
			return
		}
		if len(c.Path) > 0 {
			out = append(out, c.Path[len(c.Path)-1])
		}
	})
	return out
}
