// Package sim runs the world: it owns the grid, the zone index and the agent
// registry, serializes editor commands against fixed-timestep ticks, and
// applies backend truck snapshots at the start of each tick.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fleetfeast/pogicity/internal/agent"
	"github.com/fleetfeast/pogicity/internal/building"
	"github.com/fleetfeast/pogicity/internal/cache"
	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/internal/queue"
	"github.com/fleetfeast/pogicity/internal/zone"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// Dependencies holds everything the engine needs.
type Dependencies struct {
	Buildings building.Registry
	Zones     *zone.Index
	// Depot is the zone restocking trucks park at.
	Depot   string
	Planner agent.Planner
	Fleet   *cache.FleetCache
	Logger  *slog.Logger
}

// Engine is the single writer of world state. All exported methods are safe
// for concurrent use.
type Engine struct {
	mu sync.Mutex

	grid       *grid.Store
	zones      *zone.Index
	agents     *agent.Registry
	reconciler *agent.Reconciler
	mover      *agent.Mover
	fleet      *cache.FleetCache
	logger     *slog.Logger

	pending    *queue.Queue[core.TruckSnapshot]
	latest     *core.TruckSnapshot
	superseded cache.SafeCounter

	tick     uint64
	checksum string
}

// New creates an engine over an empty grid.
func New(deps Dependencies) (*Engine, error) {
	if deps.Zones == nil {
		return nil, errors.New("sim: zone index is required")
	}
	if deps.Fleet == nil {
		deps.Fleet = cache.NewFleetCache()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	rec, err := agent.NewReconciler(deps.Zones, deps.Depot, deps.Fleet)
	if err != nil {
		return nil, err
	}

	g := grid.New(deps.Buildings)
	return &Engine{
		grid:       g,
		zones:      deps.Zones,
		agents:     agent.NewRegistry(),
		reconciler: rec,
		mover:      agent.NewMover(deps.Planner, deps.Zones),
		fleet:      deps.Fleet,
		logger:     deps.Logger,
		pending:    queue.New[core.TruckSnapshot](),
		checksum:   g.Checksum(),
	}, nil
}

// SubmitTrucks queues a backend snapshot for the next tick. Safe to call from
// feed goroutines; it never blocks on the engine lock.
func (e *Engine) SubmitTrucks(snap core.TruckSnapshot) {
	if snap.ReceivedAt.IsZero() {
		snap.ReceivedAt = time.Now()
	}
	e.pending.Push(snap)
}

// TickReport describes what one tick did.
type TickReport struct {
	Tick       uint64
	Reconciled agent.Result
	Planned    int
	Arrived    []string
	// Superseded counts snapshots dropped because a newer one arrived first.
	Superseded int
	Errors     []error
}

// Tick advances the world by one step: reconcile trucks against the latest
// snapshot, plan routes for trucks without one, then move every agent.
func (e *Engine) Tick() TickReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	rep := TickReport{}

	if last, dropped, ok := e.pending.TakeLast(); ok {
		rep.Superseded = dropped
		for i := 0; i < dropped; i++ {
			e.superseded.Inc()
		}
		e.latest = &last
	}

	if e.latest != nil {
		rep.Reconciled = e.reconciler.Reconcile(e.agents, e.latest.Trucks)
		rep.Errors = append(rep.Errors, rep.Reconciled.Errors...)
	}

	planned, errs := e.mover.PlanTrucks(e.agents)
	rep.Planned = planned
	rep.Errors = append(rep.Errors, errs...)

	e.agents.EachCar(func(c *core.Car) {
		if e.mover.Advance(c) {
			rep.Arrived = append(rep.Arrived, c.ID)
		}
	})
	e.agents.EachCharacter(func(ch *core.Character) {
		e.mover.StepCharacter(ch, e.walkable)
	})

	e.tick++
	rep.Tick = e.tick

	for _, err := range rep.Errors {
		e.logger.Warn("tick error", "tick", e.tick, "error", err)
	}
	return rep
}

// walkable lets pedestrians on any in-bounds cell that is not a building.
func (e *Engine) walkable(x, y int) bool {
	c, err := e.grid.CellAt(x, y)
	if err != nil {
		return false
	}
	return c.Type != core.TileBuilding
}

// Run ticks every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sim: tick interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Simulation started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Simulation stopped", "tick", e.CurrentTick())
			return ctx.Err()
		case <-ticker.C:
			rep := e.Tick()
			if len(rep.Arrived) > 0 {
				e.logger.Debug("agents arrived", "tick", rep.Tick, "ids", rep.Arrived)
			}
		}
	}
}

// CurrentTick returns the number of ticks run so far.
func (e *Engine) CurrentTick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Checksum returns the grid checksum as of the last edit.
func (e *Engine) Checksum() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checksum
}

// WorldState returns the current tick and grid checksum for log records.
// ok is false instead of waiting when a tick or edit holds the engine.
func (e *Engine) WorldState() (tick uint64, checksum string, ok bool) {
	if !e.mu.TryLock() {
		return 0, "", false
	}
	defer e.mu.Unlock()
	return e.tick, e.checksum, true
}

// SupersededSnapshots returns how many backend snapshots were dropped
// unapplied because a newer one arrived within the same tick.
func (e *Engine) SupersededSnapshots() int {
	return e.superseded.Value()
}

// LatestTrucks returns the snapshot being reconciled, if any.
func (e *Engine) LatestTrucks() (core.TruckSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest == nil {
		return core.TruckSnapshot{}, false
	}
	return *e.latest, true
}

// FleetStatuses counts trucks per last applied status.
func (e *Engine) FleetStatuses() map[core.TruckStatus]int {
	return e.fleet.Statuses()
}
