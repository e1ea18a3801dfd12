package cache

import (
	"sync"

	"github.com/fleetfeast/pogicity/pkg/core"
)

// FleetCache remembers the last backend state applied to each truck so that
// reconciliation can tell a status transition from a repeated report.
type FleetCache struct {
	m      sync.Mutex
	Trucks map[string]core.TruckState
}

func NewFleetCache() *FleetCache {
	return &FleetCache{
		m:      sync.Mutex{},
		Trucks: make(map[string]core.TruckState),
	}
}

func (c *FleetCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Trucks = make(map[string]core.TruckState)
}

func (c *FleetCache) GetTruck(id string) (core.TruckState, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if s, ok := c.Trucks[id]; ok {
		return s, true
	}
	return core.TruckState{}, false
}

func (c *FleetCache) SetTruck(s core.TruckState) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Trucks[s.ID] = s
}

func (c *FleetCache) RemoveTruck(id string) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.Trucks, id)
}

// Statuses counts cached trucks per status.
func (c *FleetCache) Statuses() map[core.TruckStatus]int {
	c.m.Lock()
	defer c.m.Unlock()
	out := make(map[core.TruckStatus]int)
	for _, s := range c.Trucks {
		out[s.Status]++
	}
	return out
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
