// Package agent owns the mobile entities of the world: pedestrians, cars and
// fleet trucks. It reconciles trucks against backend status and advances
// agents along the paths produced by a Planner.
package agent

import (
	"errors"
	"fmt"

	"github.com/fleetfeast/pogicity/pkg/core"
)

var (
	// ErrUnknownAgent is returned for an id that is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrDuplicateAgent is returned when spawning with an id already in use.
	ErrDuplicateAgent = errors.New("duplicate agent id")
)

// Registry holds cars and characters in spawn order. Ids are unique across both.
// Registry is not safe for concurrent use.
type Registry struct {
	cars       map[string]*core.Car
	carOrder   []string
	characters map[string]*core.Character
	charOrder  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		cars:       make(map[string]*core.Car),
		characters: make(map[string]*core.Character),
	}
}

func (r *Registry) taken(id string) bool {
	_, car := r.cars[id]
	_, ch := r.characters[id]
	return car || ch
}

// AddCar registers a car. Speed and direction get defaults when unset.
func (r *Registry) AddCar(c core.Car) error {
	if c.ID == "" {
		return fmt.Errorf("car without id")
	}
	if r.taken(c.ID) {
		return fmt.Errorf("%w: %q", ErrDuplicateAgent, c.ID)
	}
	if c.Speed == 0 {
		c.Speed = core.CarSpeed
	}
	if c.Direction == "" {
		c.Direction = core.DefaultDirection
	}
	c.Path = append([]core.GridCoordinate(nil), c.Path...)
	r.cars[c.ID] = &c
	r.carOrder = append(r.carOrder, c.ID)
	return nil
}

// AddCharacter registers a pedestrian. Speed and direction get defaults when unset.
func (r *Registry) AddCharacter(ch core.Character) error {
	if ch.ID == "" {
		return fmt.Errorf("character without id")
	}
	if r.taken(ch.ID) {
		return fmt.Errorf("%w: %q", ErrDuplicateAgent, ch.ID)
	}
	if ch.Speed == 0 {
		ch.Speed = core.CharacterSpeed
	}
	if ch.Direction == "" {
		ch.Direction = core.DefaultDirection
	}
	r.characters[ch.ID] = &ch
	r.charOrder = append(r.charOrder, ch.ID)
	return nil
}

// Remove despawns the car or character with the given id.
func (r *Registry) Remove(id string) error {
	if _, ok := r.cars[id]; ok {
		delete(r.cars, id)
		r.carOrder = without(r.carOrder, id)
		return nil
	}
	if _, ok := r.characters[id]; ok {
		delete(r.characters, id)
		r.charOrder = without(r.charOrder, id)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAgent, id)
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Car returns the live record for id. Callers holding the engine lock may mutate it.
func (r *Registry) Car(id string) (*core.Car, bool) {
	c, ok := r.cars[id]
	return c, ok
}

// Character returns the live record for id.
func (r *Registry) Character(id string) (*core.Character, bool) {
	ch, ok := r.characters[id]
	return ch, ok
}

// EachCar visits live car records in spawn order.
func (r *Registry) EachCar(fn func(*core.Car)) {
	for _, id := range r.carOrder {
		fn(r.cars[id])
	}
}

// EachCharacter visits live character records in spawn order.
func (r *Registry) EachCharacter(fn func(*core.Character)) {
	for _, id := range r.charOrder {
		fn(r.characters[id])
	}
}

// Cars returns copies of every car in spawn order.
func (r *Registry) Cars() []core.Car {
	out := make([]core.Car, 0, len(r.carOrder))
	r.EachCar(func(c *core.Car) {
		out = append(out, cloneCar(*c))
	})
	return out
}

// Characters returns copies of every character in spawn order.
func (r *Registry) Characters() []core.Character {
	out := make([]core.Character, 0, len(r.charOrder))
	r.EachCharacter(func(ch *core.Character) {
		out = append(out, *ch)
	})
	return out
}

// Len returns the number of cars and characters.
func (r *Registry) Len() (cars, characters int) {
	return len(r.cars), len(r.characters)
}

// Load replaces the registry contents, typically from a snapshot.
func (r *Registry) Load(cars []core.Car, characters []core.Character) error {
	next := NewRegistry()
	for _, c := range cars {
		if err := next.AddCar(cloneCar(c)); err != nil {
			return err
		}
	}
	for _, ch := range characters {
		if err := next.AddCharacter(ch); err != nil {
			return err
		}
	}
	*r = *next
	return nil
}

func cloneCar(c core.Car) core.Car {
	c.Path = append([]core.GridCoordinate(nil), c.Path...)
	if c.ParkedAtBuilding != nil {
		v := *c.ParkedAtBuilding
		c.ParkedAtBuilding = &v
	}
	if c.DestinationBuilding != nil {
		v := *c.DestinationBuilding
		c.DestinationBuilding = &v
	}
	if c.ParkedAtZone != nil {
		c.ParkedAtZone = core.StringPtr(*c.ParkedAtZone)
	}
	if c.DestinationZone != nil {
		c.DestinationZone = core.StringPtr(*c.DestinationZone)
	}
	return c
}
