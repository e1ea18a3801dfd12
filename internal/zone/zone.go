// Package zone indexes named rectangular regions of the map and their parking anchors.
package zone

import (
	"errors"
	"fmt"
	"os"

	"github.com/fleetfeast/pogicity/pkg/core"
	"gopkg.in/yaml.v3"
)

// ErrUnknownZone is returned for a zone id that has not been registered.
var ErrUnknownZone = errors.New("unknown zone")

// Index holds zones in registration order. Lookups that could match more
// than one zone return the earliest registered.
type Index struct {
	zones  []core.ZoneConfig
	byID   map[string]int
	width  int
	height int
}

// NewIndex creates an empty index for a grid of the given size.
func NewIndex(width, height int) *Index {
	return &Index{
		byID:   make(map[string]int),
		width:  width,
		height: height,
	}
}

// Register adds a zone. The id must be unique, the bounds must lie on the
// grid and every parking anchor must lie inside the bounds.
func (ix *Index) Register(z core.ZoneConfig) error {
	if z.ID == "" {
		return fmt.Errorf("zone without id")
	}
	if _, dup := ix.byID[z.ID]; dup {
		return fmt.Errorf("duplicate zone id %q", z.ID)
	}
	b := z.Bounds
	if b.Width < 1 || b.Height < 1 {
		return fmt.Errorf("zone %q: empty bounds %dx%d", z.ID, b.Width, b.Height)
	}
	if b.X < 0 || b.Y < 0 || b.X+b.Width > ix.width || b.Y+b.Height > ix.height {
		return fmt.Errorf("zone %q: bounds %+v outside the %dx%d grid", z.ID, b, ix.width, ix.height)
	}
	if z.TileKind != "" {
		if _, err := core.ParseTileKind(string(z.TileKind)); err != nil {
			return fmt.Errorf("zone %q: %w", z.ID, err)
		}
	}
	for i, p := range z.ParkingZones {
		if !b.Contains(p.X, p.Y) {
			return fmt.Errorf("zone %q: parking anchor %d (%g,%g) outside bounds", z.ID, i, p.X, p.Y)
		}
	}

	z.ParkingZones = append([]core.GridCoordinate(nil), z.ParkingZones...)
	ix.byID[z.ID] = len(ix.zones)
	ix.zones = append(ix.zones, z)
	return nil
}

// Get returns the zone with the given id.
func (ix *Index) Get(id string) (core.ZoneConfig, error) {
	i, ok := ix.byID[id]
	if !ok {
		return core.ZoneConfig{}, fmt.Errorf("%w: %q", ErrUnknownZone, id)
	}
	return ix.zones[i], nil
}

// Has reports whether id is registered.
func (ix *Index) Has(id string) bool {
	_, ok := ix.byID[id]
	return ok
}

// Zones returns every zone in registration order.
func (ix *Index) Zones() []core.ZoneConfig {
	return append([]core.ZoneConfig(nil), ix.zones...)
}

// ZoneContaining returns the first registered zone whose bounds contain the point.
func (ix *Index) ZoneContaining(gx, gy float64) (core.ZoneConfig, bool) {
	for _, z := range ix.zones {
		if z.Bounds.Contains(gx, gy) {
			return z, true
		}
	}
	return core.ZoneConfig{}, false
}

// ParkingSlotsOf returns the parking anchors of a zone in declaration order.
func (ix *Index) ParkingSlotsOf(id string) ([]core.GridCoordinate, error) {
	z, err := ix.Get(id)
	if err != nil {
		return nil, err
	}
	return append([]core.GridCoordinate(nil), z.ParkingZones...), nil
}

// slotEpsilon is the tolerance for matching an agent position to an anchor.
const slotEpsilon = 1e-6

// NearestFreeSlot returns the first anchor of the zone, in declaration
// order, that does not match any occupied position. ok is false when every
// anchor is taken.
func (ix *Index) NearestFreeSlot(id string, occupied []core.GridCoordinate) (slot core.GridCoordinate, ok bool, err error) {
	slots, err := ix.ParkingSlotsOf(id)
	if err != nil {
		return core.GridCoordinate{}, false, err
	}
	for _, s := range slots {
		taken := false
		for _, o := range occupied {
			if s.Equal(o, slotEpsilon) {
				taken = true
				break
			}
		}
		if !taken {
			return s, true, nil
		}
	}
	return core.GridCoordinate{}, false, nil
}

type layoutFile struct {
	Zones []core.ZoneConfig `yaml:"zones"`
}

// ParseLayout registers every zone of a YAML layout document, in order.
func (ix *Index) ParseLayout(data []byte) error {
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse zone layout: %w", err)
	}
	for _, z := range f.Zones {
		if err := ix.Register(z); err != nil {
			return err
		}
	}
	return nil
}

// LoadLayout reads and registers a YAML zone layout file.
func (ix *Index) LoadLayout(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read zone layout: %w", err)
	}
	return ix.ParseLayout(data)
}
