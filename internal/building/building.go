// Package building resolves building ids to their footprint and allowed orientations.
package building

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fleetfeast/pogicity/pkg/core"
	"gopkg.in/yaml.v3"
)

// ErrUnknownBuildingID is returned when an id is not in the catalog.
var ErrUnknownBuildingID = errors.New("unknown building id")

//go:embed catalog.yaml
var defaultCatalog []byte

// Definition describes one building type.
type Definition struct {
	ID        string         `yaml:"id" json:"id"`
	Name      string         `yaml:"name" json:"name"`
	Category  string         `yaml:"category" json:"category"`
	Footprint core.Footprint `yaml:"footprint" json:"footprint"`
	// Directions lists the orientations the building can be placed in.
	// Empty means the building is not rotatable.
	Directions []core.Direction `yaml:"directions" json:"directions,omitempty"`
}

// Rotatable reports whether the building accepts an orientation.
func (d Definition) Rotatable() bool {
	return len(d.Directions) > 0
}

// Allows reports whether dir is a valid orientation for the building.
func (d Definition) Allows(dir core.Direction) bool {
	for _, allowed := range d.Directions {
		if allowed == dir {
			return true
		}
	}
	return false
}

// Registry looks up building definitions.
type Registry interface {
	Lookup(id string) (Definition, error)
}

// Catalog is a Registry backed by a YAML document.
type Catalog struct {
	defs map[string]Definition
}

type catalogFile struct {
	Buildings []Definition `yaml:"buildings"`
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse building catalog: %w", err)
	}

	c := &Catalog{defs: make(map[string]Definition, len(f.Buildings))}
	for _, d := range f.Buildings {
		if d.ID == "" {
			return nil, fmt.Errorf("building catalog: entry without id")
		}
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("building catalog: duplicate id %q", d.ID)
		}
		if d.Footprint.Width < 1 || d.Footprint.Height < 1 {
			return nil, fmt.Errorf("building catalog: %q has invalid footprint %dx%d", d.ID, d.Footprint.Width, d.Footprint.Height)
		}
		for _, dir := range d.Directions {
			if _, err := core.ParseDirection(string(dir)); err != nil {
				return nil, fmt.Errorf("building catalog: %q: %w", d.ID, err)
			}
		}
		c.defs[d.ID] = d
	}
	return c, nil
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read building catalog: %w", err)
	}
	return Parse(data)
}

// LoadDefault returns the catalog compiled into the binary.
func LoadDefault() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Lookup implements Registry.
func (c *Catalog) Lookup(id string) (Definition, error) {
	d, ok := c.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownBuildingID, id)
	}
	return d, nil
}

// All returns every definition sorted by id.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
