package building

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verify Catalog implements Registry
var _ Registry = (*Catalog)(nil)

func TestLoadDefault(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)

	bakery, err := c.Lookup("bakery")
	require.NoError(t, err)
	assert.Equal(t, core.Footprint{Width: 4, Height: 4}, bakery.Footprint)
	assert.True(t, bakery.Rotatable())
	assert.True(t, bakery.Allows(core.DirectionDown))

	apt, err := c.Lookup("apartment")
	require.NoError(t, err)
	assert.False(t, apt.Rotatable())

	assert.NotEmpty(t, c.All())
	assert.Equal(t, "apartment", c.All()[0].ID)
}

func TestLookup_Unknown(t *testing.T) {
	c, err := LoadDefault()
	require.NoError(t, err)

	_, err = c.Lookup("castle")
	assert.ErrorIs(t, err, ErrUnknownBuildingID)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing id", "buildings:\n  - name: x\n    footprint: {width: 1, height: 1}\n", "without id"},
		{"duplicate", "buildings:\n  - id: a\n    footprint: {width: 1, height: 1}\n  - id: a\n    footprint: {width: 1, height: 1}\n", "duplicate"},
		{"bad footprint", "buildings:\n  - id: a\n    footprint: {width: 0, height: 1}\n", "invalid footprint"},
		{"bad direction", "buildings:\n  - id: a\n    footprint: {width: 1, height: 1}\n    directions: [north]\n", "unknown direction"},
		{"bad yaml", "buildings: [", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buildings:\n  - id: shed\n    footprint: {width: 2, height: 1}\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	shed, err := c.Lookup("shed")
	require.NoError(t, err)
	assert.Equal(t, 2, shed.Footprint.Width)
	assert.Equal(t, 1, shed.Footprint.Height)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/catalog.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read building catalog")
}
