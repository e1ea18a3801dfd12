package influx

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func lineOf(p *influxdb2_write.Point) string {
	return influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), at)
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(config.InfluxConfig{
		Enabled:   true,
		Protocol:  "http",
		Host:      "127.0.0.1",
		Port:      "1",
		Bucket:    "city",
		BackupDir: dir,
	}, zerolog.Nop(), at)

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)
	assert.Contains(t, m.BackupPath, "influx_backup_20260501_120000")

	require.NoError(t, m.WritePoint(m.Bucket(), FleetPoint(map[core.TruckStatus]int{core.TruckIdle: 2}, at)))
	require.NoError(t, m.Close())

	f, err := os.Open(m.BackupPath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	sc := bufio.NewScanner(gz)
	require.True(t, sc.Scan())
	assert.True(t, strings.HasPrefix(sc.Text(), "fleet "), sc.Text())
	assert.Contains(t, sc.Text(), "IDLE=2i")
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(config.InfluxConfig{Bucket: "city"}, zerolog.Nop(), at)
	assert.Error(t, m.WritePoint("city", EnginePoint(1, 0, 0, at)))
	assert.NoError(t, m.Close())
}

func TestOccupancyPoint(t *testing.T) {
	p := OccupancyPoint(grid.Stats{
		Objects:       map[core.TileKind]int{core.TileRoad: 3},
		Buildings:     map[string]int{"bakery": 1, "kiosk": 2},
		OccupiedCells: 27,
		TotalCells:    2304,
	}, at)
	line := lineOf(p)
	assert.True(t, strings.HasPrefix(line, "occupancy "))
	assert.Contains(t, line, "occupied_cells=27i")
	assert.Contains(t, line, "objects_road=3i")
	assert.Contains(t, line, "buildings=3i")
}

func TestFleetPoint_ZeroFilled(t *testing.T) {
	line := lineOf(FleetPoint(map[core.TruckStatus]int{core.TruckMoving: 1}, at))
	assert.Contains(t, line, "MOVING=1i")
	assert.Contains(t, line, "SERVING=0i")
	assert.Contains(t, line, "total=1i")
}

func TestEnginePoint(t *testing.T) {
	line := lineOf(EnginePoint(42, 3, 1500*time.Microsecond, at))
	assert.Contains(t, line, "tick=42u")
	assert.Contains(t, line, "superseded_snapshots=3i")
	assert.Contains(t, line, "last_write_ms=1.5")
}

func TestParseMetric(t *testing.T) {
	p, err := ParseMetric([]string{"editor", "tag::tool::bulldozer", "field::int::uses::4", "field::float::seconds::1.25", "field::string::user::ana"})
	require.NoError(t, err)
	line := lineOf(p)
	assert.True(t, strings.HasPrefix(line, "editor,tool=bulldozer "))
	assert.Contains(t, line, "uses=4i")
	assert.Contains(t, line, "seconds=1.25")
	assert.Contains(t, line, `user="ana"`)
}

func TestParseMetric_Errors(t *testing.T) {
	cases := [][]string{
		{"editor"},
		{"editor", "tag::a::b"},
		{"editor", "field::int::n::x"},
		{"editor", "field::float::n::x"},
		{"editor", "field::bool::n::true"},
	}
	for _, c := range cases {
		_, err := ParseMetric(c)
		assert.Error(t, err, "%v", c)
	}
}
