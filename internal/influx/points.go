package influx

import (
	"time"

	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// OccupancyPoint records how much of the grid is built on.
func OccupancyPoint(stats grid.Stats, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("occupancy").
		AddField("occupied_cells", stats.OccupiedCells).
		AddField("total_cells", stats.TotalCells).
		SetTime(at)
	for kind, n := range stats.Objects {
		p.AddField("objects_"+string(kind), n)
	}
	buildings := 0
	for _, n := range stats.Buildings {
		buildings += n
	}
	p.AddField("buildings", buildings)
	return p
}

// FleetPoint records how many trucks are in each status.
func FleetPoint(statuses map[core.TruckStatus]int, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("fleet").SetTime(at)
	total := 0
	for _, s := range []core.TruckStatus{core.TruckIdle, core.TruckMoving, core.TruckServing, core.TruckRestocking} {
		p.AddField(string(s), statuses[s])
		total += statuses[s]
	}
	p.AddField("total", total)
	return p
}

// EnginePoint records simulation health.
func EnginePoint(tick uint64, superseded int, lastWrite time.Duration, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("engine").
		AddField("tick", tick).
		AddField("superseded_snapshots", superseded).
		AddField("last_write_ms", float64(lastWrite.Microseconds())/1000).
		SetTime(at)
}
