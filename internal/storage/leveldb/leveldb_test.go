package leveldbstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, path string) *Backend {
	t.Helper()
	b := New(config.LevelDBConfig{Path: path})
	require.NoError(t, b.Init())
	return b
}

func TestInit_NoPath(t *testing.T) {
	assert.Error(t, New(config.LevelDBConfig{}).Init())
	assert.NoError(t, New(config.LevelDBConfig{}).Close())
}

func TestSaveLoad_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.ldb")

	b := newBackend(t, path)
	_, err := b.LoadSnapshot()
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)

	for tick := uint64(1); tick <= 3; tick++ {
		s := &core.WorldSnapshot{Tick: tick, GridWidth: 1, GridHeight: 1, Cells: []core.GridCell{{Type: core.TileGrass}}}
		require.NoError(t, b.SaveSnapshot(s))
		assert.Equal(t, uint(tick), s.ID)
	}
	require.NoError(t, b.Close())

	reopened := newBackend(t, path)
	defer reopened.Close()

	got, err := reopened.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint(3), got.ID)
	assert.Equal(t, uint64(3), got.Tick)

	next := &core.WorldSnapshot{Tick: 4}
	require.NoError(t, reopened.SaveSnapshot(next))
	assert.Equal(t, uint(4), next.ID, "IDs continue after reopen")
}

func TestSnapshotKeys_SortNumerically(t *testing.T) {
	b := newBackend(t, filepath.Join(t.TempDir(), "world.ldb"))
	defer b.Close()

	b.lastID = 9
	require.NoError(t, b.SaveSnapshot(&core.WorldSnapshot{Tick: 10}))
	b.lastID = 1
	require.NoError(t, b.SaveSnapshot(&core.WorldSnapshot{Tick: 2}))

	got, err := b.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint(10), got.ID)
}

func TestTruckReports_Range(t *testing.T) {
	b := newBackend(t, filepath.Join(t.TempDir(), "world.ldb"))
	defer b.Close()

	t0 := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := t0.Add(time.Duration(i) * time.Minute)
		require.NoError(t, b.RecordTruckStates([]core.TruckState{{ID: "t1", Status: core.TruckIdle, CurrentZone: "depot", ArrivalTime: float64(at.Unix())}}, at))
	}
	assert.Error(t, b.RecordTruckStates(nil, t0))

	reports, err := b.TruckReports(t0, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.True(t, reports[0].At.Equal(t0))
	assert.True(t, reports[1].At.Equal(t0.Add(time.Minute)))
	assert.Equal(t, "t1", reports[1].States[0].ID)
}

func TestPruneSnapshots(t *testing.T) {
	b := newBackend(t, filepath.Join(t.TempDir(), "world.ldb"))
	defer b.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.SaveSnapshot(&core.WorldSnapshot{Tick: uint64(i)}))
	}

	removed, err := b.PruneSnapshots(2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	removed, err = b.PruneSnapshots(2)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	got, err := b.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint(5), got.ID)
}
