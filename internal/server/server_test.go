package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetfeast/pogicity/internal/agent"
	"github.com/fleetfeast/pogicity/internal/building"
	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/dispatcher"
	"github.com/fleetfeast/pogicity/internal/geo"
	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/internal/settings"
	"github.com/fleetfeast/pogicity/internal/sim"
	"github.com/fleetfeast/pogicity/internal/worker"
	"github.com/fleetfeast/pogicity/internal/zone"
	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newTestServer(t *testing.T, rps float64, burst int) (*httptest.Server, *sim.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog, err := building.LoadDefault()
	require.NoError(t, err)
	zones := zone.NewIndex(grid.Width, grid.Height)
	require.NoError(t, zones.LoadDefaultLayout())
	engine, err := sim.New(sim.Dependencies{
		Buildings: catalog,
		Zones:     zones,
		Depot:     "depot",
		Planner:   agent.DirectPlanner{},
		Logger:    logger,
	})
	require.NoError(t, err)

	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	store := settings.New(nil, nil)
	worker.NewManager(worker.Dependencies{Engine: engine, Settings: store}, nil).RegisterHandlers(d)

	anchor, err := geo.NewAnchor(config.GeoConfig{OriginLat: 52.52, OriginLon: 13.405, CellMeters: 10})
	require.NoError(t, err)

	s := New(Dependencies{
		Engine:            engine,
		Dispatcher:        d,
		Settings:          store,
		Anchor:            anchor,
		Logger:            logger,
		RequestsPerSecond: rps,
		Burst:             burst,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, engine
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)
	resp := get(t, srv.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostCommand_PlaceThenConflict(t *testing.T) {
	srv, engine := newTestServer(t, 0, 0)

	resp := postJSON(t, srv.URL+"/api/commands", CommandRequest{Command: ":PLACE:BUILDING:", Args: []string{"2", "2", "bakery"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Command string          `json:"command"`
		Result  []core.GridCell `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Result, 16)

	cell, err := engine.CellAt(5, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, *cell.OriginX)

	resp = postJSON(t, srv.URL+"/api/commands", CommandRequest{Command: ":PLACE:", Args: []string{"4", "4", "road", "1", "1"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListCommands_Stats(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	resp := postJSON(t, srv.URL+"/api/commands", CommandRequest{Command: ":PLACE:", Args: []string{"100", "100", "road"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	r := get(t, srv.URL+"/api/commands")
	require.Equal(t, http.StatusOK, r.StatusCode)

	var stats []dispatcher.CommandStats
	require.NoError(t, json.NewDecoder(r.Body).Decode(&stats))
	byName := make(map[string]dispatcher.CommandStats, len(stats))
	for _, s := range stats {
		byName[s.Command] = s
	}
	require.Contains(t, byName, ":PLACE:")
	assert.Equal(t, int64(1), byName[":PLACE:"].Handled)
	assert.Equal(t, int64(1), byName[":PLACE:"].Failed)
	assert.NotEmpty(t, byName[":PLACE:"].LastError)
	assert.True(t, byName[":TRUCKS:"].Buffered)
}

func TestPostCommand_Errors(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	resp := postJSON(t, srv.URL+"/api/commands", CommandRequest{Command: ":NOPE:"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/commands", CommandRequest{Command: ":PLACE:", Args: []string{"100", "100", "road"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/commands", CommandRequest{Command: ":DESPAWN:", Args: []string{"ghost"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	r, err := http.Post(srv.URL+"/api/commands", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestGetCell(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	resp := get(t, srv.URL+"/api/cells/3/4")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var c core.GridCell
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&c))
	assert.Equal(t, core.TileGrass, c.Type)
	assert.Equal(t, 3, c.X)
	assert.Equal(t, 4, c.Y)

	assert.Equal(t, http.StatusUnprocessableEntity, get(t, srv.URL+"/api/cells/-1/4").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/api/cells/a/4").StatusCode)
}

func TestPostTrucks(t *testing.T) {
	srv, engine := newTestServer(t, 0, 0)

	body := `[{"id":"t1","status":"IDLE","current_zone":"depot","destination_zone":null,"arrival_time":1767225600}]`
	resp, err := http.Post(srv.URL+"/api/trucks", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the buffered handler hands the report to the engine asynchronously
	require.Eventually(t, func() bool {
		engine.Tick()
		_, err := engine.Car("t1")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReadViews(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	for _, path := range []string{"/api/world", "/api/world/stats", "/api/zones", "/api/cars", "/api/characters", "/api/settings", "/api/commands"} {
		resp := get(t, srv.URL+path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"), path)
	}

	resp := get(t, srv.URL+"/api/geojson")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.NotEmpty(t, fc.Features, "zones are always exported")
}

func TestSettingsViaCommand(t *testing.T) {
	srv, _ := newTestServer(t, 0, 0)

	resp := postJSON(t, srv.URL+"/api/commands", CommandRequest{Command: ":SETTINGS:LIGHTING:", Args: []string{"sunset"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, srv.URL+"/api/settings")
	var scene settings.Scene
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&scene))
	assert.Equal(t, core.LightingSunset, scene.Lighting)
}

func TestRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, 0.001, 2)

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/health").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/health").StatusCode)
	resp := get(t, srv.URL+"/api/health")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestIPLimiter_Prune(t *testing.T) {
	l := newIPLimiter(1, 1)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.get("10.0.0.1")
	now = now.Add(limiterIdle / 2)
	l.get("10.0.0.2")
	now = now.Add(limiterIdle/2 + time.Second)

	assert.Equal(t, 1, l.prune())
	assert.Len(t, l.clients, 1)
	assert.Contains(t, l.clients, "10.0.0.2")
}
