package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./citylogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "pogicity", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "gzip", viper.GetString("storage.memory.compression"))
	assert.Equal(t, "3m", viper.GetString("storage.sqlite.dumpInterval"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "pogicity", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSimConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{"sim": {"tickInterval": "100ms", "zonesFile": "zones.yaml"}}`)))

	sc := GetSimConfig()
	assert.Equal(t, 100*time.Millisecond, sc.TickInterval)
	assert.Equal(t, time.Minute, sc.SnapshotInterval)
	assert.Equal(t, "depot", sc.DepotZone)
	assert.Equal(t, "zones.yaml", sc.ZonesFile)
	assert.Equal(t, "", sc.BuildingsFile)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./saves", cfg.Memory.OutputDir)
	assert.Equal(t, "gzip", cfg.Memory.Compression)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "./saves/world.ldb", cfg.LevelDB.Path)
	assert.Equal(t, "postgres", cfg.Postgres.Username)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compression": "lz4" },
			"sqlite": { "dumpInterval": "10m", "dumpPath": "/tmp/city.db" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, "lz4", sc.Memory.Compression)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "/tmp/city.db", sc.SQLite.DumpPath)
}

func TestGetFleetAndServerConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"fleet": { "enabled": true, "mode": "stream", "baseUrl": "https://fleet.example", "pollInterval": "5s" },
		"server": { "address": "127.0.0.1:9000", "burst": 5 }
	}`)))

	fc := GetFleetConfig()
	assert.True(t, fc.Enabled)
	assert.Equal(t, "stream", fc.Mode)
	assert.Equal(t, "https://fleet.example", fc.BaseURL)
	assert.Equal(t, 5*time.Second, fc.PollInterval)
	assert.Equal(t, 1.0, fc.RequestsPerSecond)

	sv := GetServerConfig()
	assert.True(t, sv.Enabled)
	assert.Equal(t, "127.0.0.1:9000", sv.Address)
	assert.Equal(t, 20.0, sv.RequestsPerSecond)
	assert.Equal(t, 5, sv.Burst)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxGeoGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "bucket": "test" },
		"geo": { "originLat": 48.85, "cellMeters": 5 },
		"graylog": { "enabled": true }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "test", ic.Bucket)
	assert.Equal(t, 30*time.Second, ic.Interval)

	gc := GetGeoConfig()
	assert.Equal(t, 48.85, gc.OriginLat)
	assert.Equal(t, 13.405, gc.OriginLon)
	assert.Equal(t, 5.0, gc.CellMeters)

	assert.True(t, GetGraylogConfig().Enabled)
	assert.Equal(t, "localhost:12201", GetGraylogConfig().Address)
}

func TestGetSettingsConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))
	assert.Equal(t, "pogicity", GetSettingsConfig().AppName)

	viper.Set("settings.appName", "")
	assert.Empty(t, GetSettingsConfig().AppName)
}
