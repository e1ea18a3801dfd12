package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "pogicity.cfg.json"

// SimConfig holds simulation loop settings.
type SimConfig struct {
	TickInterval     time.Duration
	SnapshotInterval time.Duration
	DepotZone        string
	// ZonesFile and BuildingsFile override the embedded layout and catalog when set.
	ZonesFile     string
	BuildingsFile string
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir string `json:"outputDir" mapstructure:"outputDir"`
	// Compression is "none", "gzip" or "lz4".
	Compression string `json:"compression" mapstructure:"compression"`
}

// SQLiteConfig holds settings for the in-memory SQLite backend.
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// LevelDBConfig holds settings for the LevelDB backend.
type LevelDBConfig struct {
	Path string
}

// PostgresConfig holds connection settings for the Postgres backend.
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Type     string
	Memory   MemoryConfig
	SQLite   SQLiteConfig
	LevelDB  LevelDBConfig
	Postgres PostgresConfig
}

// FleetConfig configures the backend truck feed.
type FleetConfig struct {
	Enabled bool
	// Mode is "poll" or "stream".
	Mode              string
	BaseURL           string
	APIKey            string
	PollInterval      time.Duration
	RequestsPerSecond float64
}

// ServerConfig configures the editor HTTP API.
type ServerConfig struct {
	Enabled           bool
	Address           string
	RequestsPerSecond float64
	Burst             int
}

// InfluxConfig configures the metrics sink.
type InfluxConfig struct {
	Enabled  bool
	Protocol string
	Host     string
	Port     string
	Token    string
	Org      string
	Bucket   string
	// BackupDir receives gzipped line protocol while InfluxDB is unreachable.
	BackupDir string
	Interval  time.Duration
}

// OTelConfig configures OpenTelemetry.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// GeoConfig anchors the grid on the map for GeoJSON export.
type GeoConfig struct {
	OriginLat  float64
	OriginLon  float64
	CellMeters float64
}

// SettingsConfig configures where scene settings are persisted.
type SettingsConfig struct {
	// AppName names the user data directory; empty keeps settings in memory.
	AppName string
}

// GraylogConfig configures the GELF log sink.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./citylogs")

	viper.SetDefault("sim.tickInterval", "50ms")
	viper.SetDefault("sim.snapshotInterval", "1m")
	viper.SetDefault("sim.depotZone", "depot")
	viper.SetDefault("sim.zonesFile", "")
	viper.SetDefault("sim.buildingsFile", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./saves")
	viper.SetDefault("storage.memory.compression", "gzip")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./saves/pogicity.db")
	viper.SetDefault("storage.leveldb.path", "./saves/world.ldb")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "pogicity")

	viper.SetDefault("fleet.enabled", false)
	viper.SetDefault("fleet.mode", "poll")
	viper.SetDefault("fleet.baseUrl", "http://localhost:8080")
	viper.SetDefault("fleet.apiKey", "")
	viper.SetDefault("fleet.pollInterval", "2s")
	viper.SetDefault("fleet.requestsPerSecond", 1.0)

	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.address", ":8088")
	viper.SetDefault("server.requestsPerSecond", 20.0)
	viper.SetDefault("server.burst", 40)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "pogicity")
	viper.SetDefault("influx.bucket", "city")
	viper.SetDefault("influx.backupDir", "./citylogs")
	viper.SetDefault("influx.interval", "30s")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "pogicity")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("geo.originLat", 52.5200)
	viper.SetDefault("geo.originLon", 13.4050)
	viper.SetDefault("geo.cellMeters", 10.0)

	viper.SetDefault("settings.appName", "pogicity")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSimConfig returns the simulation loop settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickInterval:     viper.GetDuration("sim.tickInterval"),
		SnapshotInterval: viper.GetDuration("sim.snapshotInterval"),
		DepotZone:        viper.GetString("sim.depotZone"),
		ZonesFile:        viper.GetString("sim.zonesFile"),
		BuildingsFile:    viper.GetString("sim.buildingsFile"),
	}
}

// GetStorageConfig returns the persistence settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:   viper.GetString("storage.memory.outputDir"),
			Compression: viper.GetString("storage.memory.compression"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		LevelDB: LevelDBConfig{
			Path: viper.GetString("storage.leveldb.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetFleetConfig returns the truck feed settings.
func GetFleetConfig() FleetConfig {
	return FleetConfig{
		Enabled:           viper.GetBool("fleet.enabled"),
		Mode:              viper.GetString("fleet.mode"),
		BaseURL:           viper.GetString("fleet.baseUrl"),
		APIKey:            viper.GetString("fleet.apiKey"),
		PollInterval:      viper.GetDuration("fleet.pollInterval"),
		RequestsPerSecond: viper.GetFloat64("fleet.requestsPerSecond"),
	}
}

// GetServerConfig returns the HTTP API settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:           viper.GetBool("server.enabled"),
		Address:           viper.GetString("server.address"),
		RequestsPerSecond: viper.GetFloat64("server.requestsPerSecond"),
		Burst:             viper.GetInt("server.burst"),
	}
}

// GetInfluxConfig returns the metrics sink settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:   viper.GetBool("influx.enabled"),
		Protocol:  viper.GetString("influx.protocol"),
		Host:      viper.GetString("influx.host"),
		Port:      viper.GetString("influx.port"),
		Token:     viper.GetString("influx.token"),
		Org:       viper.GetString("influx.org"),
		Bucket:    viper.GetString("influx.bucket"),
		BackupDir: viper.GetString("influx.backupDir"),
		Interval:  viper.GetDuration("influx.interval"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGeoConfig returns the map anchor of the grid.
func GetGeoConfig() GeoConfig {
	return GeoConfig{
		OriginLat:  viper.GetFloat64("geo.originLat"),
		OriginLon:  viper.GetFloat64("geo.originLon"),
		CellMeters: viper.GetFloat64("geo.cellMeters"),
	}
}

// GetGraylogConfig returns the GELF sink settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetSettingsConfig returns the scene settings storage settings.
func GetSettingsConfig() SettingsConfig {
	return SettingsConfig{
		AppName: viper.GetString("settings.appName"),
	}
}
