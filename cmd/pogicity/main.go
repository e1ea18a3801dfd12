// Command pogicity runs the city simulation host: the tick loop, the truck
// feed, the editor HTTP API and periodic saves.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fleetfeast/pogicity/internal/agent"
	"github.com/fleetfeast/pogicity/internal/building"
	"github.com/fleetfeast/pogicity/internal/cache"
	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/internal/logging"
	intOtel "github.com/fleetfeast/pogicity/internal/otel"
	"github.com/fleetfeast/pogicity/internal/sim"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/internal/zone"

	"github.com/rs/zerolog"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "pogicity"
)

// app holds what the subcommands share.
type app struct {
	sessionStart time.Time

	logManager *logging.SlogManager
	logger     *slog.Logger
	zlog       zerolog.Logger
	otel       *intOtel.Provider
	logPath    string

	// closed in reverse order
	closers []io.Closer

	engine  *sim.Engine
	zones   *zone.Index
	backend storage.Backend
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [-config dir] <command> [args]

Commands:
  serve                 run the simulation host (default)
  export <out.geojson>  write the latest stored world as GeoJSON
  checksum              print the checksum of the stored grid
  version               print the version

Flags:
`, AppName)
	flag.PrintDefaults()
}

func main() {
	os.Exit(run())
}

func run() int {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	flag.Usage = usage
	flag.Parse()

	cmd := "serve"
	args := flag.Args()
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
		args = args[1:]
	}

	switch cmd {
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return 0
	case "serve", "export", "checksum":
	default:
		usage()
		return 2
	}

	a, err := newApp(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.close()

	switch cmd {
	case "serve":
		err = a.serve()
	case "export":
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "export: no output file provided")
			return 2
		}
		err = a.export(args[0])
	case "checksum":
		err = a.checksum(os.Stdout)
	}
	if err != nil {
		a.logger.Error("Command failed", "command", cmd, "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// newApp loads config, sets up logging and builds an engine over the
// configured zones and buildings. Storage is opened by the subcommands.
func newApp(configDir string) (*app, error) {
	a := &app{
		sessionStart: time.Now(),
		logManager:   logging.NewSlogManager(),
	}
	a.logManager.Setup(nil, "info", nil)
	a.logger = a.logManager.Logger()

	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config")
	}

	if err := a.setupLogging(); err != nil {
		a.close()
		return nil, err
	}

	if err := a.loadWorld(config.GetSimConfig()); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) setupLogging() error {
	logsDir := config.GetString("logsDir")
	level := config.GetString("logLevel")

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}

	a.logPath = logging.LogFilePath(logsDir, AppName, a.sessionStart)
	if _, err := os.Stat(a.logPath); err == nil {
		os.Rename(a.logPath, a.logPath+".old")
	}
	logFile, err := os.OpenFile(a.logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to create log file %s: %w", a.logPath, err)
	}
	a.closers = append(a.closers, logFile)

	otelCfg := config.GetOTelConfig()
	a.otel, err = intOtel.New(intOtel.FromConfig(otelCfg, logFile))
	if err != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", err)
		a.otel, _ = intOtel.New(intOtel.Config{})
	} else if otelCfg.Enabled {
		a.logger.Info("OTel provider initialized", "file", a.logPath, "endpoint", otelCfg.Endpoint)
	}
	a.closers = append(a.closers, closerFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.otel.Shutdown(ctx)
	}))

	var extra []logging.Sink
	if gl := config.GetGraylogConfig(); gl.Enabled {
		sink, closer, err := logging.NewGraylogSink(gl.Address, level)
		if err != nil {
			a.logger.Warn("Failed to connect to Graylog", "address", gl.Address, "error", err)
		} else {
			extra = append(extra, sink)
			a.closers = append(a.closers, closer)
		}
	}

	// the engine is built after logging, so resolve it per record
	a.logManager.SetWorldState(func() (logging.WorldState, bool) {
		if a.engine == nil {
			return logging.WorldState{}, false
		}
		tick, sum, ok := a.engine.WorldState()
		return logging.WorldState{Tick: tick, Checksum: sum}, ok
	})
	a.logManager.Setup(logFile, level, a.otel.LoggerProvider(), extra...)
	a.logger = a.logManager.Logger()
	a.logger.Info("Logging to file", "path", a.logPath, "version", CurrentVersion, "build", BuildDate)

	zl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		zl = zerolog.InfoLevel
	}
	a.zlog = zerolog.New(logFile).Level(zl).With().Timestamp().Str("service", AppName).Logger()
	return nil
}

func (a *app) loadWorld(cfg config.SimConfig) error {
	var (
		catalog *building.Catalog
		err     error
	)
	if cfg.BuildingsFile != "" {
		catalog, err = building.Load(cfg.BuildingsFile)
	} else {
		catalog, err = building.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("failed to load buildings: %w", err)
	}

	a.zones = zone.NewIndex(grid.Width, grid.Height)
	if cfg.ZonesFile != "" {
		err = a.zones.LoadLayout(cfg.ZonesFile)
	} else {
		err = a.zones.LoadDefaultLayout()
	}
	if err != nil {
		return fmt.Errorf("failed to load zones: %w", err)
	}

	a.engine, err = sim.New(sim.Dependencies{
		Buildings: catalog,
		Zones:     a.zones,
		Depot:     cfg.DepotZone,
		Planner:   agent.DirectPlanner{},
		Fleet:     cache.NewFleetCache(),
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	a.logger.Info("World loaded", "buildings", len(catalog.All()), "zones", len(a.zones.Zones()))
	return nil
}

// close releases everything in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("Error during shutdown", "error", err)
		}
	}
	a.closers = nil
}
