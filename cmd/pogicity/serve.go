package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/dispatcher"
	"github.com/fleetfeast/pogicity/internal/fleet"
	"github.com/fleetfeast/pogicity/internal/geo"
	"github.com/fleetfeast/pogicity/internal/influx"
	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/internal/monitor"
	"github.com/fleetfeast/pogicity/internal/parser"
	"github.com/fleetfeast/pogicity/internal/server"
	"github.com/fleetfeast/pogicity/internal/settings"
	"github.com/fleetfeast/pogicity/internal/worker"
	"github.com/fleetfeast/pogicity/pkg/core"
)

// task is a long-running part of the host. It returns when ctx is done.
type task struct {
	name string
	run  func(ctx context.Context) error
}

func (a *app) serve() error {
	simCfg := config.GetSimConfig()

	if err := a.openStorage(); err != nil {
		return err
	}
	if err := a.restore(); err != nil {
		return err
	}

	sceneStore, err := settings.Open(config.GetSettingsConfig().AppName, a.logManager)
	if err != nil {
		a.logger.Warn("Failed to open settings storage, keeping settings in memory", "error", err)
		sceneStore, _ = settings.Open("", a.logManager)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	wm := worker.NewManager(worker.Dependencies{
		Engine:     a.engine,
		Parser:     parser.NewParser(a.logger),
		Settings:   sceneStore,
		LogManager: a.logManager,
	}, a.backend)
	wm.RegisterHandlers(d)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var influxManager *influx.Manager
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		influxManager = influx.NewManager(influxCfg, a.zlog, a.sessionStart)
		if err := influxManager.Connect(ctx); err != nil {
			a.logger.Warn("Metrics disabled", "error", err)
			influxManager = nil
		} else {
			a.closers = append(a.closers, influxManager)
		}
	}
	registerLifecycleHandlers(d, a.engine.Checksum, influxManager)
	a.logger.Info("Commands registered", "count", len(d.Commands()))

	monitorService := monitor.NewService(monitor.Dependencies{
		Engine:     a.engine,
		Backend:    a.backend,
		Writer:     wm,
		Influx:     influxManager,
		LogManager: a.logManager,
		StatusFile: filepath.Join(config.GetString("logsDir"), "status.json"),
		Interval:   influxCfg.Interval,
	})
	if err := monitorService.Start(); err != nil {
		a.logger.Warn("Failed to start status monitor", "error", err)
	}
	defer monitorService.Stop()

	tasks := []task{
		{"sim", func(ctx context.Context) error { return a.engine.Run(ctx, simCfg.TickInterval) }},
		{"autosave", func(ctx context.Context) error { return autosave(ctx, d, simCfg.SnapshotInterval) }},
	}

	if t, ok := a.fleetTask(ctx, wm); ok {
		tasks = append(tasks, t)
	}

	if serverCfg := config.GetServerConfig(); serverCfg.Enabled {
		anchor, err := geo.NewAnchor(config.GetGeoConfig())
		if err != nil {
			a.logger.Warn("GeoJSON export disabled", "error", err)
			anchor = nil
		}
		srv := server.New(server.Dependencies{
			Engine:            a.engine,
			Dispatcher:        d,
			Settings:          sceneStore,
			Anchor:            anchor,
			Logger:            a.logger,
			RequestsPerSecond: serverCfg.RequestsPerSecond,
			Burst:             serverCfg.Burst,
		})
		a.logger.Info("HTTP API listening", "address", serverCfg.Address)
		tasks = append(tasks, task{"server", func(ctx context.Context) error { return srv.Run(ctx, serverCfg.Address) }})
	}

	runErr := a.runTasks(ctx, tasks)

	// drain queued truck reports and metrics so the final save sees them
	d.Close()

	// final save
	if _, err := d.Dispatch(dispatcher.Event{Command: ":SAVE:", Timestamp: time.Now()}); err != nil {
		a.logger.Error("Final save failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	if err := a.logManager.Flush(context.Background()); err != nil {
		a.logger.Warn("Failed to flush logs", "error", err)
	}
	return runErr
}

// runTasks runs every task until ctx is done or one of them fails, which
// stops the rest.
func (a *app) runTasks(ctx context.Context, tasks []task) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			err := t.run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			a.logger.Error("Task failed", "task", t.name, "error", err)
			once.Do(func() {
				firstErr = fmt.Errorf("%s: %w", t.name, err)
				cancel()
			})
		}(t)
	}

	<-ctx.Done()
	a.logger.Info("Shutting down")
	wg.Wait()
	return firstErr
}

// fleetTask builds the configured truck feed.
func (a *app) fleetTask(ctx context.Context, wm *worker.Manager) (task, bool) {
	fleetCfg := config.GetFleetConfig()
	if !fleetCfg.Enabled {
		return task{}, false
	}

	sink := func(snap core.TruckSnapshot) {
		if err := wm.SubmitTrucks(snap); err != nil {
			a.logger.Error("Failed to submit truck report", "error", err)
		}
	}

	switch fleetCfg.Mode {
	case "stream":
		stream := fleet.NewStream(fleet.StreamConfig{
			URL:    fleet.StreamURL(fleetCfg.BaseURL),
			Token:  fleetCfg.APIKey,
			Client: AppName,
			Depot:  config.GetSimConfig().DepotZone,
		}, sink, a.logger)
		a.logger.Info("Fleet stream enabled", "url", fleet.StreamURL(fleetCfg.BaseURL))
		return task{"fleet", stream.Run}, true

	default:
		client := fleet.New(fleetCfg.BaseURL, fleetCfg.APIKey, fleetCfg.RequestsPerSecond)
		if err := client.Healthcheck(ctx); err != nil {
			a.logger.Warn("Fleet backend not healthy yet", "url", fleetCfg.BaseURL, "error", err)
		}
		poller := fleet.NewPoller(client, fleetCfg.PollInterval, sink, a.logger)
		a.logger.Info("Fleet polling enabled", "url", fleetCfg.BaseURL, "interval", fleetCfg.PollInterval)
		return task{"fleet", poller.Run}, true
	}
}

// autosave dispatches :SAVE: every interval. A non-positive interval
// disables it.
func autosave(ctx context.Context, d *dispatcher.Dispatcher, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			// failures are logged by the dispatcher
			_, _ = d.Dispatch(dispatcher.Event{Command: ":SAVE:", Timestamp: now})
		}
	}
}

// registerLifecycleHandlers adds host-level commands next to the worker's.
func registerLifecycleHandlers(d *dispatcher.Dispatcher, checksum func() string, m *influx.Manager) {
	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(":CHECKSUM:", func(e dispatcher.Event) (any, error) {
		return checksum(), nil
	})

	d.Register(":METRIC:", func(e dispatcher.Event) (any, error) {
		if m == nil {
			return nil, errors.New("metrics are disabled")
		}
		point, err := influx.ParseMetric(e.Args)
		if err != nil {
			return nil, err
		}
		return nil, m.WritePoint(m.Bucket(), point)
	}, dispatcher.Buffered(1000), dispatcher.Logged())
}
