// Package monitor periodically samples the engine and the storage writer,
// writes a status file and forwards the numbers to InfluxDB.
package monitor

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/internal/influx"
	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/internal/sim"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DefaultInterval is used when Dependencies.Interval is not positive.
const DefaultInterval = time.Second

// queueReporter is implemented by backends that buffer truck states.
type queueReporter interface {
	QueuedTruckStates() int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Engine     *sim.Engine
	Backend    storage.Backend
	Writer     storage.WriteDurationProvider
	Influx     *influx.Manager
	LogManager *logging.SlogManager
	// StatusFile is rewritten with the latest Status on every sample when set.
	StatusFile string
	Interval   time.Duration
}

// Status is one sample of program health.
type Status struct {
	Time                time.Time                `json:"time"`
	Tick                uint64                   `json:"tick"`
	Checksum            string                   `json:"checksum"`
	Grid                grid.Stats               `json:"grid"`
	Fleet               map[core.TruckStatus]int `json:"fleet"`
	SupersededSnapshots int                      `json:"supersededSnapshots"`
	QueuedTruckStates   int                      `json:"queuedTruckStates"`
	LastWriteDurationMs float32                  `json:"lastWriteDurationMs"`
	LogSinkFailures     map[string]int64         `json:"logSinkFailures,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{
		deps: deps,
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current program status
func (s *Service) GetProgramStatus() Status {
	e := s.deps.Engine
	st := Status{
		Time:                time.Now(),
		Tick:                e.CurrentTick(),
		Checksum:            e.Checksum(),
		Grid:                e.Stats(),
		Fleet:               e.FleetStatuses(),
		SupersededSnapshots: e.SupersededSnapshots(),
	}
	if q, ok := s.deps.Backend.(queueReporter); ok {
		st.QueuedTruckStates = q.QueuedTruckStates()
	}
	if s.deps.Writer != nil {
		st.LastWriteDurationMs = float32(s.deps.Writer.LastWriteDuration().Microseconds()) / 1000
	}
	if failures := s.deps.LogManager.SinkFailures(); len(failures) > 0 {
		st.LogSinkFailures = failures
	}
	return st
}

// Sample takes one status sample, writes it to the status file and InfluxDB
// and returns it.
func (s *Service) Sample() Status {
	logger := s.deps.LogManager.Logger()
	st := s.GetProgramStatus()

	if s.deps.StatusFile != "" {
		data, err := json.MarshalIndent(st, "", "  ")
		if err == nil {
			err = os.WriteFile(s.deps.StatusFile, data, 0644)
		}
		if err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.Influx != nil {
		bucket := s.deps.Influx.Bucket()
		lastWrite := time.Duration(st.LastWriteDurationMs * float32(time.Millisecond))
		for _, p := range []*influxdb2_write.Point{
			influx.OccupancyPoint(st.Grid, st.Time),
			influx.FleetPoint(st.Fleet, st.Time),
			influx.EnginePoint(st.Tick, st.SupersededSnapshots, lastWrite, st.Time),
		} {
			if err := s.deps.Influx.WritePoint(bucket, p); err != nil {
				logger.Error("Error writing metrics", "error", err)
				break
			}
		}
	}

	logger.Debug("status",
		"tick", st.Tick,
		"occupied", st.Grid.OccupiedCells,
		"queuedTruckStates", st.QueuedTruckStates,
	)
	return st
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.LogManager.Logger().Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Sample()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
