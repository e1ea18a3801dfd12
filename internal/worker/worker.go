// Package worker binds dispatcher commands to the simulation engine,
// the storage backend and the scene settings.
package worker

import (
	"time"

	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/internal/parser"
	"github.com/fleetfeast/pogicity/internal/settings"
	"github.com/fleetfeast/pogicity/internal/sim"
	"github.com/fleetfeast/pogicity/internal/storage"
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Engine     *sim.Engine
	Parser     *parser.Parser
	Settings   *settings.Store
	LogManager *logging.SlogManager
}

// Manager owns the command handlers.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager. backend may be nil, in which case
// saves and truck history are skipped.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.LogManager.Logger())
	}
	if deps.Settings == nil {
		deps.Settings = settings.New(nil, deps.LogManager)
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}

// LastWriteDuration returns the duration of the backend's last batch write,
// or 0 if the backend does not batch.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.backend.(storage.WriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}
