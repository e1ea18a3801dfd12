package main

import (
	"errors"
	"fmt"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/internal/storage"
	leveldbstorage "github.com/fleetfeast/pogicity/internal/storage/leveldb"
	"github.com/fleetfeast/pogicity/internal/storage/memory"
	pgstorage "github.com/fleetfeast/pogicity/internal/storage/postgres"
	sqlitestorage "github.com/fleetfeast/pogicity/internal/storage/sqlite"
)

func createStorageBackend(storageCfg config.StorageConfig, logManager *logging.SlogManager) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		return pgstorage.New(storageCfg.Postgres, logManager), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, logManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "leveldb":
		return leveldbstorage.New(storageCfg.LevelDB), nil

	case "memory", "":
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// openStorage creates and initializes the configured backend.
func (a *app) openStorage() error {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg, a.logManager)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return err
	}
	a.backend = backend
	a.closers = append(a.closers, backend)
	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return nil
}

// restore loads the newest snapshot into the engine. An empty store leaves
// the grid empty.
func (a *app) restore() error {
	snap, err := a.backend.LoadSnapshot()
	if errors.Is(err, storage.ErrNoSnapshot) {
		a.logger.Info("No snapshot stored, starting with an empty grid")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := a.engine.Restore(snap); err != nil {
		return fmt.Errorf("failed to restore snapshot %d: %w", snap.ID, err)
	}
	a.logger.Info("Restored snapshot", "id", snap.ID, "tick", snap.Tick, "checksum", a.engine.Checksum())
	return nil
}
