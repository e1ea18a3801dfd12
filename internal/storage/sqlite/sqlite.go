// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition. On startup an existing dump is
// the fallback source for LoadSnapshot.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/database"
	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/internal/storage/gormstore"
	"github.com/fleetfeast/pogicity/pkg/core"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstore.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, logManager *logging.SlogManager) (*Backend, error) {
	db, err := database.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// shared-cache memory databases report SQLITE_LOCKED under concurrent writers
	sqlDB.SetMaxOpenConns(1)

	gormBackend := gormstore.New(gormstore.Dependencies{
		DB:         db,
		LogManager: logManager,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		close(b.done)
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}

	return nil
}

// Close stops the dump goroutine, writes a last dump and closes the database.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done

	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" {
		if err := b.Dump(); err != nil {
			b.log.WriteLog("sqlite:Close", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
		}
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Dump writes the in-memory database to DumpPath.
func (b *Backend) Dump() error {
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// LoadSnapshot returns the newest snapshot in memory, falling back to the
// last dump on disk.
func (b *Backend) LoadSnapshot() (core.WorldSnapshot, error) {
	snap, err := b.Backend.LoadSnapshot()
	if !errors.Is(err, storage.ErrNoSnapshot) || b.cfg.DumpPath == "" {
		return snap, err
	}
	if _, statErr := os.Stat(b.cfg.DumpPath); statErr != nil {
		return snap, err
	}
	return LoadDump(b.cfg.DumpPath)
}

// LoadDump reads the newest snapshot from a dump file.
func LoadDump(path string) (core.WorldSnapshot, error) {
	disk, err := database.GetSqliteDB(path)
	if err != nil {
		return core.WorldSnapshot{}, fmt.Errorf("failed to open dump: %w", err)
	}
	defer func() {
		if sqlDB, err := disk.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	if !disk.Migrator().HasTable("world_snapshots") {
		return core.WorldSnapshot{}, storage.ErrNoSnapshot
	}
	return gormstore.LatestSnapshot(disk)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
