// Package postgres implements the storage.Backend interface on PostgreSQL by
// connecting through internal/database and delegating to gormstore.
package postgres

import (
	"fmt"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/database"
	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/internal/storage/gormstore"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend with Postgres connection handling.
type Backend struct {
	*gormstore.Backend
	cfg config.PostgresConfig
	log *logging.SlogManager
	db  *gorm.DB
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new Postgres storage backend. The connection is opened by Init.
func New(cfg config.PostgresConfig, logManager *logging.SlogManager) *Backend {
	return &Backend{cfg: cfg, log: logManager}
}

// Init connects, validates the connection and initializes the embedded GORM backend.
func (b *Backend) Init() error {
	db, err := database.GetPostgresDB(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	b.db = db

	b.log.WriteLog("postgres:Init", fmt.Sprintf("Connected to %s:%s/%s", b.cfg.Host, b.cfg.Port, b.cfg.Database), "INFO")

	b.Backend = gormstore.New(gormstore.Dependencies{
		DB:         db,
		LogManager: b.log,
	})
	return b.Backend.Init()
}

// Close stops the writer and closes the connection.
func (b *Backend) Close() error {
	if b.Backend != nil {
		if err := b.Backend.Close(); err != nil {
			return err
		}
	}
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
