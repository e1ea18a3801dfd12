// Package gormstore implements the storage.Backend interface on GORM with an
// internal truck-state queue drained by a background writer goroutine. The
// postgres and sqlite backends embed it and only differ in how the *gorm.DB
// is obtained.
package gormstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetfeast/pogicity/internal/database"
	"github.com/fleetfeast/pogicity/internal/logging"
	"github.com/fleetfeast/pogicity/internal/model"
	"github.com/fleetfeast/pogicity/internal/model/convert"
	"github.com/fleetfeast/pogicity/internal/queue"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/pkg/core"

	"gorm.io/gorm"
)

// DefaultWriteInterval is how often queued truck states are written.
const DefaultWriteInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	// WriteInterval overrides DefaultWriteInterval when positive.
	WriteInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	TruckStates *queue.Queue[model.TruckState]
}

func newQueues() *queues {
	return &queues{
		TruckStates: queue.New[model.TruckState](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	writeMu   sync.Mutex

	lastWriteNanos atomic.Int64
}

var (
	_ storage.Backend               = (*Backend)(nil)
	_ storage.WriteDurationProvider = (*Backend)(nil)
)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps: deps,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gormstore: no database connection")
	}
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")

	go b.startDBWriter()
	return nil
}

// Close stops the writer goroutine after a final flush. The connection
// itself belongs to the caller.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.closeOnce.Do(func() {
		close(b.stopChan)
		<-b.done
	})
	return nil
}

// SaveSnapshot stores s with its cells and agents in one transaction and
// assigns the DB-generated ID back to s.
func (b *Backend) SaveSnapshot(s *core.WorldSnapshot) error {
	rec := convert.CoreToWorldSnapshot(*s)
	rec.ID = 0

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	s.ID = rec.ID
	return nil
}

// LoadSnapshot returns the newest stored snapshot.
func (b *Backend) LoadSnapshot() (core.WorldSnapshot, error) {
	return LatestSnapshot(b.deps.DB)
}

// LatestSnapshot reads the newest snapshot from db. It is exported for
// tools that open a dump file directly.
func LatestSnapshot(db *gorm.DB) (core.WorldSnapshot, error) {
	var rec model.WorldSnapshot
	err := db.
		Preload("Cells").
		Preload("Cars").
		Preload("Characters").
		Order("id desc").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.WorldSnapshot{}, storage.ErrNoSnapshot
	}
	if err != nil {
		return core.WorldSnapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return convert.WorldSnapshotToCore(rec)
}

// RecordTruckStates converts and queues one backend report.
func (b *Backend) RecordTruckStates(states []core.TruckState, at time.Time) error {
	if len(states) == 0 {
		return errors.New("empty truck report")
	}
	items := make([]model.TruckState, 0, len(states))
	for _, s := range states {
		items = append(items, convert.CoreToTruckState(s, at))
	}
	b.queues.TruckStates.Push(items...)
	return nil
}

// TruckHistory returns up to limit stored states of one truck, newest first.
func (b *Backend) TruckHistory(truckID string, limit int) ([]core.TruckState, error) {
	var rows []model.TruckState
	err := b.deps.DB.
		Where("truck_id = ?", truckID).
		Order("time desc").Order("id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query truck history: %w", err)
	}
	out := make([]core.TruckState, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.TruckStateToCore(r))
	}
	return out, nil
}

// QueuedTruckStates returns how many states wait for the next write.
func (b *Backend) QueuedTruckStates() int {
	if b.queues == nil {
		return 0
	}
	return b.queues.TruckStates.Len()
}

// LastWriteDuration returns how long the last non-empty write cycle took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNanos.Load())
}

// Flush writes every queued item now.
func (b *Backend) Flush() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	queued := b.queues.TruckStates.Len()
	if queued == 0 {
		return
	}

	start := time.Now()
	writeQueue(b.deps.DB, b.queues.TruckStates, "truck states", b.deps.LogManager.WriteLog, nil)
	elapsed := time.Since(start)
	b.lastWriteNanos.Store(int64(elapsed))

	perf := model.WriterPerformance{
		Time:                start,
		QueuedTruckStates:   queued,
		LastWriteDurationMs: float32(elapsed.Microseconds()) / 1000,
	}
	if err := b.deps.DB.Create(&perf).Error; err != nil {
		b.deps.LogManager.WriteLog(":DB:WRITER:", fmt.Sprintf("Error creating writer performance: %v", err), "WARN")
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// Items are pushed back when the insert fails.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), onSuccess func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}
	if err := tx.Commit().Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error committing %s: %v", name, err), "ERROR")
		q.Push(items...)
		return
	}
	if onSuccess != nil {
		onSuccess(items)
	}
}

// startDBWriter periodically drains the queues into the DB until Close.
func (b *Backend) startDBWriter() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
