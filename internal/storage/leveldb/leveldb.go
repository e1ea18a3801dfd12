// Package leveldbstorage implements the storage.Backend interface on a
// LevelDB key/value store. Snapshots and truck reports are JSON values under
// zero-padded keys so that iteration order is save order.
package leveldbstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fleetfeast/pogicity/internal/config"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/pkg/core"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	snapshotPrefix = "snap/"
	truckPrefix    = "truck/"
)

// TruckReport is one stored backend report.
type TruckReport struct {
	At     time.Time         `json:"at"`
	States []core.TruckState `json:"states"`
}

// Backend stores snapshots and truck reports in LevelDB.
type Backend struct {
	cfg config.LevelDBConfig
	db  *leveldb.DB

	mu       sync.Mutex
	lastID   uint
	truckSeq uint64
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new LevelDB backend. The database is opened by Init.
func New(cfg config.LevelDBConfig) *Backend {
	return &Backend{cfg: cfg}
}

func snapshotKey(id uint) []byte {
	return []byte(fmt.Sprintf("%s%020d", snapshotPrefix, id))
}

func truckKey(at time.Time, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d/%010d", truckPrefix, at.UnixNano(), seq))
}

// Init opens the database and recovers the last snapshot ID.
func (b *Backend) Init() error {
	if b.cfg.Path == "" {
		return errors.New("leveldb path not set")
	}
	db, err := leveldb.OpenFile(b.cfg.Path, nil)
	if err != nil {
		return fmt.Errorf("failed to open leveldb %s: %w", b.cfg.Path, err)
	}
	b.db = db

	iter := db.NewIterator(util.BytesPrefix([]byte(snapshotPrefix)), nil)
	defer iter.Release()
	if iter.Last() {
		id, err := strconv.ParseUint(strings.TrimPrefix(string(iter.Key()), snapshotPrefix), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt snapshot key %q: %w", iter.Key(), err)
		}
		b.lastID = uint(id)
	}
	return iter.Error()
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SaveSnapshot writes s under the next ID with a synced write.
func (b *Backend) SaveSnapshot(s *core.WorldSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s.ID = b.lastID + 1
	data, err := json.Marshal(s)
	if err != nil {
		s.ID = 0
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := b.db.Put(snapshotKey(s.ID), data, &opt.WriteOptions{Sync: true}); err != nil {
		s.ID = 0
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	b.lastID = s.ID
	return nil
}

// LoadSnapshot returns the snapshot with the highest ID.
func (b *Backend) LoadSnapshot() (core.WorldSnapshot, error) {
	var snap core.WorldSnapshot

	iter := b.db.NewIterator(util.BytesPrefix([]byte(snapshotPrefix)), nil)
	defer iter.Release()
	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return snap, err
		}
		return snap, storage.ErrNoSnapshot
	}
	if err := json.Unmarshal(iter.Value(), &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot %q: %w", iter.Key(), err)
	}
	return snap, nil
}

// RecordTruckStates stores one report keyed by receive time.
func (b *Backend) RecordTruckStates(states []core.TruckState, at time.Time) error {
	if len(states) == 0 {
		return errors.New("empty truck report")
	}
	data, err := json.Marshal(TruckReport{At: at, States: states})
	if err != nil {
		return fmt.Errorf("failed to encode truck report: %w", err)
	}

	b.mu.Lock()
	b.truckSeq++
	key := truckKey(at, b.truckSeq)
	b.mu.Unlock()

	return b.db.Put(key, data, nil)
}

// TruckReports returns the reports received in [from, to), oldest first.
func (b *Backend) TruckReports(from, to time.Time) ([]TruckReport, error) {
	rng := &util.Range{
		Start: []byte(fmt.Sprintf("%s%020d", truckPrefix, from.UnixNano())),
		Limit: []byte(fmt.Sprintf("%s%020d", truckPrefix, to.UnixNano())),
	}
	iter := b.db.NewIterator(rng, nil)
	defer iter.Release()

	var out []TruckReport
	for iter.Next() {
		var r TruckReport
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return out, fmt.Errorf("failed to decode truck report %q: %w", iter.Key(), err)
		}
		out = append(out, r)
	}
	return out, iter.Error()
}

// PruneSnapshots deletes all but the newest keep snapshots and returns how
// many were removed.
func (b *Backend) PruneSnapshots(keep int) (int, error) {
	iter := b.db.NewIterator(util.BytesPrefix([]byte(snapshotPrefix)), nil)
	var keys [][]byte
	for iter.Next() {
		keys = append(keys, append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return 0, err
	}
	if len(keys) <= keep {
		return 0, nil
	}

	batch := new(leveldb.Batch)
	drop := keys[:len(keys)-keep]
	for _, k := range drop {
		batch.Delete(k)
	}
	if err := b.db.Write(batch, nil); err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return len(drop), nil
}
