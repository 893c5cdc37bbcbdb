// Package ordkv implements a single-node, append-optimized, ordered
// key-value store over fixed-width int64 keys and values: a memtable
// absorbs writes, overflow flushes into a Static Index guarded by a
// Bloom filter, and level collisions cascade through the Compactor.
package ordkv

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/intellect4all/ordkv/bloomfilter"
	"github.com/intellect4all/ordkv/compaction"
	"github.com/intellect4all/ordkv/memtable"
	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pagecache"
	"github.com/intellect4all/ordkv/pageio"
	"github.com/intellect4all/ordkv/sindex"
)

// slot is one entry of the ordered slot list S[0..L]; lower index is
// newer. A nil *slot means the slot is empty.
type slot struct {
	reader      *sindex.Reader
	bloom       *bloomfilter.Filter
	prefix      string
	fenceLevels int
}

// DB is a single-writer handle onto one database directory.
type DB struct {
	dir      string
	cache    pagecache.Cache
	logger   *slog.Logger
	maxSlots int

	mu       sync.RWMutex
	memtable *memtable.MemTable
	slots    []*slot
	manifest *Manifest

	putCount   atomic.Int64
	getCount   atomic.Int64
	flushCount atomic.Int64
}

func slotPrefix(i int) string     { return fmt.Sprintf("b_tree_%d", i) }
func scratchPrefix(i int) string  { return fmt.Sprintf("scratch_%d", i) }
func bloomPath(dir, prefix string) string { return filepath.Join(dir, prefix+".bloom") }

// Create initializes a new, empty database at dir with memtable
// capacity m. dir must not exist or must be empty.
func Create(dir string, m int64, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create dir: %v", ErrIO, err)
		}
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	case len(entries) > 0:
		return nil, fmt.Errorf("ordkv: create: directory %s is not empty", dir)
	}

	man := &Manifest{MaxMemTableSize: m}
	if err := man.save(dir); err != nil {
		return nil, err
	}

	db := &DB{
		dir:      dir,
		cache:    cfg.cache,
		logger:   cfg.logger,
		maxSlots: cfg.maxLevelFanIn,
		memtable: memtable.New(m),
		manifest: man,
	}
	db.logger.Info("ordkv: created database", "dir", dir, "capacity", m)
	return db, nil
}

// Open reopens a database previously created at dir, rebuilding its
// slot list from the manifest.
func Open(dir string, opts ...Option) (*DB, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	man, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}

	db := &DB{
		dir:      dir,
		cache:    cfg.cache,
		logger:   cfg.logger,
		maxSlots: cfg.maxLevelFanIn,
		memtable: memtable.New(man.MaxMemTableSize),
		manifest: man,
		slots:    make([]*slot, len(man.Slots)),
	}

	for i, sm := range man.Slots {
		if sm == nil {
			continue
		}
		s, err := db.openSlot(sm.Prefix, sm.FenceLevels)
		if err != nil {
			db.closeSlots()
			return nil, fmt.Errorf("%w: open slot %d: %v", ErrCorruption, i, err)
		}
		db.slots[i] = s
	}

	db.logger.Info("ordkv: opened database", "dir", dir, "slots", len(db.slots))
	return db, nil
}

func (db *DB) openSlot(prefix string, fenceLevels int) (*slot, error) {
	reader, err := sindex.OpenReader(db.dir, prefix, fenceLevels, db.cache)
	if err != nil {
		return nil, err
	}
	br, err := pageio.OpenReader(bloomPath(db.dir, prefix))
	if err != nil {
		reader.Close()
		return nil, err
	}
	bloom, err := bloomfilter.OpenFilter(br)
	br.Close()
	if err != nil {
		reader.Close()
		return nil, err
	}
	return &slot{reader: reader, bloom: bloom, prefix: prefix, fenceLevels: fenceLevels}, nil
}

func (db *DB) closeSlots() {
	for _, s := range db.slots {
		if s != nil {
			s.reader.Close()
		}
	}
}

// Put stores value under key. Sentinel values are rejected without
// side effects.
func (db *DB) Put(k, v int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.putCount.Add(1)
	return db.put(k, v)
}

// Delete records a tombstone for key; Get/Range treat it as absent
// until compaction drops it at the deepest occupied level.
func (db *DB) Delete(k int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.putCount.Add(1)
	return db.put(k, compaction.Tombstone)
}

func (db *DB) put(k, v int64) error {
	if v == pagebuf.Sentinel {
		return ErrInvalidValue
	}
	if db.memtable.Insert(k, v) {
		return nil
	}
	if err := db.flush(); err != nil {
		return err
	}
	if !db.memtable.Insert(k, v) {
		return ErrOutOfCapacity
	}
	return nil
}

// Get returns the most recently put value for key, if any and not
// deleted.
func (db *DB) Get(k int64) (int64, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	db.getCount.Add(1)

	if v, ok := db.memtable.Get(k); ok {
		if v == compaction.Tombstone {
			return 0, false, nil
		}
		return v, true, nil
	}

	for _, s := range db.slots {
		if s == nil || !s.bloom.Probe(k) {
			continue
		}
		v, ok, err := s.reader.Get(k)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %v", ErrCorruption, err)
		}
		if ok {
			if v == compaction.Tombstone {
				return 0, false, nil
			}
			return v, true, nil
		}
	}
	return 0, false, nil
}

// Close flushes any pending writes and releases every open file.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.memtable.Len() > 0 {
		if err := db.flush(); err != nil {
			return err
		}
	}
	for _, s := range db.slots {
		if s == nil {
			continue
		}
		if err := s.reader.Close(); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
	}
	db.logger.Info("ordkv: closed database", "dir", db.dir)
	return nil
}
