package ordkv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/intellect4all/ordkv/common"
)

// Adapter exposes a DB through common.StorageEngine, encoding the
// interface's []byte keys/values as native-endian int64s so the shared
// common/benchmark harness can drive ordkv the same way it drives any
// other engine in the example pack.
type Adapter struct {
	db     *DB
	closed atomic.Bool
}

// NewAdapter wraps db as a common.StorageEngine.
func NewAdapter(db *DB) *Adapter {
	return &Adapter{db: db}
}

func decodeKey(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("ordkv: adapter requires 8-byte keys, got %d", len(b))
	}
	return int64(binary.NativeEndian.Uint64(b)), nil
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.NativeEndian.PutUint64(b, uint64(v))
	return b
}

// Put implements common.StorageEngine.
func (a *Adapter) Put(key, value []byte) error {
	if a.closed.Load() {
		return common.ErrClosed
	}
	k, err := decodeKey(key)
	if err != nil {
		return err
	}
	v, err := decodeKey(value)
	if err != nil {
		return err
	}
	if err := a.db.Put(k, v); err != nil {
		if errors.Is(err, ErrOutOfCapacity) {
			return common.ErrDiskFull
		}
		return err
	}
	return nil
}

// Get implements common.StorageEngine.
func (a *Adapter) Get(key []byte) ([]byte, error) {
	if a.closed.Load() {
		return nil, common.ErrClosed
	}
	k, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	v, ok, err := a.db.Get(k)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrKeyNotFound
	}
	return encodeInt64(v), nil
}

// Delete implements common.StorageEngine.
func (a *Adapter) Delete(key []byte) error {
	if a.closed.Load() {
		return common.ErrClosed
	}
	k, err := decodeKey(key)
	if err != nil {
		return err
	}
	if err := a.db.Delete(k); err != nil {
		if errors.Is(err, ErrOutOfCapacity) {
			return common.ErrDiskFull
		}
		return err
	}
	return nil
}

// Close implements common.StorageEngine. Close is idempotent: once
// called, every subsequent Adapter method returns common.ErrClosed
// instead of touching the underlying DB.
func (a *Adapter) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	return a.db.Close()
}

// Sync flushes the memtable through the level cascade (the same work
// as Compact), so every write accepted so far is on disk when it
// returns. ordkv has no write-ahead log: until a flush, Put/Delete
// data lives only in the memtable.
func (a *Adapter) Sync() error {
	if a.closed.Load() {
		return common.ErrClosed
	}
	return a.Compact()
}

// Compact forces one flush, draining the memtable through the level
// cascade; ordkv has no separate background compaction to trigger.
func (a *Adapter) Compact() error {
	if a.closed.Load() {
		return common.ErrClosed
	}
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	if a.db.memtable.Len() == 0 {
		return nil
	}
	if err := a.db.flush(); err != nil {
		if errors.Is(err, ErrOutOfCapacity) {
			return common.ErrDiskFull
		}
		return err
	}
	return nil
}

// Stats implements common.StorageEngine.
func (a *Adapter) Stats() common.Stats {
	s := a.db.Stats()
	return common.Stats{
		NumKeys:      s.MemTableLen,
		NumSegments:  s.OccupiedSlots,
		WriteCount:   s.PutCount,
		ReadCount:    s.GetCount,
		CompactCount: s.FlushCount,
	}
}
