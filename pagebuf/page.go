// Package pagebuf implements the fixed-size page byte buffer shared by
// the file I/O, cache, static index and bloom filter layers. A buffer
// is exactly one page long; its in-memory address is not forced onto
// a 4096-byte boundary.
package pagebuf

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
)

const (
	// Size is the fixed page size in bytes used throughout the store.
	Size = 4096

	// Sentinel marks an empty key-data slot and end-of-stream.
	Sentinel = int64(math.MaxInt64)

	int64Size = 8
	pairSize  = 2 * int64Size

	// PairsPerPage is the number of (key,value) pairs a leaf page holds.
	PairsPerPage = Size / pairSize // 256

	// KeysPerPage is the number of keys a fence page holds.
	KeysPerPage = Size / int64Size // 512

	// CacheLineSize is the granularity the bloom filter blocks probes to.
	CacheLineSize = 64

	// CacheLinesPerPage is the number of cache lines in one page.
	CacheLinesPerPage = Size / CacheLineSize // 64
)

// Pair is a (key, value) entry as stored in a leaf page.
type Pair struct {
	Key   int64
	Value int64
}

// Buffer owns a single 4096-byte page-sized region. The reference
// count tracks owners beyond the first and starts at 0; the buffer is
// safe to mutate exclusively while that count is 0 (i.e. before it is
// shared with anything else, such as a Cache). Once a second owner
// retains a Buffer it must be treated as read-only; mutating methods
// panic on a shared buffer.
type Buffer struct {
	data []byte
	refs *atomic.Int32
}

// New allocates a zero-filled page buffer.
func New() *Buffer {
	return &Buffer{data: make([]byte, Size), refs: new(atomic.Int32)}
}

// NewKeyPage allocates a page pre-filled with the sentinel, suitable for
// accumulating (key,value) pairs or fence keys before any real data is
// written into it.
func NewKeyPage() *Buffer {
	b := New()
	for i := range b.Int64s() {
		b.putInt64(i*int64Size, Sentinel)
	}
	return b
}

// FromBytes wraps an existing page-sized slice without copying. The
// caller must not retain other mutable references to data.
func FromBytes(data []byte) (*Buffer, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("pagebuf: expected %d bytes, got %d", Size, len(data))
	}
	return &Buffer{data: data, refs: new(atomic.Int32)}, nil
}

func (b *Buffer) refCount() int32 { return b.refs.Load() }

// Retain increments the reference count and returns the same buffer,
// for callers handing it to a second owner (e.g. a cache insert).
func (b *Buffer) Retain() *Buffer {
	b.refs.Add(1)
	return b
}

// Release decrements the reference count. It does not free anything
// explicitly (the Go GC handles that); it exists so mutation-guard
// checks can tell a once-shared buffer has gone back to having a
// single owner.
func (b *Buffer) Release() {
	if b.refs.Load() > 0 {
		b.refs.Add(-1)
	}
}

// Clone returns a new handle that shares the same backing bytes,
// incrementing the reference count on the original. Used to hand a
// read-only view of a cached page to a second reader.
func (b *Buffer) Clone() *Buffer {
	b.refs.Add(1)
	return &Buffer{data: b.data, refs: b.refs}
}

func (b *Buffer) checkMutable() {
	if b.refCount() > 0 {
		panic("pagebuf: mutation of a shared buffer")
	}
}

// Bytes returns the raw page bytes.
func (b *Buffer) Bytes() []byte { return b.data }

// Int64s returns a copy of the page decoded as 512 native-endian int64
// values; writing to the returned slice does not change the page.
func (b *Buffer) Int64s() []int64 {
	out := make([]int64, KeysPerPage)
	for i := range out {
		out[i] = b.Int64At(i * int64Size)
	}
	return out
}

// Int64At reads one native-endian int64 at the given byte offset.
func (b *Buffer) Int64At(offset int) int64 {
	return int64(binary.NativeEndian.Uint64(b.data[offset : offset+int64Size]))
}

func (b *Buffer) putInt64(offset int, v int64) {
	binary.NativeEndian.PutUint64(b.data[offset:offset+int64Size], uint64(v))
}

// PutInt64At writes one native-endian int64 at the given byte offset.
// Panics if the buffer is shared.
func (b *Buffer) PutInt64At(offset int, v int64) {
	b.checkMutable()
	b.putInt64(offset, v)
}

// PairAt reads the pair at the given pair index (0..PairsPerPage-1).
func (b *Buffer) PairAt(idx int) Pair {
	off := idx * pairSize
	return Pair{Key: b.Int64At(off), Value: b.Int64At(off + int64Size)}
}

// PutPairAt writes the pair at the given pair index. Panics if the
// buffer is shared.
func (b *Buffer) PutPairAt(idx int, p Pair) {
	b.checkMutable()
	off := idx * pairSize
	b.putInt64(off, p.Key)
	b.putInt64(off+int64Size, p.Value)
}

// CacheLine returns the raw bytes of one 64-byte cache line.
func (b *Buffer) CacheLine(i int) []byte {
	off := i * CacheLineSize
	return b.data[off : off+CacheLineSize]
}
