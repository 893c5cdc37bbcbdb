// Package compaction implements the k-way merge that turns an ordered
// list of sorted streams, newest first, into a new Static Index and
// its accompanying Bloom filter. The same merge machinery, exposed as
// MergeIter, also backs the database façade's range scans.
package compaction

import (
	"container/heap"
	"math"

	"github.com/intellect4all/ordkv/bloomfilter"
	"github.com/intellect4all/ordkv/sindex"
)

// Tombstone is the reserved value marking a deleted key. It survives
// merges until the deepest occupied level, where the caller asks for
// it to be dropped.
const Tombstone = int64(math.MinInt64)

// Stream is anything that can be merged: an ascending, terminating
// sequence of (key,value) pairs. memtable.Iterator and sindex.RangeIter
// both satisfy this directly.
type Stream interface {
	Valid() bool
	Key() int64
	Value() int64
	Next() error
}

type heapItem struct {
	key, value int64
	streamIdx  int
}

// mergeHeap orders by ascending key; on a tie the lower stream index
// wins, since callers pass streams newest-first.
type mergeHeap []heapItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].streamIdx < h[j].streamIdx
}
func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x any)   { *h = append(*h, x.(heapItem)) }
func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func advance(h *mergeHeap, s Stream, idx int) error {
	if err := s.Next(); err != nil {
		return err
	}
	if s.Valid() {
		heap.Push(h, heapItem{key: s.Key(), value: s.Value(), streamIdx: idx})
	}
	return nil
}

// MergeIter is a Stream itself: the ascending, deduplicated, newest-wins
// merge of its input streams. Useful both as Merge's engine and
// directly as a lazy range-scan iterator.
type MergeIter struct {
	streams       []Stream
	h             *mergeHeap
	dropTombstone bool

	valid bool
	key   int64
	value int64
}

// NewMergeIter starts a merge over streams, newest first. When
// dropTombstone is set, a winning entry equal to Tombstone is silently
// skipped rather than yielded.
func NewMergeIter(streams []Stream, dropTombstone bool) (*MergeIter, error) {
	h := &mergeHeap{}
	heap.Init(h)
	for i, s := range streams {
		if s.Valid() {
			heap.Push(h, heapItem{key: s.Key(), value: s.Value(), streamIdx: i})
		}
	}
	it := &MergeIter{streams: streams, h: h, dropTombstone: dropTombstone}
	if err := it.advance(); err != nil {
		return nil, err
	}
	return it, nil
}

// advance pops the next winning key (discarding older duplicates) and
// positions the iterator on it, skipping tombstones when configured.
func (it *MergeIter) advance() error {
	for it.h.Len() > 0 {
		top := heap.Pop(it.h).(heapItem)
		key, value := top.key, top.value

		if err := advance(it.h, it.streams[top.streamIdx], top.streamIdx); err != nil {
			return err
		}
		for it.h.Len() > 0 && (*it.h)[0].key == key {
			dup := heap.Pop(it.h).(heapItem)
			if err := advance(it.h, it.streams[dup.streamIdx], dup.streamIdx); err != nil {
				return err
			}
		}

		if it.dropTombstone && value == Tombstone {
			continue
		}

		it.key, it.value, it.valid = key, value, true
		return nil
	}
	it.valid = false
	return nil
}

// Valid reports whether the iterator is positioned at an entry.
func (it *MergeIter) Valid() bool { return it.valid }

// Key returns the current entry's key. Valid must be true.
func (it *MergeIter) Key() int64 { return it.key }

// Value returns the current entry's value. Valid must be true.
func (it *MergeIter) Value() int64 { return it.value }

// Next advances to the next merged entry.
func (it *MergeIter) Next() error {
	if !it.valid {
		return nil
	}
	return it.advance()
}

// Merge drains every stream in key order, writing the result to out
// and bloom. On key collisions, only the entry from the lowest-indexed
// (newest) stream survives; the rest are discarded. When dropTombstone
// is set, winning entries equal to Tombstone are dropped instead of
// written — callers set this only when merging into the deepest
// occupied level. It returns the number of pairs written.
func Merge(streams []Stream, out *sindex.Writer, bloom *bloomfilter.Filter, dropTombstone bool) (int, error) {
	it, err := NewMergeIter(streams, dropTombstone)
	if err != nil {
		return 0, err
	}

	written := 0
	for it.Valid() {
		if err := out.Add(it.Key(), it.Value()); err != nil {
			return written, err
		}
		if bloom != nil {
			bloom.Add(it.Key())
		}
		written++
		if err := it.Next(); err != nil {
			return written, err
		}
	}
	return written, nil
}
