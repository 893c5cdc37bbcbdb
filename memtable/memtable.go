// Package memtable implements the in-memory ordered table that absorbs
// writes ahead of a flush to a static index: a height-balanced (AVL)
// binary search tree over int64 keys, bounded to a configured entry
// count, with a borrowing range-scan iterator and a consuming
// drain iterator.
package memtable

import (
	"math"

	"github.com/intellect4all/ordkv/pagebuf"
)

type node struct {
	key, value  int64
	height      int8
	left, right *node
}

func height(n *node) int8 {
	if n == nil {
		return 0
	}
	return n.height
}

func max8(a, b int8) int8 {
	if a > b {
		return a
	}
	return b
}

func (n *node) updateHeight() {
	n.height = 1 + max8(height(n.left), height(n.right))
}

func balanceFactor(n *node) int8 {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	y.updateHeight()
	x.updateHeight()
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	x.updateHeight()
	y.updateHeight()
	return y
}

func rebalance(n *node) *node {
	bf := balanceFactor(n)
	if bf > 1 {
		if balanceFactor(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	}
	if bf < -1 {
		if balanceFactor(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

// MemTable is a bounded, ordered in-memory map from int64 key to int64
// value, backed by an AVL tree.
type MemTable struct {
	root  *node
	count int64
	cap   int64
}

// New creates an empty memtable bounded to at most capacity distinct
// keys.
func New(capacity int64) *MemTable {
	return &MemTable{cap: capacity}
}

// Capacity returns the configured maximum entry count M.
func (m *MemTable) Capacity() int64 { return m.cap }

// Len returns the current number of distinct keys.
func (m *MemTable) Len() int64 { return m.count }

// Full reports whether the memtable has reached its capacity.
func (m *MemTable) Full() bool { return m.count >= m.cap }

// Insert stores value under key. It returns false (and changes
// nothing) if the memtable is at capacity and key is not already
// present, or if value is the reserved sentinel. Inserting an existing
// key overwrites its value in place without changing Len().
func (m *MemTable) Insert(key, value int64) bool {
	if value == pagebuf.Sentinel {
		return false
	}
	if !m.contains(key) && m.Full() {
		return false
	}
	var isNew bool
	m.root, isNew = insert(m.root, key, value)
	if isNew {
		m.count++
	}
	return true
}

func insert(n *node, key, value int64) (*node, bool) {
	if n == nil {
		return &node{key: key, value: value, height: 1}, true
	}
	var isNew bool
	switch {
	case key < n.key:
		n.left, isNew = insert(n.left, key, value)
	case key > n.key:
		n.right, isNew = insert(n.right, key, value)
	default:
		n.value = value
		return n, false
	}
	n.updateHeight()
	return rebalance(n), isNew
}

func (m *MemTable) contains(key int64) bool {
	_, ok := m.Get(key)
	return ok
}

// Get returns the value stored under key, if any.
func (m *MemTable) Get(key int64) (int64, bool) {
	n := m.root
	for n != nil {
		switch {
		case key < n.key:
			n = n.left
		case key > n.key:
			n = n.right
		default:
			return n.value, true
		}
	}
	return 0, false
}

// Scan returns a borrowing iterator over entries with lo <= key <= hi
// in ascending key order. It does not mutate the memtable and runs in
// O(log M + k) for k results, without materializing the full range.
// The returned iterator holds pointers into the live tree: it must not
// be used past a subsequent Insert or Drain on the same MemTable, since
// a rebalancing rotation can rewrite the left/right pointers of nodes
// the iterator has already pushed onto its stack. Callers that cannot
// guarantee exclusive access for the iterator's full lifetime should
// use Snapshot instead.
func (m *MemTable) Scan(lo, hi int64) *Iterator {
	return newIterator(m.root, lo, hi)
}

// Snapshot returns an iterator over entries with lo <= key <= hi in
// ascending key order, copied out of the tree at call time. Unlike
// Scan, the returned iterator holds no references into the tree, so it
// remains valid across any number of subsequent Inserts or Drains —
// the price is an O(k) copy up front instead of Scan's O(log M + k)
// lazy walk.
func (m *MemTable) Snapshot(lo, hi int64) *SnapshotIterator {
	var items []snapshotEntry
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.key > lo {
			walk(n.left)
		}
		if n.key >= lo && n.key <= hi {
			items = append(items, snapshotEntry{n.key, n.value})
		}
		if n.key < hi {
			walk(n.right)
		}
	}
	walk(m.root)
	return &SnapshotIterator{items: items}
}

type snapshotEntry struct {
	key, value int64
}

// SnapshotIterator walks a point-in-time copy of a memtable range,
// immune to concurrent mutation of the tree it was taken from.
type SnapshotIterator struct {
	items []snapshotEntry
	pos   int
}

func (it *SnapshotIterator) Valid() bool  { return it.pos < len(it.items) }
func (it *SnapshotIterator) Key() int64   { return it.items[it.pos].key }
func (it *SnapshotIterator) Value() int64 { return it.items[it.pos].value }

func (it *SnapshotIterator) Next() error {
	if it.pos < len(it.items) {
		it.pos++
	}
	return nil
}

// Drain returns a consuming iterator over every entry in ascending
// order. The memtable is empty as soon as Drain returns; the returned
// iterator walks the detached tree it handed off.
func (m *MemTable) Drain() *Iterator {
	it := newIterator(m.root, math.MinInt64, math.MaxInt64)
	m.root = nil
	m.count = 0
	return it
}

// Iterator walks an in-order, range-bounded slice of a memtable via an
// explicit stack (no recursion, no whole-range materialization).
type Iterator struct {
	stack []*node
	hi    int64
}

func newIterator(root *node, lo, hi int64) *Iterator {
	it := &Iterator{hi: hi}
	it.pushGE(root, lo)
	return it
}

// pushGE pushes the path to the first key >= lo reachable from n,
// pruning subtrees known to fall entirely below lo.
func (it *Iterator) pushGE(n *node, lo int64) {
	for n != nil {
		if n.key < lo {
			n = n.right
			continue
		}
		it.stack = append(it.stack, n)
		n = n.left
	}
}

// Valid reports whether the iterator is positioned at an in-range
// entry.
func (it *Iterator) Valid() bool {
	if len(it.stack) == 0 {
		return false
	}
	return it.stack[len(it.stack)-1].key <= it.hi
}

// Key returns the current entry's key. Valid must be true.
func (it *Iterator) Key() int64 { return it.stack[len(it.stack)-1].key }

// Value returns the current entry's value. Valid must be true.
func (it *Iterator) Value() int64 { return it.stack[len(it.stack)-1].value }

// Next advances to the next entry in ascending order.
func (it *Iterator) Next() error {
	if len(it.stack) == 0 {
		return nil
	}
	n := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	it.pushGE(n.right, math.MinInt64)
	return nil
}
