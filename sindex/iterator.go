package sindex

import (
	"math"

	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pageio"
)

// RangeIter streams leaf pairs in ascending key order over [lo, hi],
// fetching a leaf page only when the scan crosses a page boundary. It
// also serves as the whole-index consuming iterator (component 4.E.4)
// when constructed with the full key domain.
type RangeIter struct {
	leaf *pageio.Reader
	hi   int64
	idx  int64

	buf       *pagebuf.Buffer
	curPageNo int64 // -1: no page loaded / past end of file; -2: never loaded

	valid bool
	pair  pagebuf.Pair
}

func emptyRangeIter() *RangeIter {
	return &RangeIter{curPageNo: -1}
}

func newRangeIter(leaf *pageio.Reader, startPageNo, lo, hi int64) (*RangeIter, error) {
	it := &RangeIter{leaf: leaf, hi: hi, idx: startPageNo * int64(pagebuf.PairsPerPage), curPageNo: -2}
	if err := it.ensurePage(); err != nil {
		return nil, err
	}
	if it.curPageNo == -1 {
		return it, nil
	}

	base := it.idx
	lo2, hi2 := 0, pagebuf.PairsPerPage
	for lo2 < hi2 {
		mid := (lo2 + hi2) / 2
		if it.buf.PairAt(mid).Key < lo {
			lo2 = mid + 1
		} else {
			hi2 = mid
		}
	}
	it.idx = base + int64(lo2)

	if err := it.position(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *RangeIter) ensurePage() error {
	pageNo := it.idx / int64(pagebuf.PairsPerPage)
	if pageNo == it.curPageNo {
		return nil
	}
	if pageNo >= it.leaf.NumPages() {
		it.curPageNo = -1
		return nil
	}
	buf := pagebuf.New()
	if err := it.leaf.ReadPage(buf, pageNo); err != nil {
		return err
	}
	it.buf = buf
	it.curPageNo = pageNo
	return nil
}

func (it *RangeIter) position() error {
	if err := it.ensurePage(); err != nil {
		return err
	}
	if it.curPageNo == -1 {
		it.valid = false
		return nil
	}
	localIdx := int(it.idx % int64(pagebuf.PairsPerPage))
	p := it.buf.PairAt(localIdx)
	if p.Key == pagebuf.Sentinel || p.Key > it.hi {
		it.valid = false
		return nil
	}
	it.pair = p
	it.valid = true
	return nil
}

// Valid reports whether the iterator is positioned at an in-range
// entry.
func (it *RangeIter) Valid() bool { return it.valid }

// Key returns the current entry's key. Valid must be true.
func (it *RangeIter) Key() int64 { return it.pair.Key }

// Value returns the current entry's value. Valid must be true.
func (it *RangeIter) Value() int64 { return it.pair.Value }

// Next advances to the next in-range entry.
func (it *RangeIter) Next() error {
	if !it.valid {
		return nil
	}
	it.idx++
	return it.position()
}

// Range returns a lazy ascending iterator over pairs with lo <= key <=
// hi. A reversed or empty-domain range, or an index with no fence
// levels built (no data), yields an immediately-invalid iterator.
func (r *Reader) Range(lo, hi int64) (*RangeIter, error) {
	if lo > hi || r.fenceLevels == 0 {
		return emptyRangeIter(), nil
	}
	p0, err := r.descend(lo)
	if err != nil {
		return nil, err
	}
	return newRangeIter(r.leaf, p0, lo, hi)
}

// All returns a consuming-style iterator over every pair in the index
// in ascending order, terminating at the first sentinel. Used as
// Compactor input.
func (r *Reader) All() (*RangeIter, error) {
	if r.fenceLevels == 0 {
		return emptyRangeIter(), nil
	}
	return newRangeIter(r.leaf, 0, math.MinInt64, pagebuf.Sentinel)
}
