// Package sindex implements the Static Index: an immutable, page
// structured, sorted on-disk index built by a single streaming pass
// over ascending (key, value) pairs. A Static Index is a leaf file of
// 256-pair pages plus a stack of fence files of 512-key separator
// pages, the topmost of which is always exactly one page.
package sindex

import (
	"fmt"
	"path/filepath"

	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pageio"
)

func leafPath(dir, prefix string) string {
	return filepath.Join(dir, prefix+".items.btree")
}

func fencePath(dir, prefix string, level int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.level%d.btree", prefix, level))
}

// Paths returns every file path belonging to the Static Index built at
// dir/prefix with the given number of fence levels: the leaf file
// first, then fence files from level 0 upward. Used by callers that
// need to rename or remove a whole index as a unit.
func Paths(dir, prefix string, fenceLevels int) []string {
	paths := []string{leafPath(dir, prefix)}
	for l := 0; l < fenceLevels; l++ {
		paths = append(paths, fencePath(dir, prefix, l))
	}
	return paths
}

type fenceAccum struct {
	writer  *pageio.Writer
	accum   *pagebuf.Buffer
	count   int
	lastKey int64
}

// Writer streams ascending (key,value) pairs into a new Static Index.
type Writer struct {
	dir, prefix string

	leafWriter *pageio.Writer
	leafAccum  *pagebuf.Buffer
	leafCount  int
	lastKey    int64
	hasKeys    bool

	fences   []*fenceAccum
	finished bool
}

// NewWriter begins building a Static Index at dir/prefix. It fails if
// any of the destination files already exist.
func NewWriter(dir, prefix string) (*Writer, error) {
	lw, err := pageio.CreateWriter(leafPath(dir, prefix))
	if err != nil {
		return nil, err
	}
	return &Writer{
		dir:        dir,
		prefix:     prefix,
		leafWriter: lw,
		leafAccum:  pagebuf.NewKeyPage(),
	}, nil
}

// Add appends one (key,value) pair. Keys must be passed in strictly
// ascending order; duplicates must be resolved by the caller upstream
// (e.g. the Compactor).
func (w *Writer) Add(key, value int64) error {
	if w.finished {
		return fmt.Errorf("sindex: Add after Finish")
	}
	if key == pagebuf.Sentinel || value == pagebuf.Sentinel {
		return fmt.Errorf("sindex: key/value cannot equal the sentinel")
	}
	if w.hasKeys && key <= w.lastKey {
		return fmt.Errorf("sindex: keys must be strictly ascending (got %d after %d)", key, w.lastKey)
	}

	w.leafAccum.PutPairAt(w.leafCount, pagebuf.Pair{Key: key, Value: value})
	w.leafCount++
	w.lastKey = key
	w.hasKeys = true

	if w.leafCount == pagebuf.PairsPerPage {
		if err := w.flushLeaf(); err != nil {
			return err
		}
		if err := w.pushFenceKey(0, key); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) flushLeaf() error {
	if _, err := w.leafWriter.WritePage(w.leafAccum); err != nil {
		return err
	}
	w.leafAccum = pagebuf.NewKeyPage()
	w.leafCount = 0
	return nil
}

// pushFenceKey appends key to level's separator accumulator, creating
// the level on first use, and cascades the flush-and-promote step
// whenever a level's accumulator fills (512 keys).
func (w *Writer) pushFenceKey(level int, key int64) error {
	if level >= len(w.fences) {
		fw, err := pageio.CreateWriter(fencePath(w.dir, w.prefix, level))
		if err != nil {
			return err
		}
		w.fences = append(w.fences, &fenceAccum{writer: fw, accum: pagebuf.NewKeyPage()})
	}

	lvl := w.fences[level]
	lvl.accum.PutInt64At(lvl.count*8, key)
	lvl.count++
	lvl.lastKey = key

	if lvl.count == pagebuf.KeysPerPage {
		if _, err := lvl.writer.WritePage(lvl.accum); err != nil {
			return err
		}
		lvl.accum = pagebuf.NewKeyPage()
		lvl.count = 0
		return w.pushFenceKey(level+1, key)
	}
	return nil
}

// Finish completes the index: it flushes any partial leaf page
// (delivering its last real key upward as a fence entry first), pads
// and writes any partial fence-level page, and closes every file. It
// returns the number of fence levels produced; by construction the
// topmost one occupies exactly one page.
func (w *Writer) Finish() (int, error) {
	if w.finished {
		return 0, fmt.Errorf("sindex: Finish called twice")
	}
	w.finished = true

	if w.leafCount > 0 {
		if err := w.pushFenceKey(0, w.lastKey); err != nil {
			return 0, err
		}
		if err := w.flushLeaf(); err != nil {
			return 0, err
		}
	}

	for _, lvl := range w.fences {
		if lvl.count > 0 {
			if _, err := lvl.writer.WritePage(lvl.accum); err != nil {
				return 0, err
			}
		}
	}

	if err := w.leafWriter.Close(); err != nil {
		return 0, err
	}
	for _, lvl := range w.fences {
		if err := lvl.writer.Close(); err != nil {
			return 0, err
		}
	}

	return len(w.fences), nil
}

// Abort removes every file created so far, used when a build fails
// partway through.
func (w *Writer) Abort() error {
	var firstErr error
	if err := w.leafWriter.Remove(); err != nil && firstErr == nil {
		firstErr = err
	}
	for _, lvl := range w.fences {
		if err := lvl.writer.Remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
