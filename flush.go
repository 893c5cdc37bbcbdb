package ordkv

import (
	"fmt"
	"os"

	"github.com/intellect4all/ordkv/bloomfilter"
	"github.com/intellect4all/ordkv/compaction"
	"github.com/intellect4all/ordkv/pagecache"
	"github.com/intellect4all/ordkv/pageio"
	"github.com/intellect4all/ordkv/sindex"
)

// flush replaces the memtable with a fresh one and feeds the drained
// stream into the level-0 ingest protocol, rewriting the manifest on
// success. Caller must hold db.mu.
func (db *DB) flush() error {
	db.flushCount.Add(1)
	db.logger.Info("ordkv: flush start")

	drained := db.memtable.Drain()
	deepest := db.deepestOccupiedSlot()

	// The scratch-level-0 write below has not merged with any on-disk
	// slot yet, so a tombstone can only be dropped here if there is no
	// on-disk data anywhere it could still be shadowing.
	scratch := scratchPrefix(0)
	reader, bloom, fenceLevels, err := db.writeSI(scratch, []compaction.Stream{drained}, deepest < 0, estimateKeys(db.manifest.MaxMemTableSize, 0))
	if err != nil {
		return err
	}

	if err := db.ingest(0, scratch, reader, bloom, fenceLevels, deepest); err != nil {
		return err
	}

	if err := db.manifest.save(db.dir); err != nil {
		return err
	}
	db.logger.Info("ordkv: flush complete")
	return nil
}

func (db *DB) deepestOccupiedSlot() int {
	d := -1
	for i, s := range db.slots {
		if s != nil {
			d = i
		}
	}
	return d
}

func (db *DB) ensureSlotCapacity(level int) {
	for len(db.slots) <= level {
		db.slots = append(db.slots, nil)
		db.manifest.Slots = append(db.manifest.Slots, nil)
	}
}

// ingest places the Static Index currently staged under scratchName
// (already open as reader/bloom/fenceLevels) into slot level, merging
// it with and replacing that slot's contents if occupied, recursing
// until it lands in an empty slot. deepestBefore is the deepest
// occupied slot index as of the start of this flush/cascade. A
// tombstone may only be dropped once a merge has actually consumed
// the slot at deepestBefore — i.e. once level itself has reached
// deepestBefore, not one step before — since that is the first point
// at which every slot that could still hold an older value for the
// same key has been folded in.
func (db *DB) ingest(level int, scratchName string, reader *sindex.Reader, bloom *bloomfilter.Filter, fenceLevels int, deepestBefore int) error {
	if level >= db.maxSlots {
		reader.Close()
		removeSlotFiles(db.dir, scratchName, fenceLevels, db.cache)
		return ErrOutOfCapacity
	}
	db.ensureSlotCapacity(level)

	if db.slots[level] == nil {
		finalPrefix := slotPrefix(level)
		if err := reader.Close(); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		if err := renameSlotFiles(db.dir, scratchName, finalPrefix, fenceLevels, db.cache); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		finalReader, err := sindex.OpenReader(db.dir, finalPrefix, fenceLevels, db.cache)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruption, err)
		}
		db.slots[level] = &slot{reader: finalReader, bloom: bloom, prefix: finalPrefix, fenceLevels: fenceLevels}
		db.manifest.Slots[level] = &slotManifest{Prefix: finalPrefix, FenceLevels: fenceLevels}
		return nil
	}

	old := db.slots[level]
	incoming, err := reader.All()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	oldAll, err := old.reader.All()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	nextScratch := scratchPrefix(level + 1)
	dropTombstone := level >= deepestBefore
	expected := estimateKeys(db.manifest.MaxMemTableSize, level+1)
	nextReader, nextBloom, nextFenceLevels, err := db.writeSI(nextScratch, []compaction.Stream{incoming, oldAll}, dropTombstone, expected)
	if err != nil {
		return err
	}

	if err := reader.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := removeSlotFiles(db.dir, scratchName, fenceLevels, db.cache); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := old.reader.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := removeSlotFiles(db.dir, old.prefix, old.fenceLevels, db.cache); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	db.slots[level] = nil
	db.manifest.Slots[level] = nil

	db.logger.Info("ordkv: compaction cascade", "from_level", level, "to_level", level+1)
	return db.ingest(level+1, nextScratch, nextReader, nextBloom, nextFenceLevels, deepestBefore)
}

// writeSI merges streams into a brand new Static Index + Bloom filter
// pair at dir/prefix and opens a reader over the result.
func (db *DB) writeSI(prefix string, streams []compaction.Stream, dropTombstone bool, expectedKeys int) (*sindex.Reader, *bloomfilter.Filter, int, error) {
	w, err := sindex.NewWriter(db.dir, prefix)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	bloom := bloomfilter.New(expectedKeys)
	if _, err := compaction.Merge(streams, w, bloom, dropTombstone); err != nil {
		w.Abort()
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	fenceLevels, err := w.Finish()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	bw, err := pageio.CreateWriter(bloomPath(db.dir, prefix))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := bloom.WriteTo(bw); err != nil {
		bw.Remove()
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := bw.Close(); err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrIO, err)
	}

	reader, err := sindex.OpenReader(db.dir, prefix, fenceLevels, db.cache)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %v", ErrCorruption, err)
	}
	return reader, bloom, fenceLevels, nil
}

// estimateKeys sizes a new level's Bloom filter. Exact counts are only
// known once a merge drains, but the filter must be presized before
// insertion begins; doubling per level tracks how cascades accumulate
// entries from shallower levels. Oversizing only costs filter pages,
// never correctness.
func estimateKeys(memtableCap int64, level int) int {
	n := int(memtableCap)
	if n < 1 {
		n = 1
	}
	for i := 0; i <= level; i++ {
		n *= 2
	}
	return n
}

// renameSlotFiles moves oldPrefix's files to newPrefix. newPrefix's
// destination paths are almost always a slot's fixed, level-derived
// filenames being reoccupied after an earlier generation at that same
// level was deleted, so the cache must drop whatever it has cached for
// those destination paths or a reader could be served a page belonging
// to the file that used to live there.
func renameSlotFiles(dir, oldPrefix, newPrefix string, fenceLevels int, cache pagecache.Cache) error {
	oldPaths := append(sindex.Paths(dir, oldPrefix, fenceLevels), bloomPath(dir, oldPrefix))
	newPaths := append(sindex.Paths(dir, newPrefix, fenceLevels), bloomPath(dir, newPrefix))
	for i := range oldPaths {
		cache.InvalidatePath(newPaths[i])
		if err := os.Rename(oldPaths[i], newPaths[i]); err != nil {
			return err
		}
	}
	return nil
}

// removeSlotFiles deletes prefix's files. The cache is invalidated for
// every path first, since prefix's filenames are fixed per level and
// will be reused the next time that level is (re)occupied.
func removeSlotFiles(dir, prefix string, fenceLevels int, cache pagecache.Cache) error {
	paths := append(sindex.Paths(dir, prefix, fenceLevels), bloomPath(dir, prefix))
	var firstErr error
	for _, p := range paths {
		cache.InvalidatePath(p)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
