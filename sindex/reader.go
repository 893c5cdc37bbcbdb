package sindex

import (
	"fmt"
	"os"
	"sort"

	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pagecache"
	"github.com/intellect4all/ordkv/pageio"
)

// Reader provides point-lookup and range-scan access to an immutable
// Static Index already on disk.
type Reader struct {
	dir, prefix string
	fenceLevels int

	leaf   *pageio.Reader
	fences []*pageio.Reader
	cache  pagecache.Cache
}

// OpenReader opens the Static Index at dir/prefix, which was written
// with the given number of fence levels (as recorded in the manifest).
func OpenReader(dir, prefix string, fenceLevels int, cache pagecache.Cache) (*Reader, error) {
	leaf, err := pageio.OpenReader(leafPath(dir, prefix))
	if err != nil {
		return nil, err
	}

	r := &Reader{dir: dir, prefix: prefix, fenceLevels: fenceLevels, leaf: leaf, cache: cache}

	for l := 0; l < fenceLevels; l++ {
		fr, err := pageio.OpenReader(fencePath(dir, prefix, l))
		if err != nil {
			r.Close()
			return nil, err
		}
		if fr.NumPages() == 0 || fr.FileSize()%pagebuf.Size != 0 {
			r.Close()
			return nil, fmt.Errorf("sindex: corrupt fence file %s", fr.Path())
		}
		r.fences = append(r.fences, fr)
	}
	if fenceLevels > 0 {
		top := r.fences[fenceLevels-1]
		if top.NumPages() != 1 {
			r.Close()
			return nil, fmt.Errorf("sindex: corrupt top fence file %s: expected 1 page, got %d", top.Path(), top.NumPages())
		}
	}

	return r, nil
}

// Close closes every underlying file handle.
func (r *Reader) Close() error {
	var firstErr error
	if r.leaf != nil {
		if err := r.leaf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, fr := range r.fences {
		if err := fr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Remove closes and deletes every file belonging to this index, used
// after a compaction that consumed it.
func (r *Reader) Remove() error {
	r.Close()
	var firstErr error
	paths := []string{leafPath(r.dir, r.prefix)}
	for l := 0; l < r.fenceLevels; l++ {
		paths = append(paths, fencePath(r.dir, r.prefix, l))
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// searchGE returns the first index in keys (ascending, length 512 or
// less) with keys[i] >= k, clamped to the last valid index.
func searchGE(keys []int64, k int64) int {
	idx := sort.Search(len(keys), func(i int) bool { return keys[i] >= k })
	if idx == len(keys) {
		idx = len(keys) - 1
	}
	return idx
}

// descend walks the fence hierarchy top-down for key k and returns the
// leaf page number that may contain it.
func (r *Reader) descend(k int64) (int64, error) {
	if r.fenceLevels == 0 {
		return 0, nil
	}

	cur := int64(0)
	for level := r.fenceLevels - 1; level >= 0; level-- {
		buf, err := r.cache.GetPage(r.fences[level], cur, true, true)
		if err != nil {
			return 0, fmt.Errorf("sindex: descend level %d page %d: %w", level, cur, err)
		}
		keys := buf.Int64s()
		intra := searchGE(keys, k)
		cur = cur*int64(pagebuf.KeysPerPage) + int64(intra)
	}
	return cur, nil
}

// Get returns the value stored under key, if present.
func (r *Reader) Get(key int64) (int64, bool, error) {
	if r.fenceLevels == 0 {
		return 0, false, nil
	}

	leafPageNo, err := r.descend(key)
	if err != nil {
		return 0, false, err
	}

	buf := pagebuf.New()
	if err := r.leaf.ReadPage(buf, leafPageNo); err != nil {
		return 0, false, fmt.Errorf("sindex: read leaf page %d: %w", leafPageNo, err)
	}

	pairs := make([]pagebuf.Pair, pagebuf.PairsPerPage)
	for i := range pairs {
		pairs[i] = buf.PairAt(i)
	}
	idx := sort.Search(len(pairs), func(i int) bool { return pairs[i].Key >= key })
	if idx < len(pairs) && pairs[idx].Key == key {
		return pairs[idx].Value, true, nil
	}
	return 0, false, nil
}
