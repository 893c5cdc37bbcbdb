package compaction

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/intellect4all/ordkv/bloomfilter"
	"github.com/intellect4all/ordkv/common/testutil"
	"github.com/intellect4all/ordkv/pagecache"
	"github.com/intellect4all/ordkv/sindex"
)

// sliceStream is a minimal in-memory Stream for unit tests, standing
// in for memtable/sindex iterators.
type sliceStream struct {
	pairs []struct{ k, v int64 }
	pos   int
}

func newSliceStream(pairs ...[2]int64) *sliceStream {
	s := &sliceStream{}
	for _, p := range pairs {
		s.pairs = append(s.pairs, struct{ k, v int64 }{p[0], p[1]})
	}
	return s
}

func (s *sliceStream) Valid() bool    { return s.pos < len(s.pairs) }
func (s *sliceStream) Key() int64     { return s.pairs[s.pos].k }
func (s *sliceStream) Value() int64   { return s.pairs[s.pos].v }
func (s *sliceStream) Next() error    { s.pos++; return nil }

func mergeToSlice(t *testing.T, streams []Stream, dropTombstone bool) []struct{ k, v int64 } {
	dir := testutil.TempDir(t)
	w, err := sindex.NewWriter(dir, "merge")
	require.NoError(t, err)
	bloom := bloomfilter.New(16)

	n, err := Merge(streams, w, bloom, dropTombstone)
	require.NoError(t, err)
	levels, err := w.Finish()
	require.NoError(t, err)

	r, err := sindex.OpenReader(dir, "merge", levels, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	it, err := r.All()
	require.NoError(t, err)
	var got []struct{ k, v int64 }
	for it.Valid() {
		got = append(got, struct{ k, v int64 }{it.Key(), it.Value()})
		require.NoError(t, it.Next())
	}
	require.Len(t, got, n)
	for _, p := range got {
		require.True(t, bloom.Probe(p.k))
	}
	return got
}

func TestMergeNonOverlappingStreamsAreInterleaved(t *testing.T) {
	a := newSliceStream([2]int64{1, 10}, [2]int64{4, 40})
	b := newSliceStream([2]int64{2, 20}, [2]int64{3, 30})

	got := mergeToSlice(t, []Stream{a, b}, false)
	require.Equal(t, []int64{1, 2, 3, 4}, keys(got))
}

func TestMergeNewestStreamWinsOnTie(t *testing.T) {
	// streams passed newest-first: a is newer than b.
	a := newSliceStream([2]int64{5, 100})
	b := newSliceStream([2]int64{5, 1})

	got := mergeToSlice(t, []Stream{a, b}, false)
	require.Len(t, got, 1)
	require.Equal(t, int64(100), got[0].v)
}

func TestMergeThreeWayTieKeepsOnlyNewest(t *testing.T) {
	a := newSliceStream([2]int64{9, 3})
	b := newSliceStream([2]int64{9, 2})
	c := newSliceStream([2]int64{9, 1})

	got := mergeToSlice(t, []Stream{a, b, c}, false)
	require.Len(t, got, 1)
	require.Equal(t, int64(3), got[0].v)
}

func TestMergeDropsTombstoneAtDeepestLevel(t *testing.T) {
	a := newSliceStream([2]int64{1, 10}, [2]int64{2, Tombstone})

	got := mergeToSlice(t, []Stream{a}, true)
	require.Equal(t, []int64{1}, keys(got))
}

func TestMergeKeepsTombstoneWhenNotDeepest(t *testing.T) {
	a := newSliceStream([2]int64{1, 10}, [2]int64{2, Tombstone})

	got := mergeToSlice(t, []Stream{a}, false)
	require.Equal(t, []int64{1, 2}, keys(got))
	require.Equal(t, Tombstone, got[1].v)
}

func TestMergeRoundTripPreservesKeysAndValues(t *testing.T) {
	// a (newest) overrides b's key 2 and adds key 5; b supplies 1, 2, 4.
	a := newSliceStream([2]int64{2, 200}, [2]int64{5, 50})
	b := newSliceStream([2]int64{1, 10}, [2]int64{2, 20}, [2]int64{4, 40})

	got := mergeToSlice(t, []Stream{a, b}, false)
	want := []struct{ k, v int64 }{
		{1, 10},
		{2, 200},
		{4, 40},
		{5, 50},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(struct{ k, v int64 }{})); diff != "" {
		t.Fatalf("merged pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeEmptyStreamsYieldsNothing(t *testing.T) {
	dir := testutil.TempDir(t)
	w, err := sindex.NewWriter(dir, "empty")
	require.NoError(t, err)
	bloom := bloomfilter.New(1)

	n, err := Merge(nil, w, bloom, false)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	_, err = w.Finish()
	require.NoError(t, err)
}

func keys(pairs []struct{ k, v int64 }) []int64 {
	out := make([]int64, len(pairs))
	for i, p := range pairs {
		out[i] = p.k
	}
	return out
}
