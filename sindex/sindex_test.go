package sindex

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/intellect4all/ordkv/common/testutil"
	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pagecache"
)

func buildIndex(t *testing.T, dir, prefix string, n int) int {
	w, err := NewWriter(dir, prefix)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Add(int64(i), int64(i*10)))
	}
	levels, err := w.Finish()
	require.NoError(t, err)
	return levels
}

func TestWriterRejectsNonAscendingKeys(t *testing.T) {
	dir := testutil.TempDir(t)
	w, err := NewWriter(dir, "idx")
	require.NoError(t, err)
	require.NoError(t, w.Add(5, 50))
	require.Error(t, w.Add(5, 50))
	require.Error(t, w.Add(3, 30))
}

func TestWriterRejectsSentinel(t *testing.T) {
	dir := testutil.TempDir(t)
	w, err := NewWriter(dir, "idx")
	require.NoError(t, err)
	require.Error(t, w.Add(pagebuf.Sentinel, 1))
	require.Error(t, w.Add(1, pagebuf.Sentinel))
}

func TestRoundTripGetSmall(t *testing.T) {
	dir := testutil.TempDir(t)
	buildIndex(t, dir, "idx", 10)

	r, err := OpenReader(dir, "idx", 1, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	for i := 0; i < 10; i++ {
		v, ok, err := r.Get(int64(i))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(i*10), v)
	}
	_, ok, err := r.Get(999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRoundTripMultiLevelFences(t *testing.T) {
	dir := testutil.TempDir(t)
	// 256*512 + 1 forces a second-level fence to appear and the leaf
	// file to span well past a single fence page.
	n := pagebuf.PairsPerPage*pagebuf.KeysPerPage + 1
	levels := buildIndex(t, dir, "big", n)
	require.GreaterOrEqual(t, levels, 2)

	r, err := OpenReader(dir, "big", levels, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	want := make(map[int64]int64)
	got := make(map[int64]int64)
	for _, i := range []int{0, 1, 255, 256, n / 2, n - 1} {
		v, ok, err := r.Get(int64(i))
		require.NoError(t, err)
		require.True(t, ok, "key %d", i)
		want[int64(i)] = int64(i * 10)
		got[int64(i)] = v
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round-tripped values mismatch (-want +got):\n%s", diff)
	}
}

func TestTopFenceFileIsAlwaysOnePage(t *testing.T) {
	dir := testutil.TempDir(t)
	n := pagebuf.PairsPerPage*pagebuf.KeysPerPage*2 + 5
	levels := buildIndex(t, dir, "top", n)

	r, err := OpenReader(dir, "top", levels, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	// OpenReader itself validates the top fence file is a single page;
	// reaching here without error is the assertion.
}

func TestRangeScan(t *testing.T) {
	dir := testutil.TempDir(t)
	buildIndex(t, dir, "idx", 20)

	r, err := OpenReader(dir, "idx", 1, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Range(5, 9)
	require.NoError(t, err)
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		require.NoError(t, it.Next())
	}
	require.Equal(t, []int64{5, 6, 7, 8, 9}, got)
}

func TestRangeScanAcrossPageBoundary(t *testing.T) {
	dir := testutil.TempDir(t)
	n := pagebuf.PairsPerPage*3 + 10
	buildIndex(t, dir, "idx", n)

	r, err := OpenReader(dir, "idx", 1, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	lo := int64(pagebuf.PairsPerPage - 3)
	hi := int64(pagebuf.PairsPerPage + 3)
	it, err := r.Range(lo, hi)
	require.NoError(t, err)
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		require.NoError(t, it.Next())
	}
	require.Len(t, got, int(hi-lo+1))
	for i, k := range got {
		require.Equal(t, lo+int64(i), k)
	}
}

func TestReversedRangeYieldsNothing(t *testing.T) {
	dir := testutil.TempDir(t)
	buildIndex(t, dir, "idx", 10)

	r, err := OpenReader(dir, "idx", 1, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Range(8, 2)
	require.NoError(t, err)
	require.False(t, it.Valid())
}

func TestAllStreamsEverything(t *testing.T) {
	dir := testutil.TempDir(t)
	n := pagebuf.PairsPerPage*2 + 7
	buildIndex(t, dir, "idx", n)

	r, err := OpenReader(dir, "idx", 1, pagecache.NewNullCache())
	require.NoError(t, err)
	defer r.Close()

	it, err := r.All()
	require.NoError(t, err)
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		require.NoError(t, it.Next())
	}
	want := make([]int64, n)
	for i := range want {
		want[i] = int64(i)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("streamed keys mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenReaderRejectsCorruptFenceFile(t *testing.T) {
	dir := testutil.TempDir(t)
	buildIndex(t, dir, "idx", 5)

	// The index was written with one fence level; opening it as if it
	// had two points OpenReader at a level-1 fence file that does not
	// exist, which must be reported as an error.
	_, err := OpenReader(dir, "idx", 2, pagecache.NewNullCache())
	require.Error(t, err)
}
