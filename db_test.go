package ordkv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/ordkv/common/testutil"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 1000)
	require.NoError(t, err)
	defer db.Close()

	for i := int64(0); i < 200; i++ {
		require.NoError(t, db.Put(i, i*10))
	}
	for i := int64(0); i < 200; i++ {
		v, ok, err := db.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i*10, v)
	}
}

func TestOverwriteLastWriterWins(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 1000)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(1, 10))
	require.NoError(t, db.Put(1, 20))
	v, ok, err := db.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(20), v)
}

func TestPutRejectsSentinelValue(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 1000)
	require.NoError(t, err)
	defer db.Close()

	require.ErrorIs(t, db.Put(1, math.MaxInt64), ErrInvalidValue)
}

func TestDeleteThenGetNotFound(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 1000)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(7, 70))
	require.NoError(t, db.Delete(7))
	_, ok, err := db.Get(7)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFlushTriggersOnMemtableFull(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 4)
	require.NoError(t, err)
	defer db.Close()

	for i := int64(0); i < 4; i++ {
		require.NoError(t, db.Put(i, i))
	}
	require.Equal(t, int64(0), db.Stats().FlushCount)

	require.NoError(t, db.Put(4, 4))
	require.Equal(t, int64(1), db.Stats().FlushCount)

	for i := int64(0); i < 5; i++ {
		v, ok, err := db.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestCascadeAcrossManyFlushes(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 4)
	require.NoError(t, err)
	defer db.Close()

	const n = 500
	for i := int64(0); i < n; i++ {
		require.NoError(t, db.Put(i, i*2))
	}
	require.Greater(t, db.Stats().FlushCount, int64(1))

	for i := int64(0); i < n; i++ {
		v, ok, err := db.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i*2, v)
	}
}

func TestDeleteSurvivesAcrossFlush(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 4)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put(1, 100))
	for i := int64(2); i <= 10; i++ {
		require.NoError(t, db.Put(i, i))
	}
	require.NoError(t, db.Delete(1))
	for i := int64(11); i <= 20; i++ {
		require.NoError(t, db.Put(i, i))
	}

	_, ok, err := db.Get(1)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestDeleteSurvivesCascadeThroughIntermediateLevel exercises a delete
// whose tombstone must cross a shallow occupied slot before reaching
// the deeper slot holding the stale value. With a memtable capacity of
// 2, this sequence of puts/flushes leaves slot 0 holding unrelated keys
// and slot 1 holding the soon-to-be-deleted key's stale value; the
// tombstone is then flushed and must survive the merge at slot 0 (one
// level short of the deepest occupied slot) in order to still be
// present when it reaches slot 1.
func TestDeleteSurvivesCascadeThroughIntermediateLevel(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 2)
	require.NoError(t, err)
	defer db.Close()

	const key = int64(9000)

	require.NoError(t, db.Put(key, 99))
	require.NoError(t, db.Put(200, 2))
	require.NoError(t, db.Put(3, 3))  // flushes {key,200} into slot 0
	require.NoError(t, db.Put(4, 4))
	require.NoError(t, db.Put(5, 5))  // flushes {3,4}, merges into slot 1
	require.NoError(t, db.Put(6, 6))
	require.NoError(t, db.Put(7, 7))  // flushes {5,6} into slot 0

	require.NoError(t, db.Delete(key)) // tombstone joins memtable alongside 7

	require.NoError(t, db.Put(8, 8)) // flushes {7,tombstone(key)}: merges
	// slot 0 ({5,6}) then cascades into slot 1 ({200,3,4,key:99})

	_, ok, err := db.Get(key)
	require.NoError(t, err)
	require.False(t, ok, "deleted key must not resurrect once its tombstone cascades past the level holding its stale value")

	for _, k := range []int64{200, 3, 4, 5, 6, 7, 8} {
		_, ok, err := db.Get(k)
		require.NoError(t, err)
		require.True(t, ok, "key %d should still be present", k)
	}
}

func TestRangeScanIsOrderedAndComplete(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 4)
	require.NoError(t, err)
	defer db.Close()

	const n = 100
	for i := int64(0); i < n; i++ {
		require.NoError(t, db.Put(i, i+1000))
	}

	it, err := db.Range(10, 29)
	require.NoError(t, err)
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		require.NoError(t, it.Next())
	}
	require.Len(t, got, 20)
	for i, k := range got {
		require.Equal(t, int64(10+i), k)
	}
}

func TestRangeScanSkipsTombstones(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 1000)
	require.NoError(t, err)
	defer db.Close()

	for i := int64(0); i < 10; i++ {
		require.NoError(t, db.Put(i, i))
	}
	require.NoError(t, db.Delete(5))

	it, err := db.Range(0, 9)
	require.NoError(t, err)
	var got []int64
	for it.Valid() {
		got = append(got, it.Key())
		require.NoError(t, it.Next())
	}
	require.NotContains(t, got, int64(5))
	require.Len(t, got, 9)
}

func TestReopenRebuildsSlotsFromManifest(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 4)
	require.NoError(t, err)

	const n = 50
	for i := int64(0); i < n; i++ {
		require.NoError(t, db.Put(i, i*3))
	}
	require.NoError(t, db.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	for i := int64(0); i < n; i++ {
		v, ok, err := reopened.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, i*3, v)
	}
}

func TestCreateRejectsNonEmptyDirectory(t *testing.T) {
	dir := testutil.TempDir(t)
	db, err := Create(dir, 1000)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Create(dir, 1000)
	require.Error(t, err)
}

func TestOpenMissingDirectoryFails(t *testing.T) {
	_, err := Open(testutil.TempDir(t) + "/missing")
	require.ErrorIs(t, err, ErrNotFound)
}
