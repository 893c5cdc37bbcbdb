package bloomfilter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/ordkv/common/testutil"
	"github.com/intellect4all/ordkv/pageio"
)

func TestNoFalseNegatives(t *testing.T) {
	n := 5000
	f := New(n)
	for i := 0; i < n; i++ {
		f.Add(int64(i))
	}
	for i := 0; i < n; i++ {
		require.True(t, f.Probe(int64(i)), "key %d must never false-negative", i)
	}
}

func TestFalsePositiveRateIsBounded(t *testing.T) {
	n := 10000
	f := New(n)
	for i := 0; i < n; i++ {
		f.Add(int64(i * 2)) // only even keys inserted
	}

	falsePositives := 0
	trials := 10000
	for i := 0; i < trials; i++ {
		k := int64(i*2 + 1) // odd keys were never inserted
		if f.Probe(k) {
			falsePositives++
		}
	}
	rate := float64(falsePositives) / float64(trials)
	require.Less(t, rate, 0.10, "false-positive rate should stay near the ~2%% design target")
}

func TestPageCountFormula(t *testing.T) {
	f := New(0)
	require.Equal(t, 1, f.PageCount())

	f2 := New(32768 / 6)
	require.GreaterOrEqual(t, f2.PageCount(), 2)
}

func TestWriteThenOpenFilterPreservesMembership(t *testing.T) {
	dir := testutil.TempDir(t)
	path := dir + "/probe.bloom"

	f := New(1000)
	for i := 0; i < 1000; i++ {
		f.Add(int64(i))
	}

	w, err := pageio.CreateWriter(path)
	require.NoError(t, err)
	require.NoError(t, f.WriteTo(w))
	require.NoError(t, w.Close())

	r, err := pageio.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	f2, err := OpenFilter(r)
	require.NoError(t, err)
	require.Equal(t, f.PageCount(), f2.PageCount())

	for i := 0; i < 1000; i++ {
		require.True(t, f2.Probe(int64(i)))
	}
}
