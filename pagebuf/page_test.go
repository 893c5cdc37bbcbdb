package pagebuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKeyPageIsSentinelFilled(t *testing.T) {
	b := NewKeyPage()
	for i, v := range b.Int64s() {
		require.Equal(t, Sentinel, v, "slot %d", i)
	}
}

func TestPutPairAtRoundTrips(t *testing.T) {
	b := New()
	b.PutPairAt(0, Pair{Key: 7, Value: 70})
	b.PutPairAt(PairsPerPage-1, Pair{Key: 9, Value: 90})

	require.Equal(t, Pair{Key: 7, Value: 70}, b.PairAt(0))
	require.Equal(t, Pair{Key: 9, Value: 90}, b.PairAt(PairsPerPage-1))
}

func TestMutationPanicsOnSharedBuffer(t *testing.T) {
	b := New()
	clone := b.Clone()
	defer clone.Release()

	require.Panics(t, func() {
		b.PutInt64At(0, 1)
	})
}

func TestCloneSharesBytes(t *testing.T) {
	b := New()
	b.PutInt64At(0, 42)
	clone := b.Clone()
	require.Equal(t, int64(42), clone.Int64At(0))
}

func TestFromBytesRejectsWrongSize(t *testing.T) {
	_, err := FromBytes(make([]byte, 10))
	require.Error(t, err)
}
