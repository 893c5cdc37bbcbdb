package pageio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intellect4all/ordkv/pagebuf"
)

func TestWriteThenReadPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.page")

	w, err := CreateWriter(path)
	require.NoError(t, err)

	buf := pagebuf.New()
	buf.PutInt64At(0, 123)
	pageNo, err := w.WritePage(buf)
	require.NoError(t, err)
	require.Equal(t, int64(0), pageNo)
	require.NoError(t, w.Close())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, int64(pagebuf.Size), r.FileSize())
	require.Equal(t, int64(1), r.NumPages())

	out := pagebuf.New()
	require.NoError(t, r.ReadPage(out, 0))
	require.Equal(t, int64(123), out.Int64At(0))
}

func TestCreateWriterFailsIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.page")
	w, err := CreateWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = CreateWriter(path)
	require.Error(t, err)
}
