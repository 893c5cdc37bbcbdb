// Package pageio provides whole-page direct file I/O: a Reader for an
// existing file and an append-only Writer for a new one.
package pageio

import (
	"errors"
	"fmt"
	"os"

	"github.com/intellect4all/ordkv/pagebuf"
)

// ErrShortPage is returned when a read or write did not move exactly
// one page's worth of bytes.
var ErrShortPage = errors.New("pageio: short page read/write")

// Reader opens an existing file for whole-page reads.
type Reader struct {
	file *os.File
	path string
	size int64
}

// OpenReader opens path for reading. The file must already exist.
func OpenReader(path string) (*Reader, error) {
	f, err := openDirect(path, os.O_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("pageio: open reader %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pageio: stat %s: %w", path, err)
	}
	return &Reader{file: f, path: path, size: st.Size()}, nil
}

// FileSize returns the file size in bytes.
func (r *Reader) FileSize() int64 { return r.size }

// NumPages returns the number of whole pages in the file.
func (r *Reader) NumPages() int64 { return r.size / pagebuf.Size }

// ReadPage reads exactly one page at the given page number into buf.
func (r *Reader) ReadPage(buf *pagebuf.Buffer, pageNo int64) error {
	off := pageNo * pagebuf.Size
	n, err := r.file.ReadAt(buf.Bytes(), off)
	if err != nil {
		return fmt.Errorf("pageio: read page %d of %s: %w", pageNo, r.path, err)
	}
	if n != pagebuf.Size {
		return fmt.Errorf("pageio: read page %d of %s: %w", pageNo, r.path, ErrShortPage)
	}
	return nil
}

// Path returns the underlying file path.
func (r *Reader) Path() string { return r.path }

// Close closes the underlying file.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Writer creates a new file exclusively and appends whole pages to it.
type Writer struct {
	file   *os.File
	path   string
	nPages int64
}

// CreateWriter creates path, failing if it already exists.
func CreateWriter(path string) (*Writer, error) {
	f, err := openDirect(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY)
	if err != nil {
		return nil, fmt.Errorf("pageio: create %s: %w", path, err)
	}
	return &Writer{file: f, path: path}, nil
}

// WritePage appends buf as the next page and returns its page number.
func (w *Writer) WritePage(buf *pagebuf.Buffer) (int64, error) {
	n, err := w.file.Write(buf.Bytes())
	if err != nil {
		return 0, fmt.Errorf("pageio: write page to %s: %w", w.path, err)
	}
	if n != pagebuf.Size {
		return 0, fmt.Errorf("pageio: write page to %s: %w", w.path, ErrShortPage)
	}
	pageNo := w.nPages
	w.nPages++
	return pageNo, nil
}

// NumPages returns how many pages have been written so far.
func (w *Writer) NumPages() int64 { return w.nPages }

// Path returns the underlying file path.
func (w *Writer) Path() string { return w.path }

// Sync flushes the file to stable storage.
func (w *Writer) Sync() error {
	return w.file.Sync()
}

// Close syncs and closes the underlying file.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return fmt.Errorf("pageio: sync %s: %w", w.path, err)
	}
	return w.file.Close()
}

// Remove closes (if open) and deletes the file.
func (w *Writer) Remove() error {
	if w.file != nil {
		w.file.Close()
	}
	return os.Remove(w.path)
}
