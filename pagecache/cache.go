// Package pagecache defines the pluggable page cache contract used by
// the static index reader for its fence pages, plus a null
// implementation (direct I/O every call, required for correctness
// tests) and a bounded LRU implementation (recommended for production).
package pagecache

import (
	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pageio"
)

// Key identifies a cached page by the file it belongs to and its page
// number within that file.
type Key struct {
	Path   string
	PageNo int64
}

// Cache is the page cache contract. Implementations must satisfy:
//   - GetPage always returns the page's current on-disk contents.
//   - GetPage may serve from cache only when checkCache is true.
//   - A caching implementation inserts the page when addToCache is
//     true; NullCache retains nothing.
//   - InvalidatePath drops every cached page for a given file path, so
//     a caller that deletes and later recreates a file under the same
//     path (e.g. a compaction cascade reusing a slot's filenames) never
//     observes a page cached under the old generation of that file.
type Cache interface {
	// GetPage returns the contents of page pageNo of reader's file.
	GetPage(reader *pageio.Reader, pageNo int64, checkCache, addToCache bool) (*pagebuf.Buffer, error)

	// WritePage persists buf as a page written through writer and may
	// also insert it into the cache under (writer.Path(), pageNo).
	WritePage(writer *pageio.Writer, buf *pagebuf.Buffer) (int64, error)

	// InvalidatePath drops every cached page whose key names path.
	InvalidatePath(path string)
}
