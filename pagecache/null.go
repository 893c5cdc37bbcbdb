package pagecache

import (
	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pageio"
)

// NullCache never caches: every GetPage is a direct read and every
// WritePage is a direct write. It is the baseline implementation the
// correctness test suite runs against, since it can never mask a bug
// behind a stale cache entry.
type NullCache struct{}

// NewNullCache returns a Cache that performs no caching.
func NewNullCache() *NullCache { return &NullCache{} }

func (NullCache) GetPage(reader *pageio.Reader, pageNo int64, _, _ bool) (*pagebuf.Buffer, error) {
	buf := pagebuf.New()
	if err := reader.ReadPage(buf, pageNo); err != nil {
		return nil, err
	}
	return buf, nil
}

func (NullCache) WritePage(writer *pageio.Writer, buf *pagebuf.Buffer) (int64, error) {
	return writer.WritePage(buf)
}

// InvalidatePath is a no-op: NullCache never retains anything to invalidate.
func (NullCache) InvalidatePath(string) {}
