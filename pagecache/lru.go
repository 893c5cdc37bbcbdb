package pagecache

import (
	lru "github.com/opencoff/golang-lru"

	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pageio"
)

// LRUCache is the recommended production Cache: a bounded
// least-recently-used map from (file path, page#) to page contents.
// In this module only sindex.Reader's fence-page lookups go through
// the cache; leaf pages and bloom filter pages are read directly with
// pageio and are never cached here.
type LRUCache struct {
	cache *lru.Cache[Key, *pagebuf.Buffer]
}

// NewLRUCache creates a cache bounded to capacity pages.
func NewLRUCache(capacity int) (*LRUCache, error) {
	c, err := lru.New[Key, *pagebuf.Buffer](capacity)
	if err != nil {
		return nil, err
	}
	return &LRUCache{cache: c}, nil
}

func (c *LRUCache) GetPage(reader *pageio.Reader, pageNo int64, checkCache, addToCache bool) (*pagebuf.Buffer, error) {
	key := Key{Path: reader.Path(), PageNo: pageNo}

	if checkCache {
		if buf, ok := c.cache.Get(key); ok {
			return buf.Clone(), nil
		}
	}

	buf := pagebuf.New()
	if err := reader.ReadPage(buf, pageNo); err != nil {
		return nil, err
	}

	if checkCache || addToCache {
		c.cache.Add(key, buf.Retain())
	}
	return buf, nil
}

func (c *LRUCache) WritePage(writer *pageio.Writer, buf *pagebuf.Buffer) (int64, error) {
	pageNo, err := writer.WritePage(buf)
	if err != nil {
		return 0, err
	}
	c.cache.Add(Key{Path: writer.Path(), PageNo: pageNo}, buf.Retain())
	return pageNo, nil
}

// InvalidatePath drops every cached page belonging to path. Callers
// that delete and recreate a file under the same path (a compaction
// cascade renaming/removing a slot's fixed, level-derived filenames)
// must call this first, or a stale page from the deleted generation
// can be served back under the new file's name.
func (c *LRUCache) InvalidatePath(path string) {
	for _, key := range c.cache.Keys() {
		if key.Path == path {
			c.cache.Remove(key)
		}
	}
}

// Len reports the number of pages currently cached.
func (c *LRUCache) Len() int { return c.cache.Len() }

// Purge empties the cache.
func (c *LRUCache) Purge() { c.cache.Purge() }
