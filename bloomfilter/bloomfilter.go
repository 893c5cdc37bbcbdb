// Package bloomfilter implements the per-Static-Index membership
// filter: a cache-line-blocked Bloom filter sized at 6 bits per key,
// hashed with SipHash-128 so every key touches exactly one 64-byte
// line and costs one cache miss to probe.
package bloomfilter

import (
	"encoding/binary"

	"github.com/dchest/siphash"

	"github.com/intellect4all/ordkv/pagebuf"
	"github.com/intellect4all/ordkv/pageio"
)

const (
	bitsPerKey = 6

	// bitsPerPage is the bit capacity of one page: 64 cache lines of
	// 512 bits (64 bytes) each.
	bitsPerPage = pagebuf.CacheLinesPerPage * pagebuf.CacheLineSize * 8

	bitsPerLine = pagebuf.CacheLineSize * 8
)

// Fixed SipHash key material; the filter only needs a deterministic
// hash of the key bytes, not a secret.
const (
	sipK0 = 0x9e3779b97f4a7c15
	sipK1 = 0xc2b2ae3d27d4eb4f
)

// Filter is an in-memory Bloom filter over one Static Index's keys,
// laid out as a sequence of 4096-byte pages ready to be written with
// pageio.
type Filter struct {
	pages []*pagebuf.Buffer
}

// New allocates an empty filter sized for expectedKeys insertions.
func New(expectedKeys int) *Filter {
	n := pageCount(expectedKeys)
	pages := make([]*pagebuf.Buffer, n)
	for i := range pages {
		pages[i] = pagebuf.New()
	}
	return &Filter{pages: pages}
}

func pageCount(expectedKeys int) int {
	bits := expectedKeys * bitsPerKey
	pages := (bits + bitsPerPage - 1) / bitsPerPage
	return pages + 1
}

// PageCount returns the number of 4096-byte pages this filter occupies.
func (f *Filter) PageCount() int { return len(f.pages) }

func hashKey(key int64) (uint64, uint64) {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], uint64(key))
	return siphash.Hash128(sipK0, sipK1, b[:])
}

// locate maps a key to its page, cache line within that page, and the
// four bit offsets within the line.
func (f *Filter) locate(key int64) (page, line int, offsets [4]int) {
	h1, h2 := hashKey(key)
	page = int(h1 % uint64(len(f.pages)))
	line = int(h2 % pagebuf.CacheLinesPerPage)
	offsets = [4]int{
		int((h2 >> 6) & 511),
		int((h2 >> 15) & 511),
		int((h2 >> 24) & 511),
		int((h2 >> 33) & 511),
	}
	return
}

func setBit(line []byte, bit int) {
	line[bit/8] |= 1 << uint(bit%8)
}

func testBit(line []byte, bit int) bool {
	return line[bit/8]&(1<<uint(bit%8)) != 0
}

// Add records key's presence. Must be called with the same key stream
// fed to the Static Index writer it accompanies.
func (f *Filter) Add(key int64) {
	page, lineIdx, offsets := f.locate(key)
	line := f.pages[page].CacheLine(lineIdx)
	for _, off := range offsets {
		setBit(line, off)
	}
}

// Probe reports whether key may be present. False means definitely
// absent; true may be a false positive.
func (f *Filter) Probe(key int64) bool {
	page, lineIdx, offsets := f.locate(key)
	line := f.pages[page].CacheLine(lineIdx)
	for _, off := range offsets {
		if !testBit(line, off) {
			return false
		}
	}
	return true
}

// WriteTo persists every page of the filter, in order, via w.
func (f *Filter) WriteTo(w *pageio.Writer) error {
	for _, p := range f.pages {
		if _, err := w.WritePage(p); err != nil {
			return err
		}
	}
	return nil
}

// OpenFilter loads a previously written filter from r in full.
func OpenFilter(r *pageio.Reader) (*Filter, error) {
	n := r.NumPages()
	pages := make([]*pagebuf.Buffer, n)
	for i := int64(0); i < n; i++ {
		buf := pagebuf.New()
		if err := r.ReadPage(buf, i); err != nil {
			return nil, err
		}
		pages[i] = buf
	}
	return &Filter{pages: pages}, nil
}
