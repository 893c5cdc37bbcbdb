package ordkv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

type slotManifest struct {
	Prefix      string `json:"prefix"`
	FenceLevels int    `json:"fence_levels"`
}

// Manifest is the persisted record of a database's live Static Index
// slots, written to <dir>/metadata.json after every successful flush
// or compaction cascade.
type Manifest struct {
	MaxMemTableSize int64           `json:"max_mem_table_size"`
	Slots           []*slotManifest `json:"b_trees_file_names_and_levels"`
}

func manifestPath(dir string) string {
	return filepath.Join(dir, "metadata.json")
}

func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read manifest: %v", ErrIO, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", ErrCorruption, err)
	}
	return &m, nil
}

// save rewrites the manifest via write-to-temp-then-rename, so a crash
// mid-write never leaves a torn metadata.json behind.
func (m *Manifest) save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode manifest: %v", ErrIO, err)
	}
	if err := atomic.WriteFile(manifestPath(dir), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write manifest: %v", ErrIO, err)
	}
	return nil
}
