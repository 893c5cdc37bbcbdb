package ordkv

import "errors"

var (
	// ErrInvalidValue is returned when a caller tries to store the
	// reserved sentinel value.
	ErrInvalidValue = errors.New("ordkv: value is the reserved sentinel")

	// ErrCorruption is returned when an on-disk invariant is violated:
	// wrong file size, unexpected sentinel position, inconsistent fence
	// keys.
	ErrCorruption = errors.New("ordkv: on-disk invariant violated")

	// ErrIO wraps an underlying read/write/create/remove failure.
	ErrIO = errors.New("ordkv: i/o failure")

	// ErrNotFound is returned by Open when the manifest is missing.
	ErrNotFound = errors.New("ordkv: manifest not found")

	// ErrOutOfCapacity is returned if a flush cascade runs past the
	// maximum slot depth (32 by default, set with WithMaxLevelFanIn),
	// or if Put cannot insert into the memtable even right after a
	// flush (a capacity below 1).
	ErrOutOfCapacity = errors.New("ordkv: exceeded maximum slot depth")
)
