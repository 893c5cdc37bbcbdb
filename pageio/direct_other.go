//go:build !linux

package pageio

import "os"

// openDirect falls back to a regular buffered open on platforms without
// O_DIRECT support.
func openDirect(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0o644)
}
