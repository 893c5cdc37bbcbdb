//go:build linux

package pageio

import (
	"os"

	"golang.org/x/sys/unix"
)

// openDirect opens path with O_DIRECT where the kernel supports it, so
// whole-page reads bypass the OS page cache — the pagecache package's
// own cache is the only caching layer this store relies on. Falls back
// to a buffered open if O_DIRECT is rejected (some filesystems, notably
// tmpfs, don't support it).
func openDirect(path string, flag int) (*os.File, error) {
	fd, err := unix.Open(path, flag|unix.O_DIRECT, 0o644)
	if err != nil {
		return os.OpenFile(path, flag, 0o644)
	}
	return os.NewFile(uintptr(fd), path), nil
}
