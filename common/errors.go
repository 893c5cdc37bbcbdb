package common

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrDiskFull    = errors.New("disk full")
	ErrClosed      = errors.New("storage engine closed")
)
