package mmap

import "errors"

// AccessPattern is a kernel hint describing how a mapping will be read.
type AccessPattern int

const (
	// AccessDefault leaves the kernel default in place.
	AccessDefault AccessPattern = iota
	// AccessSequential hints front-to-back reads (coalesce, snapshot writes).
	AccessSequential
	// AccessRandom hints scattered reads.
	AccessRandom
	// AccessDontNeed hints that the pages may be dropped.
	AccessDontNeed
)

var (
	// ErrClosed is returned when a mapping is used after Close.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
	// ErrUnsupported is returned on platforms without mmap support.
	ErrUnsupported = errors.New("mmap: not supported on this platform")
)
