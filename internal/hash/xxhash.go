package hash

import (
	"github.com/cespare/xxhash/v2"
)

// Sum64 returns the xxHash64 digest of data.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// String64 returns the xxHash64 digest of s without copying it.
func String64(s string) uint64 {
	return xxhash.Sum64String(s)
}

// New64 returns a streaming xxHash64 digest.
func New64() *xxhash.Digest {
	return xxhash.New()
}
