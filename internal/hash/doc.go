// Package hash provides the checksums and token hashes used by colstage.
//
// # CRC32-Castagnoli (CRC32C)
//
// S3 uploads attach a CRC32C checksum so the service can verify object
// integrity. Go's crc32 package uses SSE4.2 / ARM CRC instructions when
// available.
//
//	checksum := hash.CRC32C(data)
//
// # xxHash64
//
// Snapshot column payloads carry an xxHash64 digest of their decoded bytes,
// and group keys are derived from strings with String64.
//
//	h := hash.New64()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	sum := h.Sum64()
package hash
