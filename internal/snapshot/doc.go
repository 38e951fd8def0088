// Package snapshot persists staged columns to a blobstore.
//
// A snapshot named N consists of one blob per column, N/<column>.col, and a
// manifest, N/MANIFEST, written last. The manifest begins with a header
// line naming the codec that encoded the rest of it. Column blobs hold the
// little-endian element bytes framed by the compress block format, and the
// manifest records an xxHash64 digest of the decoded bytes.
//
// Readers never see a partial snapshot: until MANIFEST exists, Load reports
// ErrNotFound.
package snapshot
