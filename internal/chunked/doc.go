// Package chunked implements an append-only column buffer that grows in
// fixed-capacity chunks.
//
// Element i lives in chunk i/C at offset i%C. Growth allocates a new chunk
// and never moves or resizes an existing one, so views returned by Chunk
// stay valid until Release. A Buffer has a single owner and no internal
// synchronization.
//
// Release policy: Release is idempotent. Append after Release fails with
// stageerr.ErrReleased; reads after Release observe an empty buffer.
package chunked
