// Package mem allocates the raw storage behind chunked and flat buffers.
//
// An Allocator hands out Blocks either from the Go heap (64-byte aligned)
// or from anonymous off-heap mappings. Every block is charged against an
// optional resource.Controller and must be released explicitly; release is
// idempotent so it can sit in a defer next to an early Release call.
package mem
