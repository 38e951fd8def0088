// Package bitset provides a fixed-size lock-free bitset.
//
// Flat buffers use it to record which slots have been written so that a
// double write or a gap is detected without a per-slot lock. Bits are
// updated with atomic OR, so disjoint ranges may be marked concurrently.
package bitset
