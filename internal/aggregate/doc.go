// Package aggregate merges partition collectors into exactly sized flat
// columns.
//
// An aggregator runs three phases. The count phase belongs to the
// collectors, which report into a shared accum.Accumulator. Initialize seals
// that accumulator and allocates every destination buffer once, under a
// mutex, no matter how many goroutines race to trigger it. Merge then
// reserves disjoint ranges by atomic fetch-and-add and copies each
// collector's chunks into its ranges.
//
// In Sequential mode reservation and copy run under the aggregator mutex, so
// partitions land in arrival order and their row and nonzero segments are
// ordered alike. In Concurrent mode both steps are lock-free and the order
// of partitions in the output is unspecified.
package aggregate
