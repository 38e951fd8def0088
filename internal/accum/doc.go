// Package accum implements the per-job size accumulator.
//
// Collectors add their local totals once after ingestion. The counters are
// plain atomics, so reports from any number of goroutines need no ordering
// among themselves. The job knows how many partitions exist; Seal turns the
// informal "everyone has counted" convention into a checked barrier and
// refuses to hand out totals until that closed set has reported.
package accum
