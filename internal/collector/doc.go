// Package collector implements the per-partition ingestion buffers.
//
// A Collector is owned by exactly one goroutine while it collects rows. It
// moves through Collecting → Counted → Merged → Released and never goes
// back; AddRow after the count phase is an ordering violation.
package collector
