// Package resource governs the three resources a staging job consumes.
//
//   - Memory: every chunk and flat buffer allocation is charged against an
//     optional hard budget. Acquisition is fail-fast: the engine never waits
//     for memory, it surfaces ErrMemoryLimitExceeded and the job aborts.
//   - Workers: bounds how many partitions ingest or merge at the same time.
//   - IO: token-bucket throttling for snapshot uploads.
//
// A nil *Controller is valid and imposes no limits; it is what the engine
// uses when no controller is configured.
package resource
