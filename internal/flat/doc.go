// Package flat implements the fixed-length destination buffers that merged
// columns are copied into.
//
// A Buffer is allocated once with its final length. Each slot must be
// written exactly once; writes outside [0, Len) or to an already written
// slot fail with a *stageerr.CapacityError. Writers on disjoint index ranges
// may run concurrently: slot ownership is tracked in a lock-free bitset, so
// no per-slot lock exists.
//
// Writers share a read lock that Release takes exclusively, so a Release
// racing a merge waits for in-flight writes and later writes fail with
// stageerr.ErrReleased instead of touching freed memory.
package flat
