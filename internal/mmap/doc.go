// Package mmap provides memory mappings outside the Go heap.
//
// Two kinds of mapping are supported:
//
//   - MapAnon returns a private read-write anonymous mapping. The staging
//     allocator uses it for chunk and flat-buffer storage so that large
//     columns behave like native memory: they are invisible to the garbage
//     collector and are returned to the OS exactly when Close is called.
//   - Open maps a file read-only. The local blob store uses it to read
//     snapshot columns without copying.
//
// Close is idempotent. Callers must not touch Bytes() after Close returns.
package mmap
