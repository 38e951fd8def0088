// Package coalesce copies chunked column buffers into flat destinations.
package coalesce

import (
	"fmt"

	"github.com/hupe1980/colstage/internal/chunked"
	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/mem"
)

// Coalesce copies every element of src into dst so that element i lands
// at dst[start+i]. Full chunks are copied first, then the partial last
// chunk. It holds no state and may run concurrently for disjoint ranges.
func Coalesce[T mem.Numeric](src *chunked.Buffer[T], dst *flat.Buffer[T], start int) error {
	n := src.ChunkCount()
	if n == 0 {
		return nil
	}

	offset := start
	for i := range n - 1 {
		full := src.Chunk(i)
		if err := dst.Write(offset, full); err != nil {
			return fmt.Errorf("coalesce: chunk %d: %w", i, err)
		}
		offset += len(full)
	}

	if err := dst.Write(offset, src.Chunk(n-1)); err != nil {
		return fmt.Errorf("coalesce: last chunk: %w", err)
	}
	return nil
}

// Rebased copies src like Coalesce but adds delta to every element.
func Rebased[T mem.Numeric](src *chunked.Buffer[T], dst *flat.Buffer[T], start int, delta T) error {
	if delta == 0 {
		return Coalesce(src, dst, start)
	}

	offset := start
	var scratch []T
	for i := range src.ChunkCount() {
		part := src.Chunk(i)
		scratch = append(scratch[:0], part...)
		for j := range scratch {
			scratch[j] += delta
		}
		if err := dst.Write(offset, scratch); err != nil {
			return fmt.Errorf("coalesce: chunk %d: %w", i, err)
		}
		offset += len(part)
	}
	return nil
}
