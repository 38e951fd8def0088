package colstage

import (
	"fmt"

	"github.com/hupe1980/colstage/internal/snapshot"
	"github.com/hupe1980/colstage/internal/stageerr"
	"github.com/hupe1980/colstage/model"
	"github.com/hupe1980/colstage/resource"
)

var (
	// ErrConfiguration matches inconsistent feature dimensions and other
	// malformed rows or options.
	ErrConfiguration = stageerr.ErrConfiguration
	// ErrCapacity matches writes outside an allocated column.
	ErrCapacity = stageerr.ErrCapacity
	// ErrOrdering matches lifecycle misuse.
	ErrOrdering = stageerr.ErrOrdering
	// ErrReleased is returned when a released buffer is used.
	ErrReleased = stageerr.ErrReleased
	// ErrInvalidSchema is returned for malformed schemas.
	ErrInvalidSchema = model.ErrInvalidSchema
	// ErrMemoryLimitExceeded is returned when a buffer would exceed the
	// resource controller's memory budget.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
	// ErrNotFound is returned by Load when no snapshot exists.
	ErrNotFound = snapshot.ErrNotFound
	// ErrChecksum is returned by Load when a column is corrupt.
	ErrChecksum = snapshot.ErrChecksum
	// ErrIncomplete is returned by Verify when column blobs are missing or
	// truncated.
	ErrIncomplete = snapshot.ErrIncomplete
	// ErrInconsistent is returned by Load and Verify when a manifest's
	// counts, placements and column lengths disagree.
	ErrInconsistent = snapshot.ErrInconsistent
)

type (
	ConfigurationError = stageerr.ConfigurationError
	CapacityError      = stageerr.CapacityError
	OrderingViolation  = stageerr.OrderingViolation
)

// PartitionError reports the partition whose ingestion failed.
//
// The underlying error can be accessed via errors.Unwrap.
type PartitionError struct {
	Partition int
	cause     error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("colstage: partition %d: %v", e.Partition, e.cause)
}

func (e *PartitionError) Unwrap() error { return e.cause }
