package stageerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("colstage: configuration error")
	// ErrCapacity matches every *CapacityError.
	ErrCapacity = errors.New("colstage: capacity error")
	// ErrOrdering matches every *OrderingViolation.
	ErrOrdering = errors.New("colstage: ordering violation")
	// ErrReleased is returned when a buffer is used after Release.
	ErrReleased = errors.New("colstage: buffer released")
)

// ConfigurationError reports inconsistent feature dimensionality or an
// otherwise malformed row/schema detected during ingestion.
type ConfigurationError struct {
	Partition int
	Expected  int
	Actual    int
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Expected != e.Actual {
		return fmt.Sprintf("colstage: partition %d: %s: expected %d columns, got %d",
			e.Partition, e.Reason, e.Expected, e.Actual)
	}
	return fmt.Sprintf("colstage: partition %d: %s", e.Partition, e.Reason)
}

// Is reports category membership.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// CapacityError reports a reservation or write falling outside an allocated
// flat buffer, or a slot written twice.
type CapacityError struct {
	Buffer string
	Start  int
	Len    int
	Limit  int
	Reason string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("colstage: %s buffer: %s: range [%d,%d) against length %d",
		e.Buffer, e.Reason, e.Start, e.Start+e.Len, e.Limit)
}

// Is reports category membership.
func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// OrderingViolation reports an operation invoked in the wrong lifecycle state.
type OrderingViolation struct {
	Op    string
	State string
}

func (e *OrderingViolation) Error() string {
	return fmt.Sprintf("colstage: %s not allowed in state %s", e.Op, e.State)
}

// Is reports category membership.
func (e *OrderingViolation) Is(target error) bool { return target == ErrOrdering }

// Ordering is shorthand for constructing an *OrderingViolation.
func Ordering(op, state string) error {
	return &OrderingViolation{Op: op, State: state}
}

// Overrun is shorthand for a CapacityError on an out-of-bounds range.
func Overrun(buffer string, start, n, limit int) error {
	return &CapacityError{Buffer: buffer, Start: start, Len: n, Limit: limit, Reason: "range exceeds allocation"}
}
