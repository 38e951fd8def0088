package aggregate

import "fmt"

// Mode selects how merges are serialized.
type Mode uint8

const (
	// Sequential runs reserve and copy under the aggregator mutex.
	Sequential Mode = iota
	// Concurrent runs reserve and copy lock-free.
	Concurrent
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode parses the String form of a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "sequential":
		return Sequential, nil
	case "concurrent":
		return Concurrent, nil
	default:
		return 0, fmt.Errorf("aggregate: unknown mode %q", s)
	}
}

// State is an aggregator lifecycle state.
type State uint32

const (
	Uninitialized State = iota
	Sized
	Allocated
	Filled
	Released
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Sized:
		return "sized"
	case Allocated:
		return "allocated"
	case Filled:
		return "filled"
	case Released:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}
