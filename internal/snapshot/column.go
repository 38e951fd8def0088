package snapshot

import (
	"fmt"
	"unsafe"

	"github.com/hupe1980/colstage/internal/flat"
	"github.com/hupe1980/colstage/internal/mem"
)

// Data is one column to be saved.
type Data struct {
	Name   string
	DType  string
	Length int
	Bytes  []byte
}

// ColumnData views values as a savable column without copying. values must
// stay valid until Save returns.
func ColumnData[T mem.Numeric](name string, values []T) Data {
	return Data{
		Name:   name,
		DType:  dtypeOf[T](),
		Length: len(values),
		Bytes:  asBytes(values),
	}
}

func dtypeOf[T mem.Numeric]() string {
	var zero T
	switch any(zero).(type) {
	case float32:
		return "float32"
	case float64:
		return "float64"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint32:
		return "uint32"
	case uint64:
		return "uint64"
	default:
		return fmt.Sprintf("%T", zero)
	}
}

func asBytes[T mem.Numeric](values []T) []byte {
	if len(values) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&values[0])), len(values)*int(unsafe.Sizeof(zero))) //nolint:gosec // read-only byte view
}

// elemSize returns the byte width of T.
func elemSize[T mem.Numeric]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// fill copies decoded bytes into a freshly allocated flat buffer.
func fill[T mem.Numeric](col Column, raw []byte, alloc *mem.Allocator) (*flat.Buffer[T], error) {
	if want := dtypeOf[T](); col.DType != want {
		return nil, fmt.Errorf("snapshot: column %s has dtype %s, want %s", col.Name, col.DType, want)
	}
	if len(raw) != col.Length*elemSize[T]() {
		return nil, fmt.Errorf("snapshot: column %s decoded to %d bytes, want %d",
			col.Name, len(raw), col.Length*elemSize[T]())
	}

	buf, err := flat.New[T](col.Name, col.Length, alloc)
	if err != nil {
		return nil, err
	}
	if col.Length == 0 {
		return buf, nil
	}
	src := unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), col.Length) //nolint:gosec // length checked above
	if err := buf.Write(0, src); err != nil {
		_ = buf.Release()
		return nil, err
	}
	return buf, nil
}
