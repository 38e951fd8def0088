package compress

import (
	"io"
)

// DefaultBlockSize is the uncompressed size of one block.
const DefaultBlockSize = 256 * 1024

// Writer buffers writes into blocks and writes each framed block to the
// underlying writer.
type Writer struct {
	w         io.Writer
	t         Type
	blockSize int
	buf       []byte
	frame     []byte
	written   int64
}

// NewWriter creates a block writer. A non-positive blockSize selects
// DefaultBlockSize.
func NewWriter(w io.Writer, t Type, blockSize int) *Writer {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Writer{
		w:         w,
		t:         t,
		blockSize: blockSize,
		buf:       make([]byte, 0, blockSize),
	}
}

// Write implements io.Writer.
func (c *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if len(c.buf) == c.blockSize {
			if err := c.flushBlock(); err != nil {
				return total, err
			}
		}
		n := min(len(p), c.blockSize-len(c.buf))
		c.buf = append(c.buf, p[:n]...)
		total += n
		p = p[n:]
	}
	return total, nil
}

func (c *Writer) flushBlock() error {
	if len(c.buf) == 0 {
		return nil
	}
	frame, err := appendBlock(c.frame[:0], c.buf, c.t)
	if err != nil {
		return err
	}
	c.frame = frame

	n, err := c.w.Write(frame)
	c.written += int64(n)
	if err != nil {
		return err
	}
	c.buf = c.buf[:0]
	return nil
}

// Flush writes any remaining buffered data as a final block.
func (c *Writer) Flush() error {
	return c.flushBlock()
}

// BytesWritten returns the total framed bytes written.
func (c *Writer) BytesWritten() int64 {
	return c.written
}

// Encode compresses data in one call.
func Encode(data []byte, t Type, blockSize int) ([]byte, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	var out []byte
	for len(data) > 0 {
		n := min(len(data), blockSize)
		var err error
		if out, err = appendBlock(out, data[:n], t); err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return out, nil
}

// Decode decodes every block of a payload into dst, which should have
// capacity for the decoded size when it is known.
func Decode(dst, data []byte, t Type) ([]byte, error) {
	for len(data) > 0 {
		var (
			n   int
			err error
		)
		if dst, n, err = decodeBlock(dst, data, t); err != nil {
			return nil, err
		}
		data = data[n:]
	}
	return dst, nil
}
