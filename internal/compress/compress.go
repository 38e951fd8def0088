package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks uncompressed.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// ZSTD trades speed for a better ratio.
	ZSTD Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ParseType parses the String form of a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return 0, fmt.Errorf("compress: unknown type %q", s)
	}
}

var (
	// ErrCorrupt is returned when a payload cannot be decoded.
	ErrCorrupt = errors.New("compress: corrupt block")
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

const headerSize = 8

// appendBlock frames and appends one block of data to dst.
func appendBlock(dst, data []byte, t Type) ([]byte, error) {
	var compressed []byte
	switch t {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(data)))
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		dst = append(dst, hdr[:]...)
		return append(dst, data...), nil
	}
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(compressed)))
	dst = append(dst, hdr[:]...)
	return append(dst, compressed...), nil
}

// decodeBlock decodes the block at the start of data and returns the
// decoded bytes appended to dst and the number of input bytes consumed.
func decodeBlock(dst, data []byte, t Type) ([]byte, int, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("%w: %d bytes left for header", ErrCorrupt, len(data))
	}
	rawSize := int(binary.LittleEndian.Uint32(data[0:]))
	compSize := int(binary.LittleEndian.Uint32(data[4:]))

	if compSize == 0 {
		if len(data) < headerSize+rawSize {
			return nil, 0, fmt.Errorf("%w: raw block extends beyond data", ErrCorrupt)
		}
		return append(dst, data[headerSize:headerSize+rawSize]...), headerSize + rawSize, nil
	}
	if len(data) < headerSize+compSize {
		return nil, 0, fmt.Errorf("%w: compressed block extends beyond data", ErrCorrupt)
	}
	payload := data[headerSize : headerSize+compSize]

	start := len(dst)
	switch t {
	case LZ4:
		dst = append(dst, make([]byte, rawSize)...)
		n, err := lz4.UncompressBlock(payload, dst[start:])
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if n != rawSize {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	case ZSTD:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(payload, dst)
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(out)-start != rawSize {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		dst = out
	default:
		return nil, 0, fmt.Errorf("%w: compressed block in %s payload", ErrCorrupt, t)
	}
	return dst, headerSize + compSize, nil
}
