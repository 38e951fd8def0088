package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC32C_StreamingMatchesOneShot(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	h := NewCRC32C()
	_, _ = h.Write(data[:10])
	_, _ = h.Write(data[10:])

	assert.Equal(t, CRC32C(data), h.Sum32())
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
}

func TestSum64_StreamingMatchesOneShot(t *testing.T) {
	data := []byte("label,weight,features")

	h := New64()
	_, _ = h.Write(data[:5])
	_, _ = h.Write(data[5:])

	assert.Equal(t, Sum64(data), h.Sum64())
	assert.Equal(t, Sum64(data), String64(string(data)))
	assert.Equal(t, uint64(0xef46db3751d8e999), Sum64(nil))
	assert.NotEqual(t, String64("query-1"), String64("query-2"))
}
