package quickxorhash

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n, step int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * step)
	}

	return b
}

func sumOf(chunks ...[]byte) string {
	h := New()
	for _, c := range chunks {
		_, _ = h.Write(c)
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Vectors match the digests Graph reports for the same content.
var knownVectors = []struct {
	name  string
	input []byte
	want  string
}{
	{"empty", nil, "AAAAAAAAAAAAAAAAAAAAAAAAAAA="},
	{"hello", []byte("hello"), "aCgDG9jwBgAAAAAABQAAAAAAAAA="},
	{"hello world", []byte("hello world"), "aCgDG9jwBhDc4Q1yawMZAAAAAAA="},
	{"one byte past the register width", bytes.Repeat([]byte("x"), 161), "eAAAAAAAAAAAAAAAoQAAAAAAAAA="},
	{"1000 zero bytes", make([]byte, 1000), "AAAAAAAAAAAAAAAA6AMAAAAAAAA="},
	{"1000 0xFF bytes", bytes.Repeat([]byte{0xFF}, 1000), "Yxvb2MY2trGNbWxj89jYOc5xjnM="},
	{"1 KiB counter", sequence(1024, 1), "h7xr2dbCayZCQYR9KKhlwDuT4UI="},
	{"odd length stride 7", sequence(4097, 7), "GD+ZIsYXLyq7Bwwxo8vjZsf0WV8="},
}

func TestSum_KnownVectors(t *testing.T) {
	for _, tc := range knownVectors {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sumOf(tc.input))
		})
	}
}

func TestWrite_ChunkingDoesNotChangeDigest(t *testing.T) {
	input := sequence(1024, 1)
	want := sumOf(input)

	splits := map[string][]int{
		"irregular":        {1, 7, 64, 13, 128},
		"around the width": {159, 161, 160},
		"single bytes":     nil,
	}

	for name, sizes := range splits {
		t.Run(name, func(t *testing.T) {
			var chunks [][]byte

			rest := input
			if sizes == nil {
				for i := range rest {
					chunks = append(chunks, rest[i:i+1])
				}

				rest = nil
			}

			for _, n := range sizes {
				n = min(n, len(rest))
				chunks = append(chunks, rest[:n])
				rest = rest[n:]
			}

			chunks = append(chunks, rest)

			assert.Equal(t, want, sumOf(chunks...))
		})
	}
}

func TestSum_LeavesStateUntouched(t *testing.T) {
	h := New()
	_, _ = h.Write([]byte("hello"))

	first := h.Sum(nil)
	assert.Equal(t, first, h.Sum(nil))

	_, _ = h.Write([]byte(" world"))
	assert.Equal(t, "aCgDG9jwBhDc4Q1yawMZAAAAAAA=", base64.StdEncoding.EncodeToString(h.Sum(nil)))
}

func TestSum_AppendsToPrefix(t *testing.T) {
	h := New()
	_, _ = h.Write([]byte("hello"))

	got := h.Sum([]byte("qx:"))

	require.Len(t, got, len("qx:")+Size)
	assert.Equal(t, []byte("qx:"), got[:3])
}

func TestReset(t *testing.T) {
	h := New()
	_, _ = h.Write([]byte("hello"))
	h.Reset()
	_, _ = h.Write([]byte("world"))

	assert.Equal(t, sumOf([]byte("world")), base64.StdEncoding.EncodeToString(h.Sum(nil)))
	assert.NotEqual(t, sumOf([]byte("hello")), sumOf([]byte("world")))
}

func TestSizes(t *testing.T) {
	h := New()

	assert.Equal(t, Size, h.Size())
	assert.Equal(t, BlockSize, h.BlockSize())
}

func BenchmarkWrite(b *testing.B) {
	data := sequence(1<<20, 1)

	b.SetBytes(int64(len(data)))

	for b.Loop() {
		h := New()
		_, _ = h.Write(data)
		h.Sum(nil)
	}
}
