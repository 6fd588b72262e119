// Package quickxorhash computes QuickXorHash, the content hash OneDrive and
// SharePoint report for every file.
//
// Each input byte is XORed into a 160-bit circular register at a bit offset
// that advances by 11 per byte. The byte count, little-endian, is XORed into
// the last 8 bytes of the digest.
//
// Algorithm reference:
// https://learn.microsoft.com/en-us/onedrive/developer/code-snippets/quickxorhash
package quickxorhash

import (
	"encoding/binary"
	"hash"
)

const (
	// Size is the length, in bytes, of a QuickXorHash digest.
	Size = 20

	// BlockSize is the preferred input block size, in bytes.
	BlockSize = 64

	shift       = 11
	widthInBits = Size * 8
)

// digest holds the register as little-endian bytes; bit k of the register is
// bit k%8 of register[k/8].
type digest struct {
	register [Size]byte
	offset   int // bit offset of the next input byte
	length   uint64
}

var _ hash.Hash = (*digest)(nil)

// New returns a hash.Hash computing QuickXorHash.
func New() hash.Hash {
	return &digest{}
}

// Write never fails.
func (d *digest) Write(p []byte) (int, error) {
	// Offsets repeat every widthInBits bytes, so bytes sharing an offset are
	// folded together before touching the register.
	for i := range min(len(p), widthInBits) {
		var folded byte
		for j := i; j < len(p); j += widthInBits {
			folded ^= p[j]
		}

		d.xorAt((d.offset+i*shift)%widthInBits, folded)
	}

	d.offset = (d.offset + shift*(len(p)%widthInBits)) % widthInBits
	d.length += uint64(len(p))

	return len(p), nil
}

// xorAt XORs b into the register starting at bit, wrapping past bit 159.
func (d *digest) xorAt(bit int, b byte) {
	idx, off := bit/8, uint(bit%8)

	d.register[idx] ^= b << off
	if off != 0 {
		d.register[(idx+1)%Size] ^= b >> (8 - off)
	}
}

// Sum appends the digest to b without changing the hash state.
func (d *digest) Sum(b []byte) []byte {
	out := d.register

	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], d.length)

	for i, lb := range length {
		out[Size-len(length)+i] ^= lb
	}

	return append(b, out[:]...)
}

func (d *digest) Reset() {
	*d = digest{}
}

func (d *digest) Size() int {
	return Size
}

func (d *digest) BlockSize() int {
	return BlockSize
}
