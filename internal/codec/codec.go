// Package codec implements the composite hash codec used by the hash-list
// representation.
//
// A composite hash packs a bucket index, a register value and residual hash
// bits into one unsigned word of 8, 16, 24 or 32 bits:
//
//	MSB                                            LSB
//	+----------------+-----------------+-------------+
//	| index (P bits) | register (B)    | residual    |
//	+----------------+-----------------+-------------+
//
// Because the index occupies the high bits, sorting composite hashes as plain
// integers groups a bucket together, ordered by register and then residual.
// Narrowing a word (downgrading) is a right shift that only ever discards
// residual bits, so a downgraded word decodes to the same (register, index)
// pair as a word encoded directly at the narrower width.
//
// Words are stored in caller-owned byte buffers as little-endian windows of
// width/8 bytes. The codec never allocates.
package codec

import (
	"fmt"
	mathbits "math/bits"

	intbits "github.com/tamirms/hybridhll/internal/bits"
)

// Supported physical widths, in bits.
const (
	Width8  uint8 = 8
	Width16 uint8 = 16
	Width24 uint8 = 24
	Width32 uint8 = 32
)

// Codec encodes and decodes composite hashes for one (precision, register
// bits) shape. The zero value is not usable; use New.
type Codec struct {
	precision    uint8
	registerBits uint8
	maxRegister  uint8
	smallest     uint8
}

// New returns the codec for the given precision and register width.
// It panics if precision+registerBits cannot fit in a 32-bit word.
func New(precision, registerBits uint8) Codec {
	smallest := SmallestViableWidth(precision, registerBits)
	if smallest == 0 {
		panic(fmt.Sprintf("codec: precision %d + register bits %d exceed 32 bits", precision, registerBits))
	}
	return Codec{
		precision:    precision,
		registerBits: registerBits,
		maxRegister:  intbits.MaxRegister(precision, registerBits),
		smallest:     smallest,
	}
}

// SmallestViableWidth returns the narrowest supported width able to hold the
// index and register fields, or 0 if none is.
func SmallestViableWidth(precision, registerBits uint8) uint8 {
	need := int(precision) + int(registerBits)
	for _, w := range [...]uint8{Width8, Width16, Width24, Width32} {
		if int(w) >= need {
			return w
		}
	}
	return 0
}

// SmallestWidth returns the smallest viable width for this codec.
func (c Codec) SmallestWidth() uint8 { return c.smallest }

// MaxRegister returns the largest register value this codec accepts.
func (c Codec) MaxRegister() uint8 { return c.maxRegister }

// Precision returns the index width in bits.
func (c Codec) Precision() uint8 { return c.precision }

// NextWidth returns the width one byte narrower than w, or w itself when w is
// already the smallest viable width.
func (c Codec) NextWidth(w uint8) uint8 {
	checkWidth(w)
	if w <= c.smallest {
		return w
	}
	return w - 8
}

func checkWidth(w uint8) {
	switch w {
	case Width8, Width16, Width24, Width32:
	default:
		panic(fmt.Sprintf("codec: unsupported hash width %d", w))
	}
}

func (c Codec) residualBits(width uint8) uint8 {
	return width - c.precision - c.registerBits
}

// Encode packs index, register and the most significant residual bits into a
// word of the given width.
//
// residual must be left-aligned (as returned by bits.IndexAndRegister).
func (c Codec) Encode(index uint32, register uint8, residual uint64, width uint8) uint32 {
	checkWidth(width)
	if width < c.smallest {
		panic(fmt.Sprintf("codec: width %d is below the smallest viable width %d", width, c.smallest))
	}
	if register == 0 || register > c.maxRegister {
		panic(fmt.Sprintf("codec: register %d outside [1, %d]", register, c.maxRegister))
	}
	if index>>c.precision != 0 {
		panic(fmt.Sprintf("codec: index %d outside precision %d", index, c.precision))
	}

	r := c.residualBits(width)
	word := index<<(width-c.precision) | uint32(register)<<r
	if r > 0 {
		word |= uint32(residual >> (64 - r))
	}
	return word
}

// Decode is the left inverse of Encode on the (register, index) projection.
func (c Codec) Decode(word uint32, width uint8) (register uint8, index uint32) {
	checkWidth(width)
	if mathbits.LeadingZeros32(word) < 32-int(width) {
		panic(fmt.Sprintf("codec: word 0x%x wider than %d bits", word, width))
	}
	r := c.residualBits(width)
	register = uint8((word >> r) & (uint32(1)<<c.registerBits - 1))
	index = word >> (width - c.precision)
	if register == 0 {
		panic(fmt.Sprintf("codec: word 0x%x decodes to register 0", word))
	}
	return register, index
}

// Downgrade narrows word from width by shift bits. shift must be a multiple of
// 8 and must not drop below the smallest viable width; shift 0 is a no-op.
func (c Codec) Downgrade(word uint32, width, shift uint8) uint32 {
	checkWidth(width)
	if shift == 0 {
		return word
	}
	if shift%8 != 0 || width-shift < c.smallest || shift >= width {
		panic(fmt.Sprintf("codec: illegal downgrade of width %d by %d (smallest %d)", width, shift, c.smallest))
	}
	return word >> shift
}
