// Package bits provides low-level bit manipulation primitives shared by the
// codec, the register arrays and the hashers.
package bits

import "math/bits"

// IndexAndRegister splits a 64-bit hash into a bucket index and a register
// value. The low precision bits select the bucket; the register is one plus
// the number of leading zeros of the remaining 64-precision bits, capped at
// maxRegister.
//
// The remaining bits are also returned left-aligned with the leading zeros and
// the first one-bit shifted out, so callers can slice residual bits from the
// most significant end.
func IndexAndRegister(hash uint64, precision uint8, maxRegister uint8) (index uint32, register uint8, residual uint64) {
	index = uint32(hash & (uint64(1)<<precision - 1))
	rest := hash >> precision
	q := 64 - int(precision)

	// rest has q significant bits; leading zeros are counted within them.
	lz := bits.LeadingZeros64(rest) - int(precision)
	if lz >= q {
		lz = q
	}
	r := lz + 1
	if r > int(maxRegister) {
		r = int(maxRegister)
	}
	register = uint8(r)

	// Drop the precision pad, the leading zeros and the first one-bit.
	shift := int(precision) + lz + 1
	if shift < 64 {
		residual = rest << shift
	}
	return index, register, residual
}

// MaxRegister returns the largest register value representable with the
// given register width, further capped by what a hash with the given
// precision can produce (64 - precision + 1).
func MaxRegister(precision, registerBits uint8) uint8 {
	byWidth := uint16(1)<<registerBits - 1
	byHash := uint16(64 - precision + 1)
	return uint8(min(byWidth, byHash))
}
