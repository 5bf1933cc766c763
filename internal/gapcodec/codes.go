package gapcodec

import "math/bits"

// maxUnary bounds unary runs on decode. No gap of a 32-bit word needs more.
const maxUnary = 1 << 33

// WriteRice appends v as a Rice code with parameter k: the quotient v>>k in
// unary, then the low k bits.
func WriteRice(w *Writer, v uint64, k uint8) {
	w.WriteUnary(v >> k)
	w.WriteBits(v, int(k))
}

// ReadRice is the inverse of WriteRice.
func ReadRice(r *Reader, k uint8) uint64 {
	q := r.ReadUnary(maxUnary)
	return q<<k | r.ReadBits(int(k))
}

// RiceBits returns the length of the Rice code of v.
func RiceBits(v uint64, k uint8) int {
	return int(v>>k) + 1 + int(k)
}

// WriteGamma appends v >= 1 as an Elias gamma code: len(v)-1 in unary, then
// the bits of v below its leading one.
func WriteGamma(w *Writer, v uint64) {
	if v == 0 {
		panic("gapcodec: gamma code of zero")
	}
	n := bits.Len64(v) - 1
	w.WriteUnary(uint64(n))
	w.WriteBits(v, n)
}

// ReadGamma is the inverse of WriteGamma.
func ReadGamma(r *Reader) uint64 {
	n := int(r.ReadUnary(64))
	if n >= 64 {
		return 0
	}
	return uint64(1)<<n | r.ReadBits(n)
}

// GammaBits returns the length of the gamma code of v >= 1.
func GammaBits(v uint64) int {
	return 2*bits.Len64(v) - 1
}
