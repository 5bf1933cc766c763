// Package registers implements the dense register array of a hybrid sketch.
//
// Two storage strategies share the Registers interface: Packed, which packs
// floor(64/bits) registers into each uint64 word, and Plain, which spends one
// byte per register. Both support register widths of 4, 5, 6 and 8 bits.
package registers

import (
	"fmt"
	"math"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// Kind identifies a register storage strategy.
type Kind uint8

const (
	// KindPacked packs several registers per 64-bit word.
	KindPacked Kind = 0

	// KindPlain stores one register per byte.
	KindPlain Kind = 1
)

// String returns the strategy name.
func (k Kind) String() string {
	switch k {
	case KindPacked:
		return "packed"
	case KindPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// HistogramLen is the length of histograms returned by Registers.Histogram,
// one slot per value an 8-bit register can hold.
const HistogramLen = 256

// pow2neg[v] = 2^-v. Register values are at most 255.
var pow2neg = func() [256]float64 {
	var t [256]float64
	for v := range t {
		t[v] = math.Ldexp(1, -v)
	}
	return t
}()

// Pow2Neg returns 2^-v for a register value.
func Pow2Neg(v uint8) float64 { return pow2neg[v] }

// Registers is a fixed-size array of m registers.
//
// The only mutation paths are SetGreater, MaxMerge, Apply and Reset; values
// only move up under SetGreater and MaxMerge.
type Registers interface {
	// Kind returns the storage strategy.
	Kind() Kind

	// Len returns the logical register count m.
	Len() int

	// Bits returns the register width.
	Bits() uint8

	// Get returns register i.
	Get(i uint32) uint8

	// SetGreater raises register i to max(old, v) and returns both values.
	// When v <= old it returns (old, old) and changes nothing.
	SetGreater(i uint32, v uint8) (old, updated uint8)

	// HarmonicSumAndZeros returns the sum of 2^-max(a_i, b_i) over paired
	// registers of the receiver and other, and the number of positions where
	// that max is zero. Passing the receiver as other gives its own statistics.
	HarmonicSumAndZeros(other Registers) (sum float64, zeros int)

	// Apply replaces every logical register r with f(r).
	Apply(f func(uint8) uint8)

	// Histogram returns counts of each register value, of length HistogramLen.
	Histogram() []int

	// MaxMerge raises every register to the max of itself and other's.
	MaxMerge(other Registers)

	// SizeInBytes returns the memory used by register storage.
	SizeInBytes() int

	// Clone returns a deep copy.
	Clone() Registers

	// Reset zeroes every register.
	Reset()
}

// New creates a zeroed register array of the given strategy for 2^precision
// registers of registerBits each.
func New(kind Kind, precision, registerBits uint8) (Registers, error) {
	if err := checkBits(registerBits); err != nil {
		return nil, err
	}
	m := 1 << precision
	switch kind {
	case KindPacked:
		return newPacked(m, registerBits), nil
	case KindPlain:
		return newPlain(m, registerBits), nil
	}
	return nil, fmt.Errorf("%w: kind %d", hllerrors.ErrUnsupportedRegisters, kind)
}

// SizeInBytes returns the storage a register array of the given shape would
// use, without allocating it.
func SizeInBytes(kind Kind, precision, registerBits uint8) int {
	m := 1 << precision
	switch kind {
	case KindPlain:
		return m
	default:
		perWord := 64 / int(registerBits)
		return (m + perWord - 1) / perWord * 8
	}
}

func checkBits(registerBits uint8) error {
	switch registerBits {
	case 4, 5, 6, 8:
		return nil
	}
	return fmt.Errorf("%w: got %d", hllerrors.ErrUnsupportedBits, registerBits)
}

// genericHarmonicSumAndZeros is the interface-only fallback used when the two
// arrays do not share a storage layout.
func genericHarmonicSumAndZeros(a, b Registers) (sum float64, zeros int) {
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("registers: length mismatch %d != %d", a.Len(), b.Len()))
	}
	for i := range uint32(a.Len()) {
		r := max(a.Get(i), b.Get(i))
		sum += pow2neg[r]
		if r == 0 {
			zeros++
		}
	}
	return sum, zeros
}

func genericMaxMerge(dst, src Registers) {
	if dst.Len() != src.Len() {
		panic(fmt.Sprintf("registers: length mismatch %d != %d", dst.Len(), src.Len()))
	}
	for i := range uint32(dst.Len()) {
		dst.SetGreater(i, src.Get(i))
	}
}
