// Package gapcodec compresses the sorted words of a hash list as gaps
// between consecutive values, coded with Rice or Elias gamma bitstreams.
//
// Words are taken in the hash list's descending order and coded ascending:
// the first gap is the smallest word plus one and every later gap is the
// difference to the previous word. Strict ordering makes every gap at least
// one.
package gapcodec

import (
	"fmt"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// Stats summarizes how compressible a hash list is.
type Stats struct {
	Count     int   // words
	Width     uint8 // bits per word
	RawBits   int   // Count * Width
	RiceK     uint8 // Rice parameter minimizing RiceBits
	RiceBits  int   // encoded size with RiceK
	GammaBits int   // encoded size with gamma codes
}

// Gaps returns the gaps of strictly descending words, smallest word first.
func Gaps(words []uint32) []uint64 {
	gaps := make([]uint64, len(words))
	var prev uint64
	for i := range words {
		w := uint64(words[len(words)-1-i])
		if i == 0 {
			gaps[i] = w + 1
		} else {
			gaps[i] = w - prev
		}
		prev = w
	}
	return gaps
}

// Analyze returns the coded sizes of words at the given width.
func Analyze(words []uint32, width uint8) Stats {
	gaps := Gaps(words)
	st := Stats{
		Count:   len(words),
		Width:   width,
		RawBits: len(words) * int(width),
	}
	for _, g := range gaps {
		st.GammaBits += GammaBits(g)
	}
	st.RiceK, st.RiceBits = bestRice(gaps, width)
	return st
}

func bestRice(gaps []uint64, width uint8) (k uint8, size int) {
	size = -1
	for cand := uint8(0); cand <= width; cand++ {
		total := 0
		for _, g := range gaps {
			total += RiceBits(g-1, cand)
		}
		if size < 0 || total < size {
			k, size = cand, total
		}
	}
	return k, max(size, 0)
}

// EncodeRice codes descending words with Rice parameter k.
func EncodeRice(words []uint32, k uint8) []byte {
	w := NewWriter(len(words) * 2)
	for _, g := range Gaps(words) {
		WriteRice(w, g-1, k)
	}
	return w.Bytes()
}

// DecodeRice is the inverse of EncodeRice for count words of width bits.
func DecodeRice(data []byte, count int, k uint8, width uint8) ([]uint32, error) {
	r := NewReader(data)
	return decode(r, count, width, func() uint64 { return ReadRice(r, k) + 1 })
}

// EncodeGamma codes descending words with Elias gamma codes.
func EncodeGamma(words []uint32) []byte {
	w := NewWriter(len(words) * 2)
	for _, g := range Gaps(words) {
		WriteGamma(w, g)
	}
	return w.Bytes()
}

// DecodeGamma is the inverse of EncodeGamma for count words of width bits.
func DecodeGamma(data []byte, count int, width uint8) ([]uint32, error) {
	r := NewReader(data)
	return decode(r, count, width, func() uint64 { return ReadGamma(r) })
}

func decode(r *Reader, count int, width uint8, next func() uint64) ([]uint32, error) {
	words := make([]uint32, count)
	limit := uint64(1) << width
	var value uint64
	for i := range count {
		g := next()
		if r.Overrun() {
			return nil, fmt.Errorf("%w: after %d of %d words", hllerrors.ErrGapStreamTruncated, i, count)
		}
		if g == 0 || g > limit {
			return nil, fmt.Errorf("%w: gap %d at word %d", hllerrors.ErrGapStreamOverflow, g, i)
		}
		if i == 0 {
			value = g - 1
		} else {
			value += g
		}
		if value >= limit {
			return nil, fmt.Errorf("%w: word %d is 0x%x at width %d", hllerrors.ErrGapStreamOverflow, i, value, width)
		}
		words[count-1-i] = uint32(value)
	}
	return words, nil
}
