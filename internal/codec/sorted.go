package codec

import (
	"bytes"
	"sort"

	hllerrors "github.com/tamirms/hybridhll/errors"
	intbits "github.com/tamirms/hybridhll/internal/bits"
)

// Word reads the i-th word of a buffer of the given width.
func Word(buf []byte, i int, width uint8) uint32 {
	size := int(width / 8)
	return intbits.ReadWord(buf[i*size:], size)
}

// Find binary-searches a descending-sorted buffer of count words for the
// composite hash of (index, register, residual) at the given width.
//
// If the word is present, found is true and pos is its position. Otherwise pos
// is the insertion point that keeps the buffer descending, and word is the
// encoded value so callers never re-encode.
func (c Codec) Find(buf []byte, count int, index uint32, register uint8, residual uint64, width uint8) (pos int, word uint32, found bool) {
	word = c.Encode(index, register, residual, width)
	pos, found = FindWord(buf, count, word, width)
	return pos, word, found
}

// FindWord is Find for an already encoded word.
func FindWord(buf []byte, count int, word uint32, width uint8) (pos int, found bool) {
	size := int(width / 8)
	pos = sort.Search(count, func(i int) bool {
		return intbits.ReadWord(buf[i*size:], size) <= word
	})
	found = pos < count && intbits.ReadWord(buf[pos*size:], size) == word
	return pos, found
}

// InsertSortedDesc inserts the composite hash of (index, register, residual)
// into a descending buffer holding count words, shifting the tail right by one
// word.
//
// inserted is false when the exact word is already present (a duplicate
// element, or rarely a collision of two elements on the same composite hash).
// When the buffer has no room for another word, the error is
// ErrDowngradableSaturation if a narrower width is still available, and
// ErrSaturation otherwise. Both are control-flow signals, not failures.
func (c Codec) InsertSortedDesc(buf []byte, count int, index uint32, register uint8, residual uint64, width uint8) (pos int, inserted bool, err error) {
	pos, word, found := c.Find(buf, count, index, register, residual, width)
	if found {
		return pos, false, nil
	}
	size := int(width / 8)
	if (count+1)*size > len(buf) {
		if width > c.smallest {
			return pos, false, hllerrors.ErrDowngradableSaturation
		}
		return pos, false, hllerrors.ErrSaturation
	}
	start := pos * size
	end := count * size
	copy(buf[start+size:end+size], buf[start:end])
	intbits.WriteWord(buf[start:], word, size)
	return pos, true, nil
}

// DowngradeInPlace narrows every word of a descending buffer from fromWidth to
// toWidth. Because words are little-endian and the shift is a whole number of
// bytes, narrowing a word is a copy of its top toWidth/8 bytes. Words that
// become equal after truncation are collapsed so the buffer stays strictly
// descending; removed reports how many were dropped.
//
// The bytes freed at the end of the buffer are zeroed.
func (c Codec) DowngradeInPlace(buf []byte, count int, fromWidth, toWidth uint8) (newCount, removed int) {
	checkWidth(fromWidth)
	checkWidth(toWidth)
	if toWidth == fromWidth {
		return count, 0
	}
	if toWidth > fromWidth || toWidth < c.smallest {
		panic("codec: illegal in-place downgrade")
	}

	fromSize := int(fromWidth / 8)
	toSize := int(toWidth / 8)
	drop := fromSize - toSize

	for i := range count {
		src := buf[i*fromSize+drop : (i+1)*fromSize]
		if newCount > 0 && bytes.Equal(buf[(newCount-1)*toSize:newCount*toSize], src) {
			removed++
			continue
		}
		// dst never overtakes src since toSize < fromSize.
		copy(buf[newCount*toSize:], src)
		newCount++
	}
	clear(buf[newCount*toSize : count*fromSize])
	return newCount, removed
}

// Each decodes the first count words of buf and calls fn for each one, in
// stored (descending) order.
func (c Codec) Each(buf []byte, count int, width uint8, fn func(register uint8, index uint32)) {
	size := int(width / 8)
	for i := range count {
		register, index := c.Decode(intbits.ReadWord(buf[i*size:], size), width)
		fn(register, index)
	}
}

// IsStrictlyDescending reports whether the first count words are strictly
// descending as unsigned integers.
func IsStrictlyDescending(buf []byte, count int, width uint8) bool {
	for i := 1; i < count; i++ {
		if Word(buf, i-1, width) <= Word(buf, i, width) {
			return false
		}
	}
	return true
}
