// Package hashlist implements the sparse representation of a hybrid sketch:
// a descending-sorted array of composite hashes of one uniform width, stored
// in a byte buffer that never grows past a fixed byte budget.
//
// The budget is chosen by the caller to equal the size of the dense register
// array the list would otherwise become, so the sparse mode never costs more
// memory than the dense one.
package hashlist

import (
	"fmt"

	hllerrors "github.com/tamirms/hybridhll/errors"
	intbits "github.com/tamirms/hybridhll/internal/bits"
	"github.com/tamirms/hybridhll/internal/codec"
)

// minGrowBytes is the smallest allocation made on the first insertion.
const minGrowBytes = 16

// Store is a hash-list. It is not safe for concurrent use.
type Store struct {
	codec  codec.Codec
	budget int
	buf    []byte
	meta   Meta
}

// New creates an empty store that starts at the widest (32-bit) width and may
// hold at most budget bytes of composite hashes.
func New(c codec.Codec, budget int) *Store {
	if budget < 4 {
		panic(fmt.Sprintf("hashlist: budget %d too small for one word", budget))
	}
	return &Store{
		codec:  c,
		budget: budget,
		meta:   Meta{Width: codec.Width32},
	}
}

// Width returns the current composite hash width in bits.
func (s *Store) Width() uint8 { return s.meta.Width }

// Count returns the number of stored composite hashes.
func (s *Store) Count() int { return int(s.meta.Count) }

// Duplicates returns the number of stored hashes collapsed by downgrades.
func (s *Store) Duplicates() int { return int(s.meta.Duplicates) }

// Budget returns the byte budget.
func (s *Store) Budget() int { return s.budget }

// Meta returns a copy of the bookkeeping fields.
func (s *Store) Meta() Meta { return s.meta }

// Cardinality is the number of distinct composite hashes ever stored: the
// live ones plus those merged by width truncation. Each of them came from a
// distinct hash, so this is a lower bound on the true distinct count up to
// full-width collisions.
func (s *Store) Cardinality() int {
	return int(s.meta.Count + s.meta.Duplicates)
}

func (s *Store) wordSize() int { return int(s.meta.Width / 8) }

// full reports whether one more word would exceed the byte budget.
func (s *Store) full() bool {
	return int(s.meta.Cursor)+s.wordSize() > s.budget
}

// WouldDowngrade reports whether inserting one more new hash would force the
// list to a narrower width. It does not mutate the store.
func (s *Store) WouldDowngrade() bool {
	return s.full() && s.meta.Width > s.codec.SmallestWidth()
}

// WouldDehybridize reports whether inserting one more new hash would exceed
// the budget at the smallest viable width. It does not mutate the store.
func (s *Store) WouldDehybridize() bool {
	return s.full() && s.meta.Width == s.codec.SmallestWidth()
}

// grow makes room for one more word when the buffer is full but the budget is
// not yet exhausted.
func (s *Store) grow() {
	need := int(s.meta.Cursor) + s.wordSize()
	if need <= len(s.buf) || len(s.buf) >= s.budget {
		return
	}
	n := max(2*len(s.buf), minGrowBytes, need)
	n = min(n, s.budget)
	grown := make([]byte, n)
	copy(grown, s.buf[:s.meta.Cursor])
	s.buf = grown
}

// Insert adds the composite hash of (index, register, residual) at the current
// width. inserted is false for an exact duplicate. The error is
// ErrDowngradableSaturation or ErrSaturation when the budget is exhausted.
func (s *Store) Insert(index uint32, register uint8, residual uint64) (inserted bool, err error) {
	s.grow()
	_, inserted, err = s.codec.InsertSortedDesc(s.buf, s.Count(), index, register, residual, s.meta.Width)
	if err != nil || !inserted {
		return false, err
	}
	s.meta.Count++
	s.meta.Cursor += uint32(s.wordSize())
	return true, nil
}

// InsertWord adds an already encoded word of the current width. It follows
// the same contract as Insert.
func (s *Store) InsertWord(word uint32) (inserted bool, err error) {
	pos, found := codec.FindWord(s.buf, s.Count(), word, s.meta.Width)
	if found {
		return false, nil
	}
	if s.full() {
		if s.meta.Width > s.codec.SmallestWidth() {
			return false, hllerrors.ErrDowngradableSaturation
		}
		return false, hllerrors.ErrSaturation
	}
	s.grow()
	size := s.wordSize()
	start, end := pos*size, int(s.meta.Cursor)
	copy(s.buf[start+size:end+size], s.buf[start:end])
	intbits.WriteWord(s.buf[start:], word, size)
	s.meta.Count++
	s.meta.Cursor += uint32(size)
	return true, nil
}

// Contains reports whether the composite hash of (index, register, residual)
// is stored.
func (s *Store) Contains(index uint32, register uint8, residual uint64) bool {
	_, _, found := s.codec.Find(s.buf, s.Count(), index, register, residual, s.meta.Width)
	return found
}

// Downgrade narrows every stored word to the next smaller viable width and
// returns the new width. At the smallest viable width it is a no-op.
func (s *Store) Downgrade() uint8 {
	return s.DowngradeTo(s.codec.NextWidth(s.meta.Width))
}

// DowngradeTo narrows every stored word to width, which must not be wider
// than the current width nor narrower than the smallest viable width.
func (s *Store) DowngradeTo(width uint8) uint8 {
	if width == s.meta.Width {
		return width
	}
	newCount, removed := s.codec.DowngradeInPlace(s.buf, s.Count(), s.meta.Width, width)
	s.meta.Width = width
	s.meta.Count = uint32(newCount)
	s.meta.Cursor = uint32(newCount * s.wordSize())
	s.meta.Duplicates += uint32(removed)
	return width
}

// Word returns the i-th stored word at the current width.
func (s *Store) Word(i int) uint32 {
	return codec.Word(s.buf, i, s.meta.Width)
}

// Each calls fn with the decoded (register, index) of every stored hash in
// descending order.
func (s *Store) Each(fn func(register uint8, index uint32)) {
	s.codec.Each(s.buf, s.Count(), s.meta.Width, fn)
}

// Bytes returns the live portion of the buffer. The slice aliases the store.
func (s *Store) Bytes() []byte { return s.buf[:s.meta.Cursor] }

// Clone returns a deep copy.
func (s *Store) Clone() *Store {
	c := *s
	c.buf = append([]byte(nil), s.buf...)
	return &c
}

// Reset empties the store and restores the widest width. The buffer is
// released.
func (s *Store) Reset() {
	s.buf = nil
	s.meta = Meta{Width: codec.Width32}
}

// IsStrictlyDescending reports whether the stored words are strictly
// descending.
func (s *Store) IsStrictlyDescending() bool {
	return codec.IsStrictlyDescending(s.buf, s.Count(), s.meta.Width)
}

// Words returns a copy of the stored words in descending order.
func (s *Store) Words() []uint32 {
	words := make([]uint32, s.Count())
	for i := range words {
		words[i] = s.Word(i)
	}
	return words
}

// RaiseDuplicates lifts the collapsed-duplicate count to at least n. Merging
// two lists keeps the larger of their counts: either side's collapsed hashes
// may be among the other's.
func (s *Store) RaiseDuplicates(n int) {
	s.meta.Duplicates = max(s.meta.Duplicates, uint32(n))
}
