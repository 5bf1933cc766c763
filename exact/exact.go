// Package exact implements exact sets of small non-negative integers with the
// same estimate methods as a sketch, for use as ground truth.
package exact

import (
	"github.com/bits-and-blooms/bitset"
)

// Set is an exact set of non-negative integers backed by a bitset. The zero
// value is an empty set.
type Set struct {
	bits bitset.BitSet
}

// New returns a set holding values.
func New(values ...uint) *Set {
	s := &Set{}
	for _, v := range values {
		s.Insert(v)
	}
	return s
}

// Insert adds v.
func (s *Set) Insert(v uint) {
	s.bits.Set(v)
}

// Contains reports whether v is in the set.
func (s *Set) Contains(v uint) bool {
	return s.bits.Test(v)
}

// Len returns the number of elements.
func (s *Set) Len() int {
	return int(s.bits.Count())
}

// Values returns the elements in ascending order.
func (s *Set) Values() []uint {
	out := make([]uint, 0, s.bits.Count())
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		out = append(out, i)
	}
	return out
}

// Clone returns a copy.
func (s *Set) Clone() *Set {
	c := &Set{}
	s.bits.CopyFull(&c.bits)
	return c
}

// Reset removes every element.
func (s *Set) Reset() {
	s.bits.ClearAll()
}

// EstimateCardinality returns the exact cardinality.
func (s *Set) EstimateCardinality() float64 {
	return float64(s.bits.Count())
}

// EstimateUnionCardinality returns |s ∪ o|. The error is always nil.
func (s *Set) EstimateUnionCardinality(o *Set) (float64, error) {
	return float64(s.bits.UnionCardinality(&o.bits)), nil
}

// EstimateIntersectionCardinality returns |s ∩ o|. The error is always nil.
func (s *Set) EstimateIntersectionCardinality(o *Set) (float64, error) {
	return float64(s.bits.IntersectionCardinality(&o.bits)), nil
}

// EstimateDifferenceCardinality returns |s \ o|. The error is always nil.
func (s *Set) EstimateDifferenceCardinality(o *Set) (float64, error) {
	return float64(s.bits.DifferenceCardinality(&o.bits)), nil
}

// EstimateJaccardIndex returns |s ∩ o| / |s ∪ o|, or 0 when both are empty.
func (s *Set) EstimateJaccardIndex(o *Set) (float64, error) {
	u := s.bits.UnionCardinality(&o.bits)
	if u == 0 {
		return 0, nil
	}
	return float64(s.bits.IntersectionCardinality(&o.bits)) / float64(u), nil
}
