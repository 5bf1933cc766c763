package hybridhll

import (
	"github.com/tamirms/hybridhll/internal/codec"
	"github.com/tamirms/hybridhll/internal/estimator"
	"github.com/tamirms/hybridhll/internal/hashlist"
	"github.com/tamirms/hybridhll/internal/registers"
)

// EstimateCardinality returns the estimated number of distinct elements.
//
// In hash-list mode the count is exact up to hash collisions. In dense mode
// the estimate never drops below the exact count the hash list held when it
// converted, and never decreases as elements are inserted.
func (s *Sketch) EstimateCardinality() float64 {
	switch st := s.state.(type) {
	case *hashListState:
		return float64(st.store.Cardinality())
	case *denseState:
		return max(s.estimateRegisters(st.regs, st.regs), st.floor)
	}
	return 0
}

// estimateRegisters estimates the union of a and b; pass the same array
// twice for a single sketch.
func (s *Sketch) estimateRegisters(a, b registers.Registers) float64 {
	if s.cfg.estimator == EstimatorHLLPP {
		sum, zeros := a.HarmonicSumAndZeros(b)
		return estimator.HLLPP(s.cfg.precision, sum, zeros)
	}
	// Ertl serves both the Ertl estimator and single-sketch MLE queries.
	merged := a
	if a != b {
		merged = a.Clone()
		merged.MaxMerge(b)
	}
	return estimator.Ertl(merged.Histogram(), merged.Len(), s.maxRegister)
}

// EstimateUnionCardinality estimates |A ∪ B| without modifying either
// sketch. The result lies in [max(|A|, |B|), |A| + |B|].
func (s *Sketch) EstimateUnionCardinality(o *Sketch) (float64, error) {
	if err := s.compatible(o); err != nil {
		return 0, err
	}
	if s.cfg.estimator == EstimatorMLE {
		j, err := EstimateJoint(s, o)
		if err != nil {
			return 0, err
		}
		return j.Union(), nil
	}
	a, b, u := s.pairwise(o)
	return estimator.Union(a, b, u), nil
}

// EstimateIntersectionCardinality estimates |A ∩ B|. It is never negative.
func (s *Sketch) EstimateIntersectionCardinality(o *Sketch) (float64, error) {
	if err := s.compatible(o); err != nil {
		return 0, err
	}
	if s.cfg.estimator == EstimatorMLE {
		j, err := EstimateJoint(s, o)
		if err != nil {
			return 0, err
		}
		return j.IntersectionOf(0b11), nil
	}
	a, b, u := s.pairwise(o)
	return estimator.Intersection(a, b, u), nil
}

// EstimateDifferenceCardinality estimates |A \ B|, where A is the receiver.
func (s *Sketch) EstimateDifferenceCardinality(o *Sketch) (float64, error) {
	if err := s.compatible(o); err != nil {
		return 0, err
	}
	if s.cfg.estimator == EstimatorMLE {
		j, err := EstimateJoint(s, o)
		if err != nil {
			return 0, err
		}
		return j.Region(0b01), nil
	}
	a, b, u := s.pairwise(o)
	return estimator.Difference(a, b, u), nil
}

// EstimateJaccardIndex estimates |A ∩ B| / |A ∪ B| in [0, 1]. Two empty
// sketches have index 0.
func (s *Sketch) EstimateJaccardIndex(o *Sketch) (float64, error) {
	if err := s.compatible(o); err != nil {
		return 0, err
	}
	if s.cfg.estimator == EstimatorMLE {
		j, err := EstimateJoint(s, o)
		if err != nil {
			return 0, err
		}
		u := j.Union()
		if u <= 0 {
			return 0, nil
		}
		return min(1, j.IntersectionOf(0b11)/u), nil
	}
	a, b, u := s.pairwise(o)
	return estimator.Jaccard(a, b, u), nil
}

// pairwise returns both cardinalities and the unclamped union estimate.
func (s *Sketch) pairwise(o *Sketch) (a, b, union float64) {
	return s.EstimateCardinality(), o.EstimateCardinality(), s.unionRaw(o)
}

func (s *Sketch) unionRaw(o *Sketch) float64 {
	sl, sIsList := s.state.(*hashListState)
	ol, oIsList := o.state.(*hashListState)
	if sIsList && oIsList {
		return hashListUnion(s.codec, sl.store, ol.store)
	}

	// The hash-list side is materialized in the dense side's storage kind
	// so the paired walk uses the fast same-kind path.
	var a, b registers.Registers
	switch {
	case sIsList:
		b = o.state.(*denseState).regs
		a = s.registerView(b.Kind())
	case oIsList:
		a = s.state.(*denseState).regs
		b = o.registerView(a.Kind())
	default:
		a = s.state.(*denseState).regs
		b = o.state.(*denseState).regs
	}
	return s.estimateRegisters(a, b)
}

// hashListUnion counts the union of two hash lists exactly at the narrower of
// their widths. Hashes collapsed by earlier downgrades are distinct elements
// of their list but may belong to both sides, so only the larger side's
// collapses are added.
func hashListUnion(c codec.Codec, a, b *hashlist.Store) float64 {
	width := min(a.Width(), b.Width())
	wa, collapsedA := narrowWords(c, a, width)
	wb, collapsedB := narrowWords(c, b, width)

	distinct := 0
	i, j := 0, 0
	for i < len(wa) && j < len(wb) {
		switch {
		case wa[i] > wb[j]:
			i++
		case wa[i] < wb[j]:
			j++
		default:
			i++
			j++
		}
		distinct++
	}
	distinct += len(wa) - i + len(wb) - j

	return float64(distinct + max(a.Duplicates()+collapsedA, b.Duplicates()+collapsedB))
}

// narrowWords returns the store's words shifted down to width, strictly
// descending, and how many words the narrowing merged away.
func narrowWords(c codec.Codec, st *hashlist.Store, width uint8) (words []uint32, collapsed int) {
	words = st.Words()
	shift := st.Width() - width
	if shift == 0 {
		return words, 0
	}
	n := 0
	for _, w := range words {
		w = c.Downgrade(w, st.Width(), shift)
		if n > 0 && words[n-1] == w {
			continue
		}
		words[n] = w
		n++
	}
	return words[:n], len(words) - n
}
