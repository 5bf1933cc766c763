package hybridhll

import (
	"fmt"
	"math/bits"

	hllerrors "github.com/tamirms/hybridhll/errors"
	"github.com/tamirms/hybridhll/internal/estimator"
	"github.com/tamirms/hybridhll/internal/registers"
)

// JointEstimate is the fitted Venn diagram of 2 to 6 sketches. Regions are
// addressed by bit masks over the sketch positions: bit i stands for the i-th
// sketch passed to EstimateJoint.
type JointEstimate struct {
	sets    int
	regions []float64
}

// EstimateJoint fits the sizes of every exclusive Venn region of the given
// sketches by maximum likelihood over the value tuple each register index
// holds across all of them. The fit starts from the inclusion-exclusion
// solution of Ertl estimates of every subset union.
//
// The fit is iterative and its stopping point depends on the order of the
// sketches, so pairwise queries built on it are not exactly symmetric.
func EstimateJoint(sketches ...*Sketch) (*JointEstimate, error) {
	k := len(sketches)
	if k < estimator.MinJointSets || k > estimator.MaxJointSets {
		return nil, fmt.Errorf("%w: got %d", hllerrors.ErrSketchCount, k)
	}
	first := sketches[0]
	for _, sk := range sketches[1:] {
		if err := first.compatible(sk); err != nil {
			return nil, err
		}
	}

	kind := first.cfg.registers
	for _, sk := range sketches {
		if st, ok := sk.state.(*denseState); ok {
			kind = st.regs.Kind()
			break
		}
	}
	views := make([]registers.Registers, k)
	for i, sk := range sketches {
		views[i] = sk.registerView(kind)
	}

	n := 1 << k
	merged := make([]registers.Registers, n)
	unions := make([]float64, n)
	for t := 1; t < n; t++ {
		low := bits.TrailingZeros(uint(t))
		rest := t &^ (1 << low)
		if rest == 0 {
			merged[t] = views[low]
		} else {
			merged[t] = merged[rest].Clone()
			merged[t].MaxMerge(views[low])
		}
		unions[t] = estimator.Ertl(merged[t].Histogram(), merged[t].Len(), first.maxRegister)
	}

	start, err := estimator.Joint(unions)
	if err != nil {
		return nil, err
	}
	m := views[0].Len()
	tuples := estimator.JointTuples(k, m, func(set int, i uint32) uint8 {
		return views[set].Get(i)
	})
	regions, err := estimator.JointMLE(tuples, k, m, first.maxRegister, start)
	if err != nil {
		return nil, err
	}
	return &JointEstimate{sets: k, regions: regions}, nil
}

// Sets returns the number of sketches.
func (j *JointEstimate) Sets() int { return j.sets }

// Region returns the estimated number of elements in exactly the sketches of
// mask and in no other.
func (j *JointEstimate) Region(mask uint) float64 {
	if mask == 0 || mask >= uint(len(j.regions)) {
		return 0
	}
	return j.regions[mask]
}

// Regions returns a copy of every region estimate indexed by mask; index 0
// is always zero.
func (j *JointEstimate) Regions() []float64 {
	return append([]float64(nil), j.regions...)
}

// Union returns the estimated union of all sketches.
func (j *JointEstimate) Union() float64 {
	return estimator.JointUnion(j.regions)
}

// UnionOf returns the estimated union of the sketches in mask.
func (j *JointEstimate) UnionOf(mask uint) float64 {
	var sum float64
	for s := 1; s < len(j.regions); s++ {
		if uint(s)&mask != 0 {
			sum += j.regions[s]
		}
	}
	return sum
}

// IntersectionOf returns the estimated intersection of the sketches in mask.
func (j *JointEstimate) IntersectionOf(mask uint) float64 {
	if mask == 0 {
		return 0
	}
	var sum float64
	for s := 1; s < len(j.regions); s++ {
		if uint(s)&mask == mask {
			sum += j.regions[s]
		}
	}
	return sum
}
