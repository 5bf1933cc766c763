package estimator

import (
	"fmt"
	"math"
	"math/bits"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// Joint sketch count bounds.
const (
	MinJointSets = 2
	MaxJointSets = 6
)

const (
	jointReweights = 4
	jointMaxSweeps = 500
	jointTolerance = 1e-9
)

// Joint fits the 2^k-1 exclusive regions of a k-set Venn diagram to union
// estimates.
//
// unions has length 2^k. unions[T] is the estimated cardinality of the union
// of the sets whose bits are set in T; unions[0] is ignored. The returned
// slice has the same length: regions[S] estimates the number of elements in
// exactly the sets of S, and regions[0] is 0.
//
// The fit starts from the Möbius inversion of the unions clamped at zero and
// refines it by non-negative least squares with relative-error weights,
// reweighted a few times around the current fit. When the unions are
// mutually consistent the inversion is already exact and is returned as is.
// JointMLE starts from this fit.
func Joint(unions []float64) ([]float64, error) {
	n := len(unions)
	k := bits.TrailingZeros(uint(n))
	if n == 0 || n&(n-1) != 0 || k < MinJointSets || k > MaxJointSets {
		return nil, fmt.Errorf("%w: got %d union estimates", hllerrors.ErrSketchCount, n)
	}
	full := n - 1

	u := make([]float64, n)
	for t := 1; t < n; t++ {
		u[t] = max(0, unions[t])
	}

	// x[T] first counts the elements contained only in sets of T, then is
	// inverted over subsets into exclusive regions.
	x := make([]float64, n)
	for t := 1; t < n; t++ {
		x[t] = u[full] - u[full&^t]
	}
	for b := 1; b < n; b <<= 1 {
		for s := 1; s < n; s++ {
			if s&b != 0 {
				x[s] -= x[s^b]
			}
		}
	}
	for s := range x {
		x[s] = max(0, x[s])
	}
	x[0] = 0

	pred := make([]float64, n)
	for t := 1; t < n; t++ {
		for s := 1; s < n; s++ {
			if s&t != 0 {
				pred[t] += x[s]
			}
		}
	}

	scale := max(1, u[full])
	w := make([]float64, n)
	for range jointReweights {
		for t := 1; t < n; t++ {
			d := max(1, (pred[t]+u[t])/2)
			w[t] = 1 / (d * d)
		}
		for range jointMaxSweeps {
			var moved float64
			for s := 1; s < n; s++ {
				var curvature, slope float64
				for t := 1; t < n; t++ {
					if s&t != 0 {
						curvature += w[t]
						slope += w[t] * (pred[t] - u[t])
					}
				}
				next := max(0, x[s]-slope/curvature)
				delta := next - x[s]
				if delta == 0 {
					continue
				}
				x[s] = next
				for t := 1; t < n; t++ {
					if s&t != 0 {
						pred[t] += delta
					}
				}
				moved = max(moved, math.Abs(delta))
			}
			if moved <= jointTolerance*scale {
				break
			}
		}
	}
	return x, nil
}

// JointUnion returns the union of all k sets implied by the fitted regions.
func JointUnion(regions []float64) float64 {
	var sum float64
	for _, r := range regions[1:] {
		sum += r
	}
	return sum
}
