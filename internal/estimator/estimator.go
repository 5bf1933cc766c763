// Package estimator turns register statistics into cardinality estimates.
//
// HLLPP is the HyperLogLog++ corrected estimate: linear counting for small
// cardinalities, the bias-corrected raw estimate above the per-precision
// threshold. Ertl is the histogram-based improved estimator. Union,
// Intersection, Difference and Jaccard derive set algebra from single and
// union estimates with clamps, and Joint fits the regions of a k-way Venn
// diagram to per-subset union estimates.
//
// All functions are pure. The bias tables are computed once per precision
// and shared read-only afterwards.
package estimator

import (
	"fmt"
	"math"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// Precision bounds.
const (
	MinPrecision = 4
	MaxPrecision = 18
)

// Kind identifies a single-sketch cardinality estimator.
type Kind uint8

const (
	// KindHLLPP is the HyperLogLog++ corrected estimate.
	KindHLLPP Kind = 0

	// KindErtl is Ertl's improved estimator over the register histogram.
	KindErtl Kind = 1

	// KindMLE fits Venn regions jointly across sketches. Single-sketch
	// estimates fall back to Ertl.
	KindMLE Kind = 2
)

// String returns the estimator name.
func (k Kind) String() string {
	switch k {
	case KindHLLPP:
		return "hllpp"
	case KindErtl:
		return "ertl"
	case KindMLE:
		return "mle"
	default:
		return "unknown"
	}
}

// ParseKind parses the names returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindHLLPP, KindErtl, KindMLE} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", hllerrors.ErrUnsupportedEstimator, s)
}

// CheckPrecision returns ErrPrecisionOutOfRange unless p is in
// [MinPrecision, MaxPrecision].
func CheckPrecision(p uint8) error {
	if p < MinPrecision || p > MaxPrecision {
		return fmt.Errorf("%w: got %d", hllerrors.ErrPrecisionOutOfRange, p)
	}
	return nil
}

// thresholds[p-4] is the largest linear-counting estimate still preferred over
// the bias-corrected raw estimate.
var thresholds = [...]float64{
	10, 20, 40, 80, 220, 400, 900, 1800, 3100,
	6500, 11500, 20000, 50000, 120000, 350000,
}

// Threshold returns the linear-counting cutoff for precision p.
func Threshold(p uint8) float64 {
	return thresholds[p-MinPrecision]
}

// Alpha returns the HyperLogLog bias constant for m registers.
func Alpha(m int) float64 {
	switch m {
	case 16:
		return 0.673
	case 32:
		return 0.697
	case 64:
		return 0.709
	default:
		return 0.7213 / (1 + 1.079/float64(m))
	}
}

// LinearCounting returns m*ln(m/zeros). zeros must be positive.
func LinearCounting(m, zeros int) float64 {
	return float64(m) * math.Log(float64(m)/float64(zeros))
}

// Raw returns the uncorrected HyperLogLog estimate alpha*m^2/harmonic.
func Raw(m int, harmonic float64) float64 {
	mf := float64(m)
	return Alpha(m) * mf * mf / harmonic
}

// HLLPP returns the HyperLogLog++ estimate for 2^p registers whose harmonic
// sum and zero count are given.
//
// The result is non-decreasing as harmonic falls and zeros falls, which is
// what register updates do: linear counting is used only while it stays at
// or below the threshold, and the corrected raw estimate is floored at the
// threshold.
func HLLPP(p uint8, harmonic float64, zeros int) float64 {
	m := 1 << p
	if zeros == m {
		return 0
	}
	threshold := Threshold(p)
	if zeros > 0 {
		if lc := LinearCounting(m, zeros); lc <= threshold {
			return lc
		}
	}
	e := Raw(m, harmonic)
	if e <= 5*float64(m) {
		e -= biasTableFor(p).Lookup(e)
	}
	return max(e, threshold)
}
