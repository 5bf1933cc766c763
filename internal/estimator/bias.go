package estimator

import (
	"math"
	"sort"
	"sync"
)

// biasCentroids is the number of (raw estimate, bias) pairs per precision.
const biasCentroids = 200

// BiasTable maps raw estimates to the bias expected near them. Raw estimates
// are strictly increasing; biases are non-negative and non-increasing, so the
// corrected estimate raw - Lookup(raw) never decreases as raw grows.
//
// The biases are derived from the Poisson model of the raw estimator, not
// measured by simulation like the published HyperLogLog++ tables.
type BiasTable struct {
	Raw  []float64
	Bias []float64
}

var biasTables [MaxPrecision - MinPrecision + 1]struct {
	once  sync.Once
	table *BiasTable
}

// biasTableFor returns the shared table for precision p, computing it on first
// use.
func biasTableFor(p uint8) *BiasTable {
	slot := &biasTables[p-MinPrecision]
	slot.once.Do(func() {
		slot.table = newBiasTable(p)
	})
	return slot.table
}

// BiasTableFor returns the read-only bias table for precision p. Callers must
// not modify it.
func BiasTableFor(p uint8) *BiasTable { return biasTableFor(p) }

// newBiasTable places centroids at evenly spaced true cardinalities in
// [0, 5m] and evaluates the expected raw estimate at each under the Poisson
// model, where the registers are independent and register j is at most k
// with probability exp(-n/m * 2^-k).
func newBiasTable(p uint8) *BiasTable {
	m := 1 << p
	maxRegister := 64 - int(p) + 1
	t := &BiasTable{
		Raw:  make([]float64, biasCentroids),
		Bias: make([]float64, biasCentroids),
	}
	for i := range biasCentroids {
		n := 5 * float64(m) * float64(i) / float64(biasCentroids-1)
		raw := Alpha(m) * float64(m) / expectedInversePow2(n/float64(m), maxRegister)
		t.Raw[i] = raw
		t.Bias[i] = raw - n
	}
	for i := 1; i < biasCentroids; i++ {
		t.Bias[i] = min(t.Bias[i], t.Bias[i-1])
	}
	for i := range t.Bias {
		t.Bias[i] = max(t.Bias[i], 0)
	}
	return t
}

// expectedInversePow2 returns E[2^-M] for a register M fed a Poisson(lambda)
// number of hashes, saturating at maxRegister.
func expectedInversePow2(lambda float64, maxRegister int) float64 {
	var sum, prev float64
	for k := 0; k <= maxRegister; k++ {
		cdf := 1.0
		if k < maxRegister {
			cdf = math.Exp(-lambda * math.Ldexp(1, -k))
		}
		sum += math.Ldexp(cdf-prev, -k)
		prev = cdf
	}
	return sum
}

// Closest returns the index of the raw-estimate centroid nearest to e. Ties
// go to the lower index.
func (t *BiasTable) Closest(e float64) int {
	i := sort.SearchFloat64s(t.Raw, e)
	switch {
	case i == 0:
		return 0
	case i == len(t.Raw):
		return len(t.Raw) - 1
	case e-t.Raw[i-1] <= t.Raw[i]-e:
		return i - 1
	default:
		return i
	}
}

// Lookup returns the bias of the centroid closest to e.
func (t *BiasTable) Lookup(e float64) float64 {
	return t.Bias[t.Closest(e)]
}
