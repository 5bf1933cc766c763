package estimator

import (
	"fmt"
	"maps"
	"math"
	"math/bits"
	"slices"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

const (
	mleMaxSweeps = 500
	mleTolerance = 1e-6
	mleHalvings  = 40

	// mleGainSlack is the per-register likelihood loss still accepted as
	// rounding noise.
	mleGainSlack = 1e-13

	// mleStartFloor keeps every region rate positive at the start, so every
	// observed tuple has non-zero likelihood.
	mleStartFloor = 0.5

	// mleLogFloor stands in for log(q) when rounding drives a tuple
	// probability to zero or below.
	mleLogFloor = -745.0
)

// RegisterTuple is one combination of values that a register index holds
// across k sketches, with the number of indexes holding it.
type RegisterTuple struct {
	Values [MaxJointSets]uint8
	Count  int
}

// JointTuples groups the m register indexes of k arrays by their value
// tuple (get(0, i), ..., get(k-1, i)). The result is sorted by value.
func JointTuples(k, m int, get func(set int, i uint32) uint8) []RegisterTuple {
	counts := make(map[uint64]int)
	for i := range m {
		var key uint64
		for j := range k {
			key |= uint64(get(j, uint32(i))) << (8 * j)
		}
		counts[key]++
	}
	keys := slices.Sorted(maps.Keys(counts))
	tuples := make([]RegisterTuple, len(keys))
	for n, key := range keys {
		for j := range k {
			tuples[n].Values[j] = uint8(key >> (8 * j))
		}
		tuples[n].Count = counts[key]
	}
	return tuples
}

// JointMLE fits the 2^k-1 exclusive regions of a k-set Venn diagram by
// maximum likelihood over the joint register values of all k sketches.
//
// Under the Poisson model each region S puts λ_S = n_S/m elements into
// every register on average, and the largest value region S contributes to
// a register is at most y with probability exp(-λ_S 2^-y), or 1 once y
// reaches maxRegister. Register j of the tuple is the max over the regions
// containing set j, so
//
//	P(a <= r) = exp(-Σ_S λ_S 2^-min_{j∈S} r_j)
//
// and the probability of an exact tuple follows by inclusion-exclusion over
// the 2^k corners below it. The log-likelihood is maximized by cyclic
// coordinate Newton steps with step halving, starting from start (indexed by
// region mask, in elements).
//
// The result is indexed like start, in elements, with regions[0] = 0.
func JointMLE(tuples []RegisterTuple, k, m int, maxRegister uint8, start []float64) ([]float64, error) {
	if k < MinJointSets || k > MaxJointSets || len(start) != 1<<k {
		return nil, fmt.Errorf("%w: %d sets with %d start regions", hllerrors.ErrSketchCount, k, len(start))
	}
	n := 1 << k
	regions := make([]float64, n)

	observed := false
	for _, t := range tuples {
		for j := range k {
			observed = observed || t.Values[j] != 0
		}
	}
	if !observed || m == 0 {
		return regions, nil
	}

	mf := float64(m)
	lambda := make([]float64, n)
	for s := 1; s < n; s++ {
		lambda[s] = max(start[s], mleStartFloor) / mf
	}

	jm := newJointModel(tuples, k, maxRegister, lambda)
	for range mleMaxSweeps {
		var moved, total float64
		for s := 1; s < n; s++ {
			moved = max(moved, math.Abs(jm.step(s, lambda)))
			total += lambda[s]
		}
		if moved <= mleTolerance*max(total, 1/mf) {
			break
		}
	}

	for s := 1; s < n; s++ {
		regions[s] = lambda[s] * mf
	}
	return regions, nil
}

// jointModel caches, per tuple, the exponent E_D = Σ_S λ_S c_S(r - 1_D) of
// every corner D and the tuple's log-probability.
type jointModel struct {
	k, n        int
	maxRegister uint8
	tuples      []RegisterTuple
	zeros       []int // bit j set when set j's value is 0
	exps        [][]float64
	logP        []float64
	scratch     []float64
	nextLogP    []float64
	registers   float64
}

func newJointModel(tuples []RegisterTuple, k int, maxRegister uint8, lambda []float64) *jointModel {
	n := 1 << k
	jm := &jointModel{
		k:           k,
		n:           n,
		maxRegister: maxRegister,
		tuples:      tuples,
		zeros:       make([]int, len(tuples)),
		exps:        make([][]float64, len(tuples)),
		logP:        make([]float64, len(tuples)),
		scratch:     make([]float64, n),
		nextLogP:    make([]float64, len(tuples)),
	}
	for ti := range tuples {
		for j := range k {
			if tuples[ti].Values[j] == 0 {
				jm.zeros[ti] |= 1 << j
			}
		}
		e := make([]float64, n)
		for d := range n {
			if d&jm.zeros[ti] != 0 {
				continue
			}
			for s := 1; s < n; s++ {
				e[d] += lambda[s] * jm.cost(ti, d, s)
			}
		}
		jm.exps[ti] = e
		jm.logP[ti] = jm.logProb(ti, e)
		jm.registers += float64(tuples[ti].Count)
	}
	return jm
}

// cost returns 2^-min_{j∈S}(r_j - [j∈D]) for tuple ti, or 0 when that
// minimum reaches maxRegister.
func (jm *jointModel) cost(ti, d, s int) float64 {
	v := &jm.tuples[ti].Values
	mu := math.MaxInt
	for j := range jm.k {
		if s&(1<<j) == 0 {
			continue
		}
		x := int(v[j])
		if d&(1<<j) != 0 {
			x--
		}
		mu = min(mu, x)
	}
	if mu >= int(jm.maxRegister) {
		return 0
	}
	return math.Ldexp(1, -mu)
}

// logProb returns the log-probability of tuple ti for corner exponents e.
// The terms are scaled by exp(E_0), the largest of them.
func (jm *jointModel) logProb(ti int, e []float64) float64 {
	var q float64
	for d := range jm.n {
		if d&jm.zeros[ti] != 0 {
			continue
		}
		w := math.Exp(e[0] - e[d])
		if bits.OnesCount(uint(d))&1 == 1 {
			q -= w
		} else {
			q += w
		}
	}
	if q <= 0 {
		return -e[0] + mleLogFloor
	}
	return -e[0] + math.Log(q)
}

// step moves λ_s by one safeguarded Newton step and returns the change.
func (jm *jointModel) step(s int, lambda []float64) float64 {
	var g, h float64
	for ti := range jm.tuples {
		e := jm.exps[ti]
		var q, a1, a2 float64
		for d := range jm.n {
			if d&jm.zeros[ti] != 0 {
				continue
			}
			w := math.Exp(e[0] - e[d])
			if bits.OnesCount(uint(d))&1 == 1 {
				w = -w
			}
			c := jm.cost(ti, d, s)
			q += w
			a1 += c * w
			a2 += c * c * w
		}
		if q <= 0 {
			continue
		}
		cnt := float64(jm.tuples[ti].Count)
		r := a1 / q
		g -= cnt * r
		h += cnt * (a2/q - r*r)
	}

	cur := lambda[s]
	var delta float64
	switch {
	case h < 0:
		delta = -g / h
	case g > 0:
		delta = max(cur, 1e-3)
	case g < 0:
		delta = -cur
	}
	delta = max(delta, -cur)

	for range mleHalvings {
		if delta == 0 {
			return 0
		}
		if jm.tryStep(s, delta) {
			lambda[s] = cur + delta
			return delta
		}
		delta /= 2
	}
	return 0
}

// tryStep applies delta to λ_s if that does not lower the likelihood.
func (jm *jointModel) tryStep(s int, delta float64) bool {
	var gain float64
	for ti := range jm.tuples {
		e := jm.exps[ti]
		next := jm.scratch
		for d := range jm.n {
			if d&jm.zeros[ti] != 0 {
				continue
			}
			next[d] = e[d] + delta*jm.cost(ti, d, s)
		}
		jm.nextLogP[ti] = jm.logProb(ti, next)
		gain += float64(jm.tuples[ti].Count) * (jm.nextLogP[ti] - jm.logP[ti])
	}
	if gain < -mleGainSlack*jm.registers {
		return false
	}
	for ti := range jm.tuples {
		e := jm.exps[ti]
		for d := range jm.n {
			if d&jm.zeros[ti] != 0 {
				continue
			}
			e[d] += delta * jm.cost(ti, d, s)
		}
		jm.logP[ti] = jm.nextLogP[ti]
	}
	return true
}
