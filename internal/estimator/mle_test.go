package estimator

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// simulateJoint draws sizes[s] random hashes into every region s of a k-set
// Venn diagram and returns the registers of the k sets.
func simulateJoint(rng *rand.Rand, k int, p uint8, sizes []int) []*regs {
	sets := make([]*regs, k)
	for j := range sets {
		sets[j] = newRegs(p, 6)
	}
	for s, size := range sizes {
		for range size {
			h := rng.Uint64()
			for j := range k {
				if s&(1<<j) != 0 {
					sets[j].add(h)
				}
			}
		}
	}
	return sets
}

// inclusionExclusionStart fits regions to Ertl estimates of every subset
// union.
func inclusionExclusionStart(t *testing.T, sets []*regs) []float64 {
	t.Helper()
	k, m := len(sets), len(sets[0].values)
	unions := make([]float64, 1<<k)
	for u := 1; u < len(unions); u++ {
		hist := make([]int, 256)
		for i := range m {
			var v uint8
			for j := range k {
				if u&(1<<j) != 0 {
					v = max(v, sets[j].values[i])
				}
			}
			hist[v]++
		}
		unions[u] = Ertl(hist, m, sets[0].maxRegister)
	}
	start, err := Joint(unions)
	require.NoError(t, err)
	return start
}

func tuplesOf(sets []*regs) []RegisterTuple {
	return JointTuples(len(sets), len(sets[0].values), func(set int, i uint32) uint8 {
		return sets[set].values[i]
	})
}

func TestJointTuples(t *testing.T) {
	a := []uint8{0, 3, 0, 3, 1}
	b := []uint8{0, 2, 0, 2, 0}
	tuples := JointTuples(2, len(a), func(set int, i uint32) uint8 {
		if set == 0 {
			return a[i]
		}
		return b[i]
	})
	require.Len(t, tuples, 3)
	assert.Equal(t, [MaxJointSets]uint8{0, 0}, tuples[0].Values)
	assert.Equal(t, 2, tuples[0].Count)
	assert.Equal(t, [MaxJointSets]uint8{1, 0}, tuples[1].Values)
	assert.Equal(t, 1, tuples[1].Count)
	assert.Equal(t, [MaxJointSets]uint8{3, 2}, tuples[2].Values)
	assert.Equal(t, 2, tuples[2].Count)
}

func TestJointMLERejectsBadShapes(t *testing.T) {
	for _, tt := range []struct{ k, start int }{{1, 2}, {7, 128}, {2, 8}, {3, 4}} {
		_, err := JointMLE(nil, tt.k, 16, 55, make([]float64, tt.start))
		assert.ErrorIs(t, err, hllerrors.ErrSketchCount, "k=%d start=%d", tt.k, tt.start)
	}
}

func TestJointMLEEmpty(t *testing.T) {
	tuples := JointTuples(3, 64, func(int, uint32) uint8 { return 0 })
	regions, err := JointMLE(tuples, 3, 64, 55, []float64{0, 5, 5, 5, 5, 5, 5, 5})
	require.NoError(t, err)
	assert.Equal(t, make([]float64, 8), regions)
}

// TestJointMLERecoversRegions checks a three-set diagram with two empty
// regions.
func TestJointMLERecoversRegions(t *testing.T) {
	rng := newTestRNG(t)
	sizes := []int{0, 3000, 2000, 1000, 4000, 500, 0, 1500}
	sets := simulateJoint(rng, 3, 14, sizes)

	regions, err := JointMLE(tuplesOf(sets), 3, 1<<14, sets[0].maxRegister, inclusionExclusionStart(t, sets))
	require.NoError(t, err)
	require.Len(t, regions, 8)
	assert.Zero(t, regions[0])
	for s := 1; s < 8; s++ {
		assert.GreaterOrEqual(t, regions[s], 0.0)
		assert.InDelta(t, float64(sizes[s]), regions[s], 480, "region %03b", s)
	}
	assert.InDelta(t, 12000, JointUnion(regions), 400)
}

func TestJointMLEIsDeterministic(t *testing.T) {
	rng := newTestRNG(t)
	sets := simulateJoint(rng, 2, 10, []int{0, 700, 300, 200})
	start := inclusionExclusionStart(t, sets)

	first, err := JointMLE(tuplesOf(sets), 2, 1<<10, sets[0].maxRegister, start)
	require.NoError(t, err)
	second, err := JointMLE(tuplesOf(sets), 2, 1<<10, sets[0].maxRegister, start)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// TestJointMLEMovesOffInclusionExclusion checks the fit uses the joint
// register values: a start far from the truth still lands near it.
func TestJointMLEMovesOffInclusionExclusion(t *testing.T) {
	rng := newTestRNG(t)
	sizes := []int{0, 4000, 4000, 400}
	sets := simulateJoint(rng, 2, 14, sizes)

	regions, err := JointMLE(tuplesOf(sets), 2, 1<<14, sets[0].maxRegister, []float64{0, 2000, 2000, 3000})
	require.NoError(t, err)
	assert.InDelta(t, 400, regions[3], 250)
	assert.InDelta(t, 4000, regions[1], 300)
	assert.InDelta(t, 4000, regions[2], 300)
}
