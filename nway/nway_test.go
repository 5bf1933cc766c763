package nway_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamirms/hybridhll"
	hllerrors "github.com/tamirms/hybridhll/errors"
	"github.com/tamirms/hybridhll/exact"
	"github.com/tamirms/hybridhll/nway"
)

var (
	handLeft  = [][]uint{{1, 2, 3}, {1, 2, 3, 7}, {1, 2, 3, 4, 5, 7}}
	handRight = [][]uint{{1, 2}, {1, 2, 6, 7}, {1, 2, 3, 6, 7}}

	wantOverlap   = [][]float64{{2, 0, 1}, {0, 1, 0}, {0, 0, 0}}
	wantLeftDiff  = []float64{0, 0, 2}
	wantRightDiff = []float64{0, 1, 0}
)

func exactFamily(values [][]uint) []*exact.Set {
	out := make([]*exact.Set, len(values))
	for i, v := range values {
		out[i] = exact.New(v...)
	}
	return out
}

func sketchFamily(t *testing.T, values [][]uint, opts ...hybridhll.Option) []*hybridhll.Sketch {
	t.Helper()
	out := make([]*hybridhll.Sketch, len(values))
	for i, vs := range values {
		s, err := hybridhll.New(opts...)
		require.NoError(t, err)
		for _, v := range vs {
			s.InsertUint64(uint64(v))
		}
		out[i] = s
	}
	return out
}

func rangeFamily(bounds [][2]uint) [][]uint {
	out := make([][]uint, len(bounds))
	for i, b := range bounds {
		for v := b[0]; v < b[1]; v++ {
			out[i] = append(out[i], v)
		}
	}
	return out
}

func TestOverlapExact(t *testing.T) {
	res, err := nway.Overlap(context.Background(), exactFamily(handLeft), exactFamily(handRight))
	require.NoError(t, err)
	assert.Equal(t, wantOverlap, res.Overlap)
	assert.Equal(t, wantLeftDiff, res.LeftDiff)
	assert.Equal(t, wantRightDiff, res.RightDiff)
	assert.Equal(t, []float64{3, 4, 6}, res.LeftSizes)
	assert.Equal(t, []float64{2, 4, 5}, res.RightSizes)
}

func TestOverlapSketches(t *testing.T) {
	left := sketchFamily(t, handLeft, hybridhll.WithPrecision(8))
	right := sketchFamily(t, handRight, hybridhll.WithPrecision(8))
	res, err := nway.Overlap(context.Background(), left, right, nway.WithWorkers(2))
	require.NoError(t, err)
	for i := range wantOverlap {
		for j := range wantOverlap[i] {
			assert.InDelta(t, wantOverlap[i][j], res.Overlap[i][j], 0.5, "cell %d,%d", i, j)
		}
		assert.InDelta(t, wantLeftDiff[i], res.LeftDiff[i], 0.5, "left %d", i)
		assert.InDelta(t, wantRightDiff[i], res.RightDiff[i], 0.5, "right %d", i)
	}
}

func TestOverlapLargeFamilies(t *testing.T) {
	left := rangeFamily([][2]uint{{0, 1000}, {0, 2000}, {0, 3000}, {0, 6000}})
	right := rangeFamily([][2]uint{{500, 1500}, {500, 2500}, {500, 5000}})

	want, err := nway.Overlap(context.Background(), exactFamily(left), exactFamily(right))
	require.NoError(t, err)

	const p = 12
	got, err := nway.Overlap(context.Background(),
		sketchFamily(t, left, hybridhll.WithPrecision(p)),
		sketchFamily(t, right, hybridhll.WithPrecision(p)))
	require.NoError(t, err)

	tol := 10 * 1.04 / math.Sqrt(1<<p) * 6000
	for i := range want.Overlap {
		for j := range want.Overlap[i] {
			assert.InDelta(t, want.Overlap[i][j], got.Overlap[i][j], tol, "cell %d,%d", i, j)
			assert.GreaterOrEqual(t, got.Overlap[i][j], 0.0)
		}
		assert.InDelta(t, want.LeftDiff[i], got.LeftDiff[i], tol, "left %d", i)
	}
	for j := range want.RightDiff {
		assert.InDelta(t, want.RightDiff[j], got.RightDiff[j], tol, "right %d", j)
	}
}

func TestNormalized(t *testing.T) {
	res, err := nway.Overlap(context.Background(), exactFamily(handLeft), exactFamily(handRight))
	require.NoError(t, err)
	norm := res.Normalized()

	// Left increments are 3, 1, 2; right increments are 2, 2, 1.
	assert.Equal(t, [][]float64{{1, 0, 1}, {0, 1, 0}, {0, 0, 0}}, norm.Overlap)
	assert.Equal(t, []float64{0, 0, 1}, norm.LeftDiff)
	assert.Equal(t, []float64{0, 0.5, 0}, norm.RightDiff)
	assert.Equal(t, res.LeftSizes, norm.LeftSizes)

	// The source result is untouched.
	assert.Equal(t, wantOverlap, res.Overlap)
}

func TestNormalizedEmptyIncrement(t *testing.T) {
	left := exactFamily([][]uint{{1, 2}, {1, 2}})
	right := exactFamily([][]uint{{1, 2}})
	res, err := nway.Overlap(context.Background(), left, right)
	require.NoError(t, err)
	norm := res.Normalized()
	assert.Equal(t, [][]float64{{1}, {0}}, norm.Overlap)
	assert.Equal(t, []float64{0, 0}, norm.LeftDiff)
}

func TestOverlapErrors(t *testing.T) {
	_, err := nway.Overlap(context.Background(), nil, exactFamily(handRight))
	assert.ErrorIs(t, err, hllerrors.ErrFamilyEmpty)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = nway.Overlap(ctx, exactFamily(handLeft), exactFamily(handRight))
	assert.ErrorIs(t, err, context.Canceled)

	left := sketchFamily(t, handLeft, hybridhll.WithPrecision(8))
	right := sketchFamily(t, handRight, hybridhll.WithPrecision(9))
	_, err = nway.Overlap(context.Background(), left, right)
	assert.ErrorIs(t, err, hllerrors.ErrIncompatibleSketches)
}
