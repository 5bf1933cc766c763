package hybridhll

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildParallelMatchesSequential(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 100000, 16)

	seq := mustNew(t, WithPrecision(12))
	for _, k := range keys {
		seq.Insert(k)
	}

	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	for _, workers := range []int{1, 3, 8} {
		logs.Reset()
		par, err := BuildParallel(context.Background(), keys,
			WithPrecision(12), WithWorkers(workers), WithLogger(logger))
		require.NoError(t, err)
		assert.False(t, par.IsHashList())
		assert.Equal(t, seq.EstimateCardinality(), par.EstimateCardinality(), "workers=%d", workers)
		assert.Contains(t, logs.String(), "build done")
	}
}

func TestBuildParallelSmallInput(t *testing.T) {
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("a")}
	s, err := BuildParallel(context.Background(), keys, WithWorkers(4))
	require.NoError(t, err)
	assert.True(t, s.IsHashList())
	assert.Equal(t, float64(3), s.EstimateCardinality())
}

func TestBuildParallelCancelled(t *testing.T) {
	rng := newTestRNG(t)
	keys := generateRandomKeys(rng, 50000, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := BuildParallel(ctx, keys, WithWorkers(workers))
		assert.ErrorIs(t, err, context.Canceled, "workers=%d", workers)
	}
}

func TestBuildParallelRejectsBadOptions(t *testing.T) {
	_, err := BuildParallel(context.Background(), nil, WithPrecision(2))
	assert.Error(t, err)
}
