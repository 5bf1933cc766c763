package hybridhll

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// Fixed seeds mixed with the test name so every test gets its own stream.
const (
	testSeed1 = 0x9E3779B97F4A7C15
	testSeed2 = 0xD1B54A32D192ED03
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return rand.New(rand.NewPCG(testSeed1^s1, testSeed2^s2))
}

// fillFromRNG fills buf with pseudo-random bytes from rng.
func fillFromRNG(rng *rand.Rand, buf []byte) {
	for i := 0; i+8 <= len(buf); i += 8 {
		binary.LittleEndian.PutUint64(buf[i:], rng.Uint64())
	}
	if tail := len(buf) % 8; tail > 0 {
		v := rng.Uint64()
		start := len(buf) - tail
		for j := range tail {
			buf[start+j] = byte(v >> (j * 8))
		}
	}
}

// generateRandomKeys creates n deterministic pseudo-random keys of the
// given size.
func generateRandomKeys(rng *rand.Rand, n, keySize int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = make([]byte, keySize)
		fillFromRNG(rng, keys[i])
	}
	return keys
}

// mustNew builds a sketch or fails the test.
func mustNew(t testing.TB, opts ...Option) *Sketch {
	t.Helper()
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

// insertRange inserts the integers [lo, hi).
func insertRange(s *Sketch, lo, hi uint64) {
	for v := lo; v < hi; v++ {
		s.InsertUint64(v)
	}
}

// stdError is the HyperLogLog standard error at precision p.
func stdError(p uint8) float64 {
	return 1.04 / math.Sqrt(float64(uint64(1)<<p))
}
