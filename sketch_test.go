package hybridhll

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

func uint64Key(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

func TestNewDefaults(t *testing.T) {
	s := mustNew(t)
	assert.Equal(t, DefaultPrecision, s.Precision())
	assert.Equal(t, DefaultBits, s.Bits())
	assert.Equal(t, "xxhash64", s.Hasher().Name())
	assert.Equal(t, EstimatorHLLPP, s.Estimator())
	assert.Equal(t, RegistersPacked, s.Registers())
	assert.True(t, s.IsHashList())
	assert.True(t, s.IsEmpty())
	assert.Equal(t, uint8(32), s.HashWidth())
	assert.Zero(t, s.EstimateCardinality())
	assert.False(t, s.IsUnionEstimateNonDeterministic())
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"precision too small", WithPrecision(3), hllerrors.ErrPrecisionOutOfRange},
		{"precision too large", WithPrecision(19), hllerrors.ErrPrecisionOutOfRange},
		{"bits 7", WithBits(7), hllerrors.ErrUnsupportedBits},
		{"bits 0", WithBits(0), hllerrors.ErrUnsupportedBits},
		{"nil hasher", WithHasher(nil), hllerrors.ErrNilHasher},
		{"unknown registers", WithRegisters(RegistersKind(9)), hllerrors.ErrUnsupportedRegisters},
		{"unknown estimator", WithEstimator(EstimatorKind(9)), hllerrors.ErrUnsupportedEstimator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseKinds(t *testing.T) {
	k, err := ParseRegisters("plain")
	require.NoError(t, err)
	assert.Equal(t, RegistersPlain, k)
	_, err = ParseRegisters("sparse")
	assert.ErrorIs(t, err, hllerrors.ErrUnsupportedRegisters)

	e, err := ParseEstimator("ertl")
	require.NoError(t, err)
	assert.Equal(t, EstimatorErtl, e)
	_, err = ParseEstimator("loglog")
	assert.ErrorIs(t, err, hllerrors.ErrUnsupportedEstimator)
}

func TestSmallCardinalityIsExact(t *testing.T) {
	s := mustNew(t, WithPrecision(5), WithBits(6))
	insertRange(s, 0, 10)
	assert.True(t, s.IsHashList())
	assert.InDelta(t, 10, s.EstimateCardinality(), 10*stdError(5))
	assert.False(t, s.IsEmpty())
}

// TestHybridTransition inserts increasing integers at P=9 and checks that
// the list narrows exactly when predicted, converts exactly once and never
// reports a smaller count afterwards.
func TestHybridTransition(t *testing.T) {
	s := mustNew(t, WithPrecision(9), WithBits(6))
	conversions := 0
	widths := []uint8{s.HashWidth()}
	var lastListCount, prev float64
	for v := range uint64(3000) {
		h := s.Hash(uint64Key(v))
		wouldDowngrade := s.WouldDowngrade(h)
		wouldDehybridize := s.WouldDehybridize(h)
		wasList := s.IsHashList()
		width := s.HashWidth()

		s.InsertUint64(v)

		if wasList && !s.IsHashList() {
			conversions++
			assert.GreaterOrEqual(t, s.EstimateCardinality(), lastListCount)
		}
		require.False(t, !wasList && s.IsHashList(), "sketch returned to hash-list mode at %d", v)
		require.Equal(t, wouldDehybridize, wasList && !s.IsHashList(), "dehybridize prediction at %d", v)
		if s.IsHashList() {
			require.Equal(t, wouldDowngrade, s.HashWidth() < width, "downgrade prediction at %d", v)
			if s.HashWidth() < width {
				widths = append(widths, s.HashWidth())
			}
			lastListCount = s.EstimateCardinality()
		}

		est := s.EstimateCardinality()
		require.GreaterOrEqual(t, est, prev, "estimate decreased at %d", v)
		prev = est
	}
	assert.Equal(t, 1, conversions)
	assert.Equal(t, []uint8{32, 24, 16}, widths)
	assert.Zero(t, s.HashWidth())
	assert.InEpsilon(t, 3000, s.EstimateCardinality(), 4*stdError(9))
}

func TestEstimateIsMonotone(t *testing.T) {
	tests := []struct {
		precision uint8
		bits      uint8
		kind      RegistersKind
		est       EstimatorKind
	}{
		{8, 4, RegistersPacked, EstimatorHLLPP},
		{8, 5, RegistersPlain, EstimatorHLLPP},
		{10, 6, RegistersPacked, EstimatorHLLPP},
		{10, 8, RegistersPlain, EstimatorHLLPP},
		{4, 4, RegistersPacked, EstimatorErtl},
		{8, 5, RegistersPlain, EstimatorErtl},
		{12, 6, RegistersPacked, EstimatorErtl},
		{6, 8, RegistersPacked, EstimatorMLE},
		{10, 6, RegistersPlain, EstimatorMLE},
		{12, 4, RegistersPacked, EstimatorMLE},
	}
	for _, tt := range tests {
		s := mustNew(t, WithPrecision(tt.precision), WithBits(tt.bits), WithRegisters(tt.kind), WithEstimator(tt.est))
		rng := newTestRNG(t)
		var prev float64
		for i := range 20000 {
			s.InsertHash(rng.Uint64())
			est := s.EstimateCardinality()
			require.GreaterOrEqual(t, est, prev, "P=%d B=%d %s %s after %d inserts", tt.precision, tt.bits, tt.kind, tt.est, i+1)
			prev = est
		}
		assert.False(t, s.IsHashList())
	}
}

func TestMembershipIsIdempotent(t *testing.T) {
	rng := newTestRNG(t)
	for _, n := range []int{50, 5000} {
		s := mustNew(t, WithPrecision(8))
		keys := generateRandomKeys(rng, n, 16)
		for _, k := range keys {
			s.Insert(k)
		}
		est, list, width := s.EstimateCardinality(), s.IsHashList(), s.HashWidth()
		for _, k := range keys {
			require.True(t, s.MayContain(k))
			require.False(t, s.WouldDowngrade(s.Hash(k)))
			require.False(t, s.WouldDehybridize(s.Hash(k)))
			s.Insert(k)
		}
		assert.Equal(t, est, s.EstimateCardinality(), "n=%d", n)
		assert.Equal(t, list, s.IsHashList())
		assert.Equal(t, width, s.HashWidth())
	}
}

func TestMayContainString(t *testing.T) {
	s := mustNew(t, WithPrecision(10))
	s.InsertString("alpha")
	assert.True(t, s.MayContainString("alpha"))
	assert.True(t, s.MayContain([]byte("alpha")))
	assert.False(t, s.MayContainString("beta"))
}

func TestAccuracy(t *testing.T) {
	for _, est := range []EstimatorKind{EstimatorHLLPP, EstimatorErtl} {
		for _, p := range []uint8{10, 12, 14} {
			rng := newTestRNG(t)
			s := mustNew(t, WithPrecision(p), WithEstimator(est))
			const n = 50000
			for range n {
				s.InsertHash(rng.Uint64())
			}
			assert.InEpsilon(t, n, s.EstimateCardinality(), 4*stdError(p), "%s P=%d", est, p)
		}
	}
}

func TestPackedAndPlainAgree(t *testing.T) {
	rng := newTestRNG(t)
	packed := mustNew(t, WithPrecision(11), WithRegisters(RegistersPacked))
	plain := mustNew(t, WithPrecision(11), WithRegisters(RegistersPlain))
	for range 30000 {
		h := rng.Uint64()
		packed.InsertHash(h)
		plain.InsertHash(h)
	}
	require.False(t, packed.IsHashList())
	require.False(t, plain.IsHashList())
	assert.Equal(t, packed.EstimateCardinality(), plain.EstimateCardinality())
	assert.Less(t, packed.SizeInBytes(), plain.SizeInBytes())
}

func TestClearKeepsMode(t *testing.T) {
	list := mustNew(t, WithPrecision(8))
	insertRange(list, 0, 20)
	list.Clear()
	assert.True(t, list.IsHashList())
	assert.True(t, list.IsEmpty())
	assert.Equal(t, uint8(32), list.HashWidth())
	assert.Zero(t, list.EstimateCardinality())

	dense := mustNew(t, WithPrecision(8))
	insertRange(dense, 0, 5000)
	require.False(t, dense.IsHashList())
	dense.Clear()
	assert.False(t, dense.IsHashList())
	assert.True(t, dense.IsEmpty())
	assert.Zero(t, dense.EstimateCardinality())

	insertRange(dense, 0, 3)
	assert.False(t, dense.IsEmpty())
	assert.InDelta(t, 3, dense.EstimateCardinality(), 1.1)
}

func TestCloneIsIndependent(t *testing.T) {
	for _, n := range []uint64{30, 5000} {
		s := mustNew(t, WithPrecision(8))
		insertRange(s, 0, n)
		before := s.EstimateCardinality()
		c := s.Clone()
		assert.Equal(t, before, c.EstimateCardinality())
		assert.Equal(t, s.IsHashList(), c.IsHashList())

		insertRange(c, n, 3*n)
		assert.Greater(t, c.EstimateCardinality(), before)
		assert.Equal(t, before, s.EstimateCardinality(), "n=%d", n)
	}
}

func TestInsertValue(t *testing.T) {
	type visit struct {
		User string
		Path string
		Tags []string
	}
	for _, h := range Hashers() {
		s := mustNew(t, WithHasher(h))
		require.NoError(t, s.InsertValue(visit{"ann", "/", []string{"a"}}))
		require.NoError(t, s.InsertValue(visit{"ann", "/", []string{"a"}}))
		require.NoError(t, s.InsertValue(visit{"bob", "/", nil}))
		require.NoError(t, s.InsertValue(map[string]int{"x": 1}))
		assert.Equal(t, float64(3), s.EstimateCardinality(), h.Name())
	}
}

func TestGapStats(t *testing.T) {
	s := mustNew(t, WithPrecision(12))
	insertRange(s, 0, 500)
	st, ok := s.GapStats()
	require.True(t, ok)
	assert.Equal(t, 500, st.Count)
	assert.Equal(t, s.HashWidth(), st.Width)
	assert.Less(t, st.RiceBits, st.RawBits)

	meta, ok := s.HashListMeta()
	require.True(t, ok)
	assert.Equal(t, uint64(500), meta&(1<<20-1))

	stream, err := s.CompressHashList()
	require.NoError(t, err)
	assert.Equal(t, 500, stream.Count)
	assert.Equal(t, st.Width, stream.Width)
	assert.Equal(t, (min(st.RiceBits, st.GammaBits)+7)/8, len(stream.Data))
	words, err := stream.Words()
	require.NoError(t, err)
	assert.Len(t, words, 500)

	insertRange(s, 500, 20000)
	_, ok = s.GapStats()
	assert.False(t, ok)
	_, ok = s.HashListMeta()
	assert.False(t, ok)
	_, err = s.CompressHashList()
	assert.ErrorIs(t, err, hllerrors.ErrNotHashList)
}

func TestString(t *testing.T) {
	s := mustNew(t, WithPrecision(8))
	insertRange(s, 0, 3)
	assert.Equal(t, "hybridhll(P=8 B=6 xxhash64 hashlist/32 estimate=3.0)", s.String())
}
