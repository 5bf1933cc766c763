package hashlist

import (
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hllerrors "github.com/tamirms/hybridhll/errors"
	intbits "github.com/tamirms/hybridhll/internal/bits"
	"github.com/tamirms/hybridhll/internal/codec"
)

func newTestRNG(t testing.TB) *rand.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	return rand.New(rand.NewPCG(binary.LittleEndian.Uint64(sum[:8]), binary.LittleEndian.Uint64(sum[8:])))
}

func insertRandom(t *testing.T, s *Store, c codec.Codec, rng *rand.Rand) error {
	t.Helper()
	index, register, residual := intbits.IndexAndRegister(rng.Uint64(), c.Precision(), c.MaxRegister())
	_, err := s.Insert(index, register, residual)
	return err
}

func TestMetaPackRoundTrip(t *testing.T) {
	rng := newTestRNG(t)
	for range 1000 {
		m := Meta{
			Width:      []uint8{8, 16, 24, 32}[rng.IntN(4)],
			Duplicates: rng.Uint32N(1 << duplicatesBits),
			Cursor:     rng.Uint32N(1 << cursorBits),
			Count:      rng.Uint32N(1 << countBits),
		}
		packed := m.Pack()
		require.Zero(t, packed>>63)
		require.Equal(t, m, UnpackMeta(packed))
	}

	extreme := Meta{Width: 32, Duplicates: 1<<duplicatesBits - 1, Cursor: 1<<cursorBits - 1, Count: 1<<countBits - 1}
	assert.Equal(t, extreme, UnpackMeta(extreme.Pack()))
}

func TestMetaPackOverflowPanics(t *testing.T) {
	assert.Panics(t, func() { Meta{Width: 32, Count: 1 << countBits}.Pack() })
	assert.Panics(t, func() { Meta{Width: 32, Cursor: 1 << cursorBits}.Pack() })
	assert.Panics(t, func() { Meta{Width: 4}.Pack() })
}

// TestStoreDowngradesThenSaturates fills a store and walks it through every
// width until it reports saturation at the smallest viable width.
func TestStoreDowngradesThenSaturates(t *testing.T) {
	rng := newTestRNG(t)
	c := codec.New(9, 6)
	s := New(c, 416)

	widths := []uint8{s.Width()}
	for {
		err := insertRandom(t, s, c, rng)
		if err == nil {
			require.True(t, s.IsStrictlyDescending())
			continue
		}
		if errors.Is(err, hllerrors.ErrDowngradableSaturation) {
			require.True(t, s.WouldDowngrade())
			before := s.Cardinality()
			widths = append(widths, s.Downgrade())
			assert.Equal(t, before, s.Cardinality(), "downgrade must not lose cardinality")
			require.True(t, s.IsStrictlyDescending())
			continue
		}
		require.ErrorIs(t, err, hllerrors.ErrSaturation)
		break
	}
	assert.Equal(t, []uint8{32, 24, 16}, widths)
	assert.True(t, s.WouldDehybridize())
	assert.False(t, s.WouldDowngrade())
	assert.LessOrEqual(t, len(s.Bytes()), s.Budget())
	assert.Equal(t, 416/2, s.Count())
}

func TestStoreDuplicateNotCounted(t *testing.T) {
	c := codec.New(8, 6)
	s := New(c, 256)
	ok, err := s.Insert(3, 2, 0x5<<60)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Insert(3, 2, 0x5<<60)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Count())
	assert.True(t, s.Contains(3, 2, 0x5<<60))
	assert.False(t, s.Contains(3, 2, 0x6<<60))
}

func TestStoreInsertWordMatchesInsert(t *testing.T) {
	rng := newTestRNG(t)
	c := codec.New(10, 6)
	a := New(c, 832)
	b := New(c, 832)
	for range 100 {
		index, register, residual := intbits.IndexAndRegister(rng.Uint64(), 10, c.MaxRegister())
		_, err := a.Insert(index, register, residual)
		require.NoError(t, err)
		_, err = b.InsertWord(c.Encode(index, register, residual, b.Width()))
		require.NoError(t, err)
	}
	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Equal(t, a.Meta(), b.Meta())
}

func TestStoreCloneIsDeep(t *testing.T) {
	c := codec.New(8, 6)
	s := New(c, 256)
	_, err := s.Insert(1, 1, 0)
	require.NoError(t, err)
	clone := s.Clone()
	_, err = s.Insert(2, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, clone.Count())
	assert.Equal(t, 2, s.Count())
}

func TestStoreReset(t *testing.T) {
	c := codec.New(8, 6)
	s := New(c, 256)
	_, err := s.Insert(1, 1, 0)
	require.NoError(t, err)
	s.Downgrade()
	s.Reset()
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, codec.Width32, s.Width())
	assert.Empty(t, s.Bytes())
}

func TestStoreEachDecodesAll(t *testing.T) {
	c := codec.New(6, 6)
	s := New(c, 64)
	want := map[uint32]uint8{5: 3, 9: 1, 63: 7}
	for idx, reg := range want {
		_, err := s.Insert(idx, reg, 0)
		require.NoError(t, err)
	}
	got := map[uint32]uint8{}
	var order []uint32
	s.Each(func(register uint8, index uint32) {
		got[index] = register
		order = append(order, index)
	})
	assert.Equal(t, want, got)
	assert.Equal(t, []uint32{63, 9, 5}, order)
}
