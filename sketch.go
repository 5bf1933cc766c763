package hybridhll

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mitchellh/hashstructure/v2"

	hllerrors "github.com/tamirms/hybridhll/errors"
	intbits "github.com/tamirms/hybridhll/internal/bits"
	"github.com/tamirms/hybridhll/internal/codec"
	"github.com/tamirms/hybridhll/internal/gapcodec"
	"github.com/tamirms/hybridhll/internal/hashlist"
	"github.com/tamirms/hybridhll/internal/registers"
)

// Sketch is a hybrid HyperLogLog++ cardinality sketch.
//
// A new sketch stores a sorted list of composite hashes, which counts small
// cardinalities exactly (up to hash collisions). When the list would outgrow
// the memory of the dense register array even at its narrowest word width,
// the sketch converts itself to that array for good.
//
// A Sketch is not safe for concurrent use. Build independent sketches per
// goroutine and combine them with Merge.
type Sketch struct {
	cfg         *config
	codec       codec.Codec
	maxRegister uint8
	budget      int
	state       representation
}

// representation is either *hashListState or *denseState.
type representation interface {
	clone() representation
}

type hashListState struct {
	store *hashlist.Store
}

func (st *hashListState) clone() representation {
	return &hashListState{store: st.store.Clone()}
}

type denseState struct {
	regs registers.Registers
	// floor is the exact hash-list cardinality at conversion. Dense
	// estimates never report less.
	floor float64
}

func (st *denseState) clone() representation {
	return &denseState{regs: st.regs.Clone(), floor: st.floor}
}

// New creates an empty sketch.
func New(opts ...Option) (*Sketch, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return newSketch(cfg), nil
}

func newSketch(cfg *config) *Sketch {
	c := codec.New(cfg.precision, cfg.bits)
	budget := registers.SizeInBytes(cfg.registers, cfg.precision, cfg.bits)
	return &Sketch{
		cfg:         cfg,
		codec:       c,
		maxRegister: c.MaxRegister(),
		budget:      budget,
		state:       &hashListState{store: hashlist.New(c, budget)},
	}
}

// Precision returns P; the sketch has 2^P registers.
func (s *Sketch) Precision() uint8 { return s.cfg.precision }

// Bits returns the register width.
func (s *Sketch) Bits() uint8 { return s.cfg.bits }

// Hasher returns the element hash function.
func (s *Sketch) Hasher() Hasher { return s.cfg.hasher }

// Estimator returns the configured estimator.
func (s *Sketch) Estimator() EstimatorKind { return s.cfg.estimator }

// Registers returns the dense storage strategy.
func (s *Sketch) Registers() RegistersKind { return s.cfg.registers }

// Hash returns the hash of element under the sketch's hasher.
func (s *Sketch) Hash(element []byte) uint64 { return s.cfg.hasher.Sum64(element) }

// Insert adds element.
func (s *Sketch) Insert(element []byte) { s.InsertHash(s.cfg.hasher.Sum64(element)) }

// InsertString adds s as an element.
func (s *Sketch) InsertString(v string) { s.InsertHash(s.cfg.hasher.Sum64String(v)) }

// InsertUint64 adds the 8-byte little-endian encoding of v as an element.
func (s *Sketch) InsertUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	s.Insert(buf[:])
}

// InsertValue hashes an arbitrary value, including structs, maps and slices,
// with the sketch's hasher and adds it.
func (s *Sketch) InsertValue(v any) error {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, &hashstructure.HashOptions{
		Hasher: s.cfg.hasher.New(),
	})
	if err != nil {
		return fmt.Errorf("hashing value: %w", err)
	}
	s.InsertHash(h)
	return nil
}

// InsertHash adds an element by its precomputed 64-bit hash.
func (s *Sketch) InsertHash(h uint64) {
	index, register, residual := intbits.IndexAndRegister(h, s.cfg.precision, s.maxRegister)
	switch st := s.state.(type) {
	case *hashListState:
		s.insertHashList(st, index, register, residual)
	case *denseState:
		st.regs.SetGreater(index, register)
	}
}

// insertHashList runs the hash-list state machine: insert at the current
// width, narrow the whole list on a downgradable saturation and retry, and
// convert to registers on a final saturation.
func (s *Sketch) insertHashList(st *hashListState, index uint32, register uint8, residual uint64) {
	for {
		_, err := st.store.Insert(index, register, residual)
		switch {
		case err == nil:
			return
		case errors.Is(err, hllerrors.ErrDowngradableSaturation):
			st.store.Downgrade()
		default:
			dense := s.dehybridize(st)
			dense.regs.SetGreater(index, register)
			return
		}
	}
}

// dehybridize replays every stored hash into a fresh register array and makes
// it the live representation.
func (s *Sketch) dehybridize(st *hashListState) *denseState {
	regs := s.newRegisters(s.cfg.registers)
	st.store.Each(func(register uint8, index uint32) {
		regs.SetGreater(index, register)
	})
	dense := &denseState{regs: regs, floor: float64(st.store.Cardinality())}
	s.state = dense
	return dense
}

func (s *Sketch) newRegisters(kind RegistersKind) registers.Registers {
	regs, err := registers.New(kind, s.cfg.precision, s.cfg.bits)
	if err != nil {
		// The configuration was validated at construction.
		panic(err)
	}
	return regs
}

// registerView returns the sketch as registers: the live array in dense
// mode, or a fresh array of the given kind built from the hash list.
func (s *Sketch) registerView(kind RegistersKind) registers.Registers {
	switch st := s.state.(type) {
	case *denseState:
		return st.regs
	case *hashListState:
		regs := s.newRegisters(kind)
		st.store.Each(func(register uint8, index uint32) {
			regs.SetGreater(index, register)
		})
		return regs
	}
	panic("hybridhll: unknown representation")
}

// Clear removes every element. A dense sketch stays dense.
func (s *Sketch) Clear() {
	switch st := s.state.(type) {
	case *hashListState:
		st.store.Reset()
	case *denseState:
		st.regs.Reset()
		st.floor = 0
	}
}

// IsEmpty reports whether nothing has been inserted since creation or the
// last Clear.
func (s *Sketch) IsEmpty() bool {
	switch st := s.state.(type) {
	case *hashListState:
		return st.store.Count() == 0
	case *denseState:
		_, zeros := st.regs.HarmonicSumAndZeros(st.regs)
		return zeros == st.regs.Len()
	}
	return true
}

// MayContain reports whether element may have been inserted. There are no
// false negatives; false positives grow with the cardinality.
func (s *Sketch) MayContain(element []byte) bool {
	return s.MayContainHash(s.cfg.hasher.Sum64(element))
}

// MayContainString is MayContain for a string element.
func (s *Sketch) MayContainString(v string) bool {
	return s.MayContainHash(s.cfg.hasher.Sum64String(v))
}

// MayContainHash is MayContain for a precomputed hash.
func (s *Sketch) MayContainHash(h uint64) bool {
	index, register, residual := intbits.IndexAndRegister(h, s.cfg.precision, s.maxRegister)
	switch st := s.state.(type) {
	case *hashListState:
		return st.store.Contains(index, register, residual)
	case *denseState:
		return st.regs.Get(index) >= register
	}
	return false
}

// Clone returns a deep copy.
func (s *Sketch) Clone() *Sketch {
	c := *s
	c.state = s.state.clone()
	return &c
}

// IsHashList reports whether the sketch is still in hash-list mode.
func (s *Sketch) IsHashList() bool {
	_, ok := s.state.(*hashListState)
	return ok
}

// HashWidth returns the composite hash width in bits, or 0 in dense mode.
func (s *Sketch) HashWidth() uint8 {
	if st, ok := s.state.(*hashListState); ok {
		return st.store.Width()
	}
	return 0
}

// WouldDowngrade reports whether inserting the element with hash h would
// narrow the hash list. It never changes the sketch.
func (s *Sketch) WouldDowngrade(h uint64) bool {
	st, ok := s.state.(*hashListState)
	return ok && st.store.WouldDowngrade() && !s.listContains(st, h)
}

// WouldDehybridize reports whether inserting the element with hash h would
// convert the sketch to dense mode. It never changes the sketch.
func (s *Sketch) WouldDehybridize(h uint64) bool {
	st, ok := s.state.(*hashListState)
	return ok && st.store.WouldDehybridize() && !s.listContains(st, h)
}

func (s *Sketch) listContains(st *hashListState, h uint64) bool {
	index, register, residual := intbits.IndexAndRegister(h, s.cfg.precision, s.maxRegister)
	return st.store.Contains(index, register, residual)
}

// IsUnionEstimateNonDeterministic reports whether union estimates may depend
// on argument order, which is the case for the MLE estimator only.
func (s *Sketch) IsUnionEstimateNonDeterministic() bool {
	return s.cfg.estimator == EstimatorMLE
}

// GapStats describes how well the hash list would compress under gap coding.
type GapStats = gapcodec.Stats

// GapStats returns gap-coding statistics of the hash list. ok is false in
// dense mode.
func (s *Sketch) GapStats() (stats GapStats, ok bool) {
	st, ok := s.state.(*hashListState)
	if !ok {
		return GapStats{}, false
	}
	return gapcodec.Analyze(st.store.Words(), st.store.Width()), true
}

// GapStream is a gap-coded copy of a hash list.
type GapStream = gapcodec.Stream

// CompressHashList gap-codes the hash list with whichever of Rice and gamma
// codes is smaller. It fails with ErrNotHashList in dense mode.
func (s *Sketch) CompressHashList() (GapStream, error) {
	st, ok := s.state.(*hashListState)
	if !ok {
		return GapStream{}, hllerrors.ErrNotHashList
	}
	return gapcodec.Compress(st.store.Words(), st.store.Width())
}

// HashListMeta returns the hash-list bookkeeping packed into one 63-bit
// word: width-8, duplicates, write cursor and count. ok is false in dense
// mode.
func (s *Sketch) HashListMeta() (packed uint64, ok bool) {
	st, ok := s.state.(*hashListState)
	if !ok {
		return 0, false
	}
	return st.store.Meta().Pack(), true
}

// SizeInBytes returns the memory held by the live representation.
func (s *Sketch) SizeInBytes() int {
	switch st := s.state.(type) {
	case *hashListState:
		return len(st.store.Bytes())
	case *denseState:
		return st.regs.SizeInBytes()
	}
	return 0
}

// String summarizes the sketch for logs.
func (s *Sketch) String() string {
	mode := "dense"
	if w := s.HashWidth(); w != 0 {
		mode = fmt.Sprintf("hashlist/%d", w)
	}
	return fmt.Sprintf("hybridhll(P=%d B=%d %s %s estimate=%.1f)",
		s.cfg.precision, s.cfg.bits, s.cfg.hasher.Name(), mode, s.EstimateCardinality())
}

// compatible returns ErrIncompatibleSketches unless o can be combined with s.
func (s *Sketch) compatible(o *Sketch) error {
	if s.cfg.precision != o.cfg.precision || s.cfg.bits != o.cfg.bits ||
		s.cfg.hasher.Name() != o.cfg.hasher.Name() || s.cfg.estimator != o.cfg.estimator {
		return fmt.Errorf("%w: %s vs %s", hllerrors.ErrIncompatibleSketches, s.describe(), o.describe())
	}
	return nil
}

func (s *Sketch) describe() string {
	return fmt.Sprintf("P=%d B=%d %s %s", s.cfg.precision, s.cfg.bits, s.cfg.hasher.Name(), s.cfg.estimator)
}
