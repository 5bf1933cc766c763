package hybridhll

import (
	"fmt"

	"github.com/rs/zerolog"

	hllerrors "github.com/tamirms/hybridhll/errors"
	"github.com/tamirms/hybridhll/internal/codec"
	"github.com/tamirms/hybridhll/internal/estimator"
	"github.com/tamirms/hybridhll/internal/registers"
)

// Defaults used when no option overrides them.
const (
	DefaultPrecision uint8 = 14
	DefaultBits      uint8 = 6
)

// RegistersKind selects the dense register storage strategy.
type RegistersKind = registers.Kind

const (
	// RegistersPacked packs floor(64/bits) registers per 64-bit word.
	RegistersPacked = registers.KindPacked

	// RegistersPlain stores one register per byte.
	RegistersPlain = registers.KindPlain
)

// EstimatorKind selects the cardinality estimator.
type EstimatorKind = estimator.Kind

const (
	// EstimatorHLLPP is the bias-corrected HyperLogLog++ estimator.
	EstimatorHLLPP = estimator.KindHLLPP

	// EstimatorErtl is Ertl's improved histogram estimator.
	EstimatorErtl = estimator.KindErtl

	// EstimatorMLE answers pairwise queries with the joint Venn-region fit.
	// Its union estimates depend on argument order.
	EstimatorMLE = estimator.KindMLE
)

// ParseEstimator parses "hllpp", "ertl" or "mle".
func ParseEstimator(name string) (EstimatorKind, error) {
	return estimator.ParseKind(name)
}

// ParseRegisters parses "packed" or "plain".
func ParseRegisters(name string) (RegistersKind, error) {
	for _, k := range []RegistersKind{RegistersPacked, RegistersPlain} {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", hllerrors.ErrUnsupportedRegisters, name)
}

// Option is a functional option for configuring sketches and builds.
type Option func(*config)

type config struct {
	precision uint8
	bits      uint8
	hasher    Hasher
	registers RegistersKind
	estimator EstimatorKind
	workers   int
	logger    zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		precision: DefaultPrecision,
		bits:      DefaultBits,
		hasher:    XXHash64,
		registers: RegistersPacked,
		estimator: EstimatorHLLPP,
		workers:   1,
		logger:    zerolog.Nop(),
	}
}

func newConfig(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	if err := estimator.CheckPrecision(c.precision); err != nil {
		return err
	}
	switch c.bits {
	case 4, 5, 6, 8:
	default:
		return fmt.Errorf("%w: got %d", hllerrors.ErrUnsupportedBits, c.bits)
	}
	if codec.SmallestViableWidth(c.precision, c.bits) == 0 {
		return fmt.Errorf("%w: precision %d + bits %d", hllerrors.ErrWordBudgetExceeded, c.precision, c.bits)
	}
	if c.hasher == nil {
		return hllerrors.ErrNilHasher
	}
	switch c.registers {
	case RegistersPacked, RegistersPlain:
	default:
		return fmt.Errorf("%w: kind %d", hllerrors.ErrUnsupportedRegisters, c.registers)
	}
	switch c.estimator {
	case EstimatorHLLPP, EstimatorErtl, EstimatorMLE:
	default:
		return fmt.Errorf("%w: kind %d", hllerrors.ErrUnsupportedEstimator, c.estimator)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return nil
}

// WithPrecision sets the precision P in [4, 18]; the sketch has 2^P registers.
func WithPrecision(p uint8) Option {
	return func(c *config) {
		c.precision = p
	}
}

// WithBits sets the register width, one of 4, 5, 6 or 8.
func WithBits(b uint8) Option {
	return func(c *config) {
		c.bits = b
	}
}

// WithHasher sets the 64-bit hash function applied to inserted elements.
// Sketches combined in unions and merges must share a hasher.
func WithHasher(h Hasher) Option {
	return func(c *config) {
		c.hasher = h
	}
}

// WithRegisters sets the dense register storage strategy.
func WithRegisters(k RegistersKind) Option {
	return func(c *config) {
		c.registers = k
	}
}

// WithEstimator sets the cardinality estimator.
func WithEstimator(k EstimatorKind) Option {
	return func(c *config) {
		c.estimator = k
	}
}

// WithWorkers sets the number of goroutines used by BuildParallel.
// Values below 1 mean one worker.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithLogger sets the logger used by BuildParallel. Sketch operations never
// log.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
