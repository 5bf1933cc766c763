// Package errors defines all exported error sentinels for the hybridhll library.
//
// This is the single source of truth for error values. Both the top-level
// hybridhll package and the internal codec, estimator and engine packages
// import from here, ensuring errors.Is checks work across package boundaries.
package errors

import "errors"

// Hash-list control flow. These never escape a Sketch: the hybrid state
// machine consumes them to decide between downgrading and dehybridizing.
var (
	ErrSaturation             = errors.New("hybridhll: hash list is saturated at its smallest viable width")
	ErrDowngradableSaturation = errors.New("hybridhll: hash list is full but can be downgraded to a narrower width")
)

// Construction errors
var (
	ErrPrecisionOutOfRange  = errors.New("hybridhll: precision must be in [4, 18]")
	ErrUnsupportedBits      = errors.New("hybridhll: register bits must be one of 4, 5, 6, 8")
	ErrUnsupportedRegisters = errors.New("hybridhll: unknown register storage strategy")
	ErrUnsupportedEstimator = errors.New("hybridhll: unknown cardinality estimator")
	ErrNilHasher            = errors.New("hybridhll: hasher must not be nil")
	ErrUnknownHasher        = errors.New("hybridhll: unknown hasher")
	ErrWordBudgetExceeded   = errors.New("hybridhll: precision plus register bits exceed the composite hash word")
)

// Multi-sketch errors
var (
	ErrIncompatibleSketches = errors.New("hybridhll: sketches have different precision, bits, hasher or estimator")
	ErrSketchCount          = errors.New("hybridhll: joint estimation needs between 2 and 6 sketches")
	ErrFamilyEmpty          = errors.New("hybridhll: sketch family must not be empty")
)

// Gap stream errors
var (
	ErrGapStreamTruncated = errors.New("hybridhll: gap stream ended before all words were decoded")
	ErrGapStreamOverflow  = errors.New("hybridhll: gap stream decodes past the word width")
	ErrGapStreamMismatch  = errors.New("hybridhll: gap stream does not decode to the coded words")
	ErrNotHashList        = errors.New("hybridhll: sketch is in dense mode")
)
