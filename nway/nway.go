// Package nway computes exclusive overlap and difference matrices between two
// ordered families of nested sets, from pairwise intersection estimates.
//
// Families are expected to grow: left[i] ⊆ left[i+1] and likewise on the
// right. Cell (i, j) of the overlap matrix counts the elements added by
// left[i] over left[i-1] that are also added by right[j] over right[j-1].
// The engine only needs cardinalities and pairwise intersections, so it runs
// unchanged on exact sets and on sketches.
package nway

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	hllerrors "github.com/tamirms/hybridhll/errors"
)

// SetLike is a set, exact or approximate, that can estimate its cardinality
// and its intersection with another set of the same type.
type SetLike[S any] interface {
	EstimateCardinality() float64
	EstimateIntersectionCardinality(other S) (float64, error)
}

// Result holds the differenced matrices of one comparison.
type Result struct {
	// Overlap[i][j] counts elements new in left[i] and new in right[j].
	Overlap [][]float64
	// LeftDiff[i] counts elements new in left[i] and absent from the last
	// right set.
	LeftDiff []float64
	// RightDiff[j] counts elements new in right[j] and absent from the last
	// left set.
	RightDiff []float64

	// LeftSizes and RightSizes are the estimated cardinalities of each set.
	LeftSizes  []float64
	RightSizes []float64
}

// Option configures Overlap.
type Option func(*config)

type config struct {
	workers int
	logger  zerolog.Logger
}

// WithWorkers bounds the number of intersections estimated concurrently.
// The default is GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Overlap computes the overlap and difference matrices of two families.
//
// Every pairwise intersection |left[i] ∩ right[j]| is estimated once, on a
// bounded pool of goroutines. Differencing the intersection matrix along
// both axes yields Overlap; differencing |left[i]| - |left[i] ∩ right[R-1]|
// yields LeftDiff, and symmetrically RightDiff. Cells that estimation noise
// would make negative are clamped to zero.
func Overlap[S SetLike[S]](ctx context.Context, left, right []S, opts ...Option) (*Result, error) {
	if len(left) == 0 || len(right) == 0 {
		return nil, fmt.Errorf("%w: %d left, %d right", hllerrors.ErrFamilyEmpty, len(left), len(right))
	}
	cfg := &config{workers: runtime.GOMAXPROCS(0), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.workers = max(1, cfg.workers)

	inter, err := intersections(ctx, cfg, left, right)
	if err != nil {
		return nil, err
	}

	nl, nr := len(left), len(right)
	res := &Result{
		Overlap:    make([][]float64, nl),
		LeftDiff:   make([]float64, nl),
		RightDiff:  make([]float64, nr),
		LeftSizes:  make([]float64, nl),
		RightSizes: make([]float64, nr),
	}
	for i, s := range left {
		res.LeftSizes[i] = s.EstimateCardinality()
	}
	for j, s := range right {
		res.RightSizes[j] = s.EstimateCardinality()
	}

	at := func(i, j int) float64 {
		if i < 0 || j < 0 {
			return 0
		}
		return inter[i][j]
	}
	for i := range nl {
		res.Overlap[i] = make([]float64, nr)
		for j := range nr {
			cell := at(i, j) - at(i-1, j) - at(i, j-1) + at(i-1, j-1)
			res.Overlap[i][j] = max(0, cell)
		}
	}

	// Elements of left[i] outside the last right set, then their increments.
	var prev float64
	for i := range nl {
		outside := res.LeftSizes[i] - inter[i][nr-1]
		res.LeftDiff[i] = max(0, outside-prev)
		prev = outside
	}
	prev = 0
	for j := range nr {
		outside := res.RightSizes[j] - inter[nl-1][j]
		res.RightDiff[j] = max(0, outside-prev)
		prev = outside
	}

	cfg.logger.Debug().Int("left", nl).Int("right", nr).Msg("overlap computed")
	return res, nil
}

// intersections estimates the full |left| x |right| intersection matrix.
func intersections[S SetLike[S]](ctx context.Context, cfg *config, left, right []S) ([][]float64, error) {
	inter := make([][]float64, len(left))
	for i := range inter {
		inter[i] = make([]float64, len(right))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i := range left {
		for j := range right {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				v, err := left[i].EstimateIntersectionCardinality(right[j])
				if err != nil {
					return fmt.Errorf("left %d, right %d: %w", i, j, err)
				}
				inter[i][j] = v
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancellation that stopped scheduling before any task saw it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return inter, nil
}

// Normalized returns a copy of r with every cell divided by the largest value
// it could take given the set sizes, clamped to [0, 1]. An overlap cell is
// bounded by the smaller of its two increments, a difference cell by its own
// increment. Cells with an empty increment are zero.
func (r *Result) Normalized() *Result {
	nl, nr := len(r.LeftSizes), len(r.RightSizes)
	dl := increments(r.LeftSizes)
	dr := increments(r.RightSizes)

	out := &Result{
		Overlap:    make([][]float64, nl),
		LeftDiff:   make([]float64, nl),
		RightDiff:  make([]float64, nr),
		LeftSizes:  append([]float64(nil), r.LeftSizes...),
		RightSizes: append([]float64(nil), r.RightSizes...),
	}
	for i := range nl {
		out.Overlap[i] = make([]float64, nr)
		for j := range nr {
			out.Overlap[i][j] = ratio(r.Overlap[i][j], min(dl[i], dr[j]))
		}
		out.LeftDiff[i] = ratio(r.LeftDiff[i], dl[i])
	}
	for j := range nr {
		out.RightDiff[j] = ratio(r.RightDiff[j], dr[j])
	}
	return out
}

func increments(sizes []float64) []float64 {
	out := make([]float64, len(sizes))
	var prev float64
	for i, s := range sizes {
		out[i] = max(0, s-prev)
		prev = s
	}
	return out
}

func ratio(v, bound float64) float64 {
	if bound <= 0 {
		return 0
	}
	return min(1, max(0, v/bound))
}
