package hybridhll

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// buildBatchSize is the number of items handed to a worker at a time.
	buildBatchSize = 4096

	// workChanBufferMultiplier is the multiplier for the work channel buffer size.
	workChanBufferMultiplier = 2

	// contextCheckInterval is how often a sequential build checks for
	// cancellation.
	contextCheckInterval = 10000
)

// BuildParallel builds one sketch over items using WithWorkers goroutines.
//
// Each worker fills its own sketch from contiguous batches; the shards are
// merged at the end, so the result has the same registers as a sequential
// build once it is dense. Cancelling ctx stops the build and returns the
// context error.
func BuildParallel(ctx context.Context, items [][]byte, opts ...Option) (*Sketch, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batches := (len(items) + buildBatchSize - 1) / buildBatchSize
	workers := max(1, min(cfg.workers, batches))
	log := cfg.logger.With().
		Str("component", "build").
		Int("workers", workers).
		Int("items", len(items)).
		Logger()
	start := time.Now()

	if workers == 1 {
		s := newSketch(cfg)
		for i, item := range items {
			if i%contextCheckInterval == contextCheckInterval-1 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			s.Insert(item)
		}
		log.Debug().Dur("elapsed", time.Since(start)).Stringer("sketch", s).Msg("sequential build done")
		return s, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	work := make(chan [][]byte, workers*workChanBufferMultiplier)
	shards := make([]*Sketch, workers)
	for w := range workers {
		shard := newSketch(cfg)
		shards[w] = shard
		g.Go(func() error {
			n := 0
			for batch := range work {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				for _, item := range batch {
					shard.Insert(item)
				}
				n += len(batch)
			}
			log.Debug().Int("shard", w).Int("inserted", n).Bool("hashlist", shard.IsHashList()).Msg("shard done")
			return nil
		})
	}
	g.Go(func() error {
		defer close(work)
		for lo := 0; lo < len(items); lo += buildBatchSize {
			batch := items[lo:min(lo+buildBatchSize, len(items))]
			select {
			case work <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parallel build: %w", err)
	}

	result := shards[0]
	for _, shard := range shards[1:] {
		if err := result.Merge(shard); err != nil {
			return nil, err
		}
	}
	log.Debug().Dur("elapsed", time.Since(start)).Stringer("sketch", result).Msg("parallel build done")
	return result, nil
}
