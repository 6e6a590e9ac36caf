package schemaloop

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/schemaloop/schemaloop/types"
)

// BatchOptions bounds a batch run. Zero values mean unlimited.
type BatchOptions struct {
	// Concurrency caps simultaneous calls.
	Concurrency int
	// RPS throttles call starts per second.
	RPS float64
	// Burst is the limiter burst size; defaults to Concurrency or 1.
	Burst int
}

// BatchItem pairs one input's result with its error. Exactly one of
// Result and Err is set.
type BatchItem[T any] struct {
	Index  int
	Result *Result[T]
	Err    error
}

// RunBatch runs one extraction per conversation. Calls share no
// mutable state, so they run concurrently up to the configured bound;
// results come back indexed by input position. The first context
// cancellation stops the batch, individual call failures do not.
func RunBatch[T any](ctx context.Context, r *Runner[T], conversations [][]types.Message, opts BatchOptions) ([]BatchItem[T], error) {
	out := make([]BatchItem[T], len(conversations))

	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = opts.Concurrency
		}
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	g, ctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}

	for i, conv := range conversations {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			result, err := r.Run(ctx, conv)
			out[i] = BatchItem[T]{Index: i, Result: result, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
