package classifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchOptions controls how many jobs are classified at once and how often a
// new window may start.
type BatchOptions struct {
	Size  int
	Pause time.Duration
}

func DefaultBatchOptions() BatchOptions {
	return BatchOptions{Size: 5, Pause: 500 * time.Millisecond}
}

// ClassifyBatch classifies jobs in windows of opts.Size concurrent requests.
// Results are aligned with reqs. Under DegradeOnError every job gets a result;
// under SurfaceOnError the first failure cancels the rest.
func (c *Classifier) ClassifyBatch(ctx context.Context, reqs []Request, opts BatchOptions) ([]*Result, error) {
	if opts.Size < 1 {
		opts.Size = 1
	}

	var limiter *rate.Limiter
	if opts.Pause > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Pause), 1)
	}

	results := make([]*Result, len(reqs))

	for start := 0; start < len(reqs); start += opts.Size {
		end := min(start+opts.Size, len(reqs))

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting for batch window: %w", err)
			}
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				result, err := c.Classify(gctx, reqs[i])
				if err != nil {
					return fmt.Errorf("job %d: %w", i, err)
				}
				results[i] = result
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}

		c.logger.Debug("classified batch window",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(reqs)),
		)
	}

	return results, nil
}
