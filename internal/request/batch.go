package request

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/gnacore/internal/kernel"
	"github.com/samcharles93/gnacore/internal/logger"
)

// WorkersFor caps a requested worker count to GOMAXPROCS. Zero or less picks
// GOMAXPROCS.
func WorkersFor(requested int) int {
	workers := runtime.GOMAXPROCS(0)
	if requested > 0 && requested < workers {
		workers = requested
	}
	return max(workers, 1)
}

// RunBatch runs independent descriptors concurrently on up to workers
// goroutines. Results keep the order of descs. The first failure cancels the
// rest.
func RunBatch(ctx context.Context, table *kernel.Table, descs []*Descriptor, workers int) ([]*Result, error) {
	results := make([]*Result, len(descs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(WorkersFor(workers))
	for i, d := range descs {
		g.Go(func() error {
			res, err := Run(gctx, table, d)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("batch complete", "requests", len(descs), "tier", table.Tier())
	return results, nil
}
