package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach calls fn for every index in [0, n). With workers <= 1 the calls run
// sequentially in order; otherwise at most workers run at once. fn owns its
// own error handling so every index is always visited.
func forEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(ctx, i)
		}
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
}
