package battle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"autoresolve/internal/logging"
)

// RunAll resolves independent battles on up to workers goroutines. Results keep the
// order of specs. The first failing battle cancels every battle not yet started, and its
// error is returned together with whatever results completed.
func RunAll(ctx context.Context, specs []Spec, workers int, opts Options) ([]*Result, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(specs) {
		workers = len(specs)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*Result, len(specs))
	errs := make([]error, len(specs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				//1.- Cancellation is honoured between battles only; Run never stops midway.
				result, err := Run(ctx, specs[i], opts)
				if err != nil {
					errs[i] = err
					cancel()
					continue
				}
				results[i] = result
			}
		}()
	}

	sent := 0
feed:
	for i := range specs {
		select {
		case jobs <- i:
			sent++
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	//2.- Report the real failure in input order; cancellations are only its echo.
	var canceled error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if canceled == nil {
				canceled = err
			}
			continue
		}
		logging.LoggerFromContext(ctx).Error("battle failed", logging.String(logging.BattleIDField, specs[i].ID), logging.Error(err))
		return results, fmt.Errorf("battle %d of %d: %w", i+1, len(specs), err)
	}
	if canceled != nil {
		return results, canceled
	}
	if sent < len(specs) {
		return results, ctx.Err()
	}
	return results, nil
}
