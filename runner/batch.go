package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll submits every job to the pool and returns the results in job
// order. The error is the first one returned by Pool.Do (cancellation or a
// stopped pool); per-job execution failures are reported in each Result.
func RunAll(ctx context.Context, pool *Pool, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			result, err := pool.Do(ctx, job)
			results[i] = result
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Failed returns the results whose execution failed.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
