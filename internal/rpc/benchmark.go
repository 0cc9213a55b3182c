package rpc

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// maxParallelProbes caps concurrent probes in one benchmark.
const maxParallelProbes = 4

// Benchmark probes every url concurrently. Results are in the order of urls.
func Benchmark(ctx context.Context, urls []string, wantChainID int64) []Result {
	results := make([]Result, len(urls))
	var g errgroup.Group
	g.SetLimit(maxParallelProbes)
	for i, url := range urls {
		g.Go(func() error {
			results[i] = Probe(ctx, url, wantChainID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
