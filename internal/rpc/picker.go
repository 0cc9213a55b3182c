package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Strategy defines how an endpoint is chosen among a network's URLs.
type Strategy string

const (
	// StrategyFirst uses the primary URL without probing.
	StrategyFirst Strategy = "first"
	// StrategyFailover probes in order and uses the first healthy URL.
	StrategyFailover Strategy = "failover"
	// StrategyFastest probes all URLs and picks the best scored one.
	StrategyFastest Strategy = "fastest"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
)

// ParseStrategy validates s. An empty string means StrategyFirst.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StrategyFirst, nil
	case StrategyFirst, StrategyFailover, StrategyFastest:
		return st, nil
	}
	return "", fmt.Errorf("unknown rpc strategy %q (want first, failover or fastest)", s)
}

// Pick chooses among already probed results. StrategyFirst behaves like
// StrategyFailover here.
func Pick(results []Result, s Strategy) (Result, error) {
	if s == StrategyFastest {
		return pickFastest(results)
	}
	for _, r := range results {
		if r.Healthy() {
			return r, nil
		}
	}
	return Result{}, ErrNoHealthyRPC
}

// pickFastest selects the healthy endpoint with the best score, ignoring
// nodes that lag the best block.
func pickFastest(results []Result) (Result, error) {
	var bestBlock uint64
	for _, r := range results {
		if r.Healthy() && r.BlockNumber > bestBlock {
			bestBlock = r.BlockNumber
		}
	}

	var (
		winner    Result
		bestScore float64
		found     bool
	)
	for _, r := range results {
		if !r.Healthy() || bestBlock-r.BlockNumber > staleBlockThreshold {
			continue
		}
		if s := score(r, bestBlock); !found || s > bestScore {
			winner, bestScore, found = r, s, true
		}
	}
	if !found {
		return Result{}, ErrNoHealthyRPC
	}
	return winner, nil
}

// Select resolves urls to one endpoint according to s.
func Select(ctx context.Context, urls []string, wantChainID int64, s Strategy) (string, error) {
	switch {
	case len(urls) == 0:
		return "", ErrNoHealthyRPC
	case len(urls) == 1 || s == StrategyFirst:
		return urls[0], nil
	}

	if s == StrategyFailover {
		var errs []error
		for _, url := range urls {
			r := Probe(ctx, url, wantChainID)
			if r.Healthy() {
				return url, nil
			}
			errs = append(errs, fmt.Errorf("%s: %w", url, r.Err))
		}
		return "", fmt.Errorf("%w: %w", ErrNoHealthyRPC, errors.Join(errs...))
	}

	winner, err := Pick(Benchmark(ctx, urls, wantChainID), StrategyFastest)
	if err != nil {
		return "", err
	}
	return winner.URL, nil
}

// --- scoring ---

func score(r Result, bestBlock uint64) float64 {
	var s float64

	// Latency score: higher = faster.
	s += 1e6 / float64(r.Latency.Microseconds()+1)

	// Block recency bonus: loses 1 point per block behind.
	s += float64(10 - int64(bestBlock-r.BlockNumber))

	return s
}
