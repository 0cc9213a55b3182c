// Package rpc probes a network's public JSON-RPC endpoints and picks the one
// a command should talk to.
package rpc

import (
	"context"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/chain"
)

// probeTimeout bounds one endpoint's ping and chain-id round trips.
const probeTimeout = 5 * time.Second

// Result is the outcome of probing one endpoint.
type Result struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     *big.Int
	Err         error
}

// Healthy reports whether the endpoint answered and serves the expected chain.
func (r Result) Healthy() bool { return r.Err == nil }

// Probe pings url and checks that it serves wantChainID. wantChainID <= 0
// skips the chain check.
func Probe(ctx context.Context, url string, wantChainID int64) Result {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	res := Result{URL: url}
	c, err := chain.Dial(ctx, url)
	if err != nil {
		res.Err = err
		return res
	}
	defer c.Close()

	res.Latency, res.BlockNumber, res.Err = c.Ping(ctx)
	if res.Err != nil {
		return res
	}
	res.ChainID, res.Err = c.VerifyChainID(ctx, wantChainID)
	return res
}
