package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrChainMismatch is returned when the node serves a different chain than
// the selected network expects.
var ErrChainMismatch = errors.New("chain id mismatch")

// httpTimeout bounds every single JSON-RPC round trip.
const httpTimeout = 15 * time.Second

// EVMClient is a JSON-RPC client for one EVM node. It embeds the go-ethereum
// client, so it can be handed to anything that needs node access.
type EVMClient struct {
	*ethclient.Client
	url string
}

// Dial connects to the node at url. For HTTP endpoints no request is made
// until the first call.
func Dial(ctx context.Context, url string) (*EVMClient, error) {
	rc, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{Timeout: httpTimeout}))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &EVMClient{Client: ethclient.NewClient(rc), url: url}, nil
}

// URL returns the endpoint the client talks to.
func (c *EVMClient) URL() string { return c.url }

// Ping tests the RPC endpoint and returns latency + block number.
func (c *EVMClient) Ping(ctx context.Context) (latency time.Duration, blockNum uint64, err error) {
	start := time.Now()
	blockNum, err = c.BlockNumber(ctx)
	latency = time.Since(start)
	if err != nil {
		return latency, 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return latency, blockNum, nil
}

// VerifyChainID fetches the node's chain id and compares it with want.
// want <= 0 skips the comparison.
func (c *EVMClient) VerifyChainID(ctx context.Context, want int64) (*big.Int, error) {
	id, err := c.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("eth_chainId: %w", err)
	}
	if want > 0 && id.Cmp(big.NewInt(want)) != 0 {
		return id, fmt.Errorf("%w: node reports %s, expected %d", ErrChainMismatch, id, want)
	}
	return id, nil
}

// Nonces returns the pending and latest transaction counts for addr. A gap
// between them means transactions are waiting in the mempool.
func (c *EVMClient) Nonces(ctx context.Context, addr common.Address) (pending, latest uint64, err error) {
	pending, err = c.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, 0, fmt.Errorf("pending nonce: %w", err)
	}
	latest, err = c.NonceAt(ctx, addr, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("latest nonce: %w", err)
	}
	return pending, latest, nil
}
