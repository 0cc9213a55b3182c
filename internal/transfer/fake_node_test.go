package transfer

import (
	"context"
	"math/big"
	"sync"

	"github.com/Mohsinsiddi/tokensend/internal/contract"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeNode is an in-memory ledger node. Sent transactions are "mined" after
// pendingPolls receipt queries.
type fakeNode struct {
	mu sync.Mutex

	chainID  *big.Int
	nonce    uint64
	gasPrice *big.Int
	estimate uint64

	chainIDErr   error
	nonceErr     error
	estimateErr  error
	sendErr      error
	receiptErr   error
	revert       bool
	staleNonce   bool // do not advance the nonce on send
	pendingPolls int
	neverMine    bool

	calls    map[string]int
	sent     []*types.Transaction
	polls    map[common.Hash]int
	lastCall ethereum.CallMsg
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		chainID:  big.NewInt(8453),
		nonce:    5,
		gasPrice: big.NewInt(2_000_000_000),
		estimate: 51_234,
		calls:    make(map[string]int),
		polls:    make(map[common.Hash]int),
	}
}

func (f *fakeNode) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeNode) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeNode) ChainID(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["eth_chainId"]++
	if f.chainIDErr != nil {
		return nil, f.chainIDErr
	}
	return new(big.Int).Set(f.chainID), nil
}

func (f *fakeNode) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["eth_getTransactionCount"]++
	if f.nonceErr != nil {
		return 0, f.nonceErr
	}
	return f.nonce, nil
}

func (f *fakeNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["eth_gasPrice"]++
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeNode) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["eth_estimateGas"]++
	f.lastCall = msg
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.estimate, nil
}

func (f *fakeNode) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["eth_sendRawTransaction"]++
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	if !f.staleNonce {
		f.nonce++
	}
	return nil
}

func (f *fakeNode) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["eth_getTransactionReceipt"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}

	var tx *types.Transaction
	for _, s := range f.sent {
		if s.Hash() == hash {
			tx = s
		}
	}
	f.polls[hash]++
	if tx == nil || f.neverMine || f.polls[hash] <= f.pendingPolls {
		return nil, ethereum.NotFound
	}

	r := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(1000),
		BlockHash:   common.HexToHash("0xb10c"),
		GasUsed:     tx.Gas() - 5000,
	}
	if f.revert {
		r.Status = types.ReceiptStatusFailed
		return r, nil
	}
	if to, amount, err := contract.UnpackTransfer(tx.Data()); err == nil {
		from, _ := types.Sender(types.LatestSignerForChainID(f.chainID), tx)
		r.Logs = []*types.Log{{
			Address: *tx.To(),
			Topics: []common.Hash{
				contract.ABI().Events["Transfer"].ID,
				common.BytesToHash(from.Bytes()),
				common.BytesToHash(to.Bytes()),
			},
			Data:   common.LeftPadBytes(amount.Bytes(), 32),
			TxHash: hash,
		}}
	}
	return r, nil
}

// memJournal records journal calls.
type memJournal struct {
	mu          sync.Mutex
	submissions []Submission
	outcomes    map[common.Hash]Outcome
	err         error
}

func newMemJournal() *memJournal {
	return &memJournal{outcomes: make(map[common.Hash]Outcome)}
}

func (j *memJournal) RecordSubmission(_ context.Context, sub Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.submissions = append(j.submissions, sub)
	return nil
}

func (j *memJournal) RecordOutcome(_ context.Context, hash common.Hash, outcome Outcome, _ uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	j.outcomes[hash] = outcome
	return nil
}
