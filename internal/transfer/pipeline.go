package transfer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Result summarizes one transfer run. Hash is set as soon as the node
// accepted the transaction, even if confirmation later failed.
type Result struct {
	Hash        common.Hash
	Transaction *Transaction
	Receipt     *Receipt
}

// Submit runs validate → build → estimate gas → sign → broadcast and
// returns without waiting for inclusion.
func (s *Submitter) Submit(ctx context.Context, recipient string, amount *big.Int) (*Result, error) {
	to, err := s.Validate(recipient)
	if err != nil {
		return nil, err
	}
	tx, err := s.Build(ctx, to, amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.EstimateGas(ctx, tx); err != nil {
		return nil, err
	}
	st, err := s.Sign(tx)
	if err != nil {
		return nil, err
	}
	hash, err := s.Broadcast(ctx, st)
	if err != nil {
		return nil, err
	}
	return &Result{Hash: hash, Transaction: tx}, nil
}

// Transfer runs Submit and then Confirm. The steps are strictly sequential
// and none is retried.
func (s *Submitter) Transfer(ctx context.Context, recipient string, amount *big.Int) (*Result, error) {
	res, err := s.Submit(ctx, recipient, amount)
	if err != nil {
		return nil, err
	}
	res.Receipt, err = s.Confirm(ctx, res.Hash)
	return res, err
}
