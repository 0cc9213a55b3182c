package transfer

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Outcome is the final state of a broadcast transfer as seen by Confirm.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeReverted  Outcome = "reverted"
	OutcomeTimeout   Outcome = "timeout"
)

// Submission describes a transfer accepted by the node.
type Submission struct {
	Hash      common.Hash
	ChainID   *big.Int
	From      common.Address
	Recipient common.Address
	Token     common.Address
	Amount    *big.Int
	Nonce     uint64
	Gas       uint64
	GasPrice  *big.Int
	At        time.Time
}

// Journal persists submissions and their outcomes. Journal errors are
// logged and never fail a transfer.
type Journal interface {
	RecordSubmission(ctx context.Context, sub Submission) error
	RecordOutcome(ctx context.Context, hash common.Hash, outcome Outcome, blockNumber uint64) error
}

func (s *Submitter) recordSubmission(ctx context.Context, st *SignedTransaction) {
	if s.journal == nil {
		return
	}
	tx := st.tx
	err := s.journal.RecordSubmission(ctx, Submission{
		Hash:      st.Hash(),
		ChainID:   tx.ChainID,
		From:      tx.From,
		Recipient: tx.Recipient,
		Token:     tx.To,
		Amount:    tx.Amount,
		Nonce:     tx.Nonce,
		Gas:       tx.Gas,
		GasPrice:  tx.GasPrice,
		At:        s.now(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("hash", st.Hash().Hex()).Msg("journal write failed")
	}
}

func (s *Submitter) recordOutcome(ctx context.Context, hash common.Hash, outcome Outcome, block uint64) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordOutcome(ctx, hash, outcome, block); err != nil {
		s.log.Warn().Err(err).Str("hash", hash.Hex()).Str("outcome", string(outcome)).Msg("journal update failed")
	}
}
