package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/contract"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Confirmation defaults.
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultConfirmTimeout = 2 * time.Minute
)

// ConfirmPolicy bounds the receipt poll. At least one of Timeout and
// MaxAttempts is always in force.
type ConfirmPolicy struct {
	PollInterval time.Duration
	Timeout      time.Duration
	MaxAttempts  int // 0 = limited by Timeout only
}

// DefaultConfirmPolicy polls every 2s for up to 2 minutes.
func DefaultConfirmPolicy() ConfirmPolicy {
	return ConfirmPolicy{PollInterval: DefaultPollInterval, Timeout: DefaultConfirmTimeout}
}

func (p ConfirmPolicy) normalized() ConfirmPolicy {
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultPollInterval
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.Timeout <= 0 && p.MaxAttempts == 0 {
		p.Timeout = DefaultConfirmTimeout
	}
	return p
}

// PollObserver is told about each receipt poll before it is sent.
type PollObserver func(attempt int, elapsed time.Duration)

// Receipt is the outcome of an included transaction.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
	BlockHash   common.Hash
	GasUsed     uint64
	Transfers   []contract.TransferEvent
	Attempts    int
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool { return r.Status == types.ReceiptStatusSuccessful }

var errAttemptsExhausted = errors.New("max poll attempts reached")

// Confirm polls the node until hash is included, the policy deadline passes,
// the attempt budget is spent or ctx is cancelled. A mined but reverted
// transaction returns its receipt together with ErrReverted.
func (s *Submitter) Confirm(ctx context.Context, hash common.Hash) (*Receipt, error) {
	p := s.confirm
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := s.now()
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		if s.observe != nil {
			s.observe(attempt, s.now().Sub(start))
		}

		r, err := s.node.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && r != nil:
			return s.settle(ctx, hash, r, attempt)
		case err == nil, errors.Is(err, ethereum.NotFound):
			s.log.Debug().Str("hash", hash.Hex()).Int("attempt", attempt).Msg("receipt pending")
		case ctx.Err() != nil:
			return nil, s.timeout(hash, attempt, s.now().Sub(start), ctx.Err())
		case transient(err):
			s.log.Warn().Err(err).Str("hash", hash.Hex()).Int("attempt", attempt).Msg("receipt poll failed, will poll again")
		default:
			return nil, newError("confirm", KindNode, err)
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return nil, s.timeout(hash, attempt, s.now().Sub(start), errAttemptsExhausted)
		}

		select {
		case <-ctx.Done():
			return nil, s.timeout(hash, attempt, s.now().Sub(start), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *Submitter) settle(ctx context.Context, hash common.Hash, r *types.Receipt, attempt int) (*Receipt, error) {
	rec := &Receipt{
		TxHash:    hash,
		Status:    r.Status,
		BlockHash: r.BlockHash,
		GasUsed:   r.GasUsed,
		Transfers: contract.ParseTransferLogs(s.token, r.Logs),
		Attempts:  attempt,
	}
	if r.BlockNumber != nil {
		rec.BlockNumber = r.BlockNumber.Uint64()
	}

	if !rec.Succeeded() {
		s.log.Warn().Str("hash", hash.Hex()).Uint64("block", rec.BlockNumber).Msg("transaction reverted")
		s.recordOutcome(ctx, hash, OutcomeReverted, rec.BlockNumber)
		return rec, errorf("confirm", KindReverted, "transaction %s reverted in block %d", hash.Hex(), rec.BlockNumber)
	}

	s.log.Info().
		Str("hash", hash.Hex()).
		Uint64("block", rec.BlockNumber).
		Uint64("gas_used", rec.GasUsed).
		Int("attempts", attempt).
		Msg("transaction confirmed")
	s.recordOutcome(ctx, hash, OutcomeConfirmed, rec.BlockNumber)
	return rec, nil
}

func (s *Submitter) timeout(hash common.Hash, attempts int, elapsed time.Duration, cause error) error {
	s.recordOutcome(context.Background(), hash, OutcomeTimeout, 0)
	return &Error{
		Op:        "confirm",
		Kind:      KindConfirmationTimeout,
		Retryable: true,
		Err: fmt.Errorf("transaction %s not included after %d polls in %s: %w",
			hash.Hex(), attempts, elapsed.Round(time.Millisecond), cause),
	}
}
