// Package transfer builds, signs, broadcasts and confirms ERC-20 transfer
// transactions for a single account.
package transfer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/address"
	"github.com/Mohsinsiddi/tokensend/internal/contract"
	"github.com/Mohsinsiddi/tokensend/internal/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// Node is the subset of the node JSON-RPC API a Submitter needs.
// *ethclient.Client satisfies it.
type Node interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Transaction is an unsigned token transfer call. Gas is zero until
// EstimateGas fills it in.
type Transaction struct {
	From      common.Address
	Nonce     uint64
	GasPrice  *big.Int
	Gas       uint64
	Estimated uint64 // raw node estimate, before the margin
	To        common.Address
	Data      []byte
	ChainID   *big.Int

	Recipient common.Address
	Amount    *big.Int
}

// SignedTransaction is a Transaction plus signature. It can be broadcast
// once; the attempt consumes it even when the node rejects it.
type SignedTransaction struct {
	tx     *Transaction
	signed *types.Transaction
	raw    []byte
	sent   atomic.Bool
}

// Hash returns the transaction hash.
func (s *SignedTransaction) Hash() common.Hash { return s.signed.Hash() }

// Raw returns the RLP/typed-envelope bytes sent to the node.
func (s *SignedTransaction) Raw() []byte { return s.raw }

// Transaction returns the unsigned transaction that was signed.
func (s *SignedTransaction) Transaction() *Transaction { return s.tx }

// Submitter converts transfer requests into confirmed on-chain transfers.
type Submitter struct {
	node    Node
	account *wallet.Account
	token   common.Address
	gas     GasPricePolicy
	confirm ConfirmPolicy
	journal Journal
	observe PollObserver
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	chainID   *big.Int
	hasNonce  bool
	lastNonce uint64
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithGasPrice sets the gas price policy (default: fixed 0.5 gwei).
func WithGasPrice(p GasPricePolicy) Option {
	return func(s *Submitter) { s.gas = p }
}

// WithConfirmPolicy sets the confirmation polling bounds.
func WithConfirmPolicy(p ConfirmPolicy) Option {
	return func(s *Submitter) { s.confirm = p }
}

// WithJournal records every broadcast and its outcome.
func WithJournal(j Journal) Option {
	return func(s *Submitter) { s.journal = j }
}

// WithLogger sets the logger (default: discard).
func WithLogger(l zerolog.Logger) Option {
	return func(s *Submitter) { s.log = l }
}

// WithPollObserver registers a callback invoked before each receipt poll.
func WithPollObserver(fn PollObserver) Option {
	return func(s *Submitter) { s.observe = fn }
}

// WithChainID pins the chain id so it is not fetched from the node.
func WithChainID(id *big.Int) Option {
	return func(s *Submitter) {
		if id != nil {
			s.chainID = new(big.Int).Set(id)
		}
	}
}

var errMissingDeps = errors.New("transfer: node and account are required")

// New creates a Submitter that sends token transfers from account.
func New(node Node, account *wallet.Account, token common.Address, opts ...Option) (*Submitter, error) {
	if node == nil || account == nil {
		return nil, errMissingDeps
	}
	s := &Submitter{
		node:    node,
		account: account,
		token:   token,
		gas:     FixedGasPrice(DefaultFixedGasPrice),
		confirm: DefaultConfirmPolicy(),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.confirm = s.confirm.normalized()
	return s, nil
}

// Account returns the sending account.
func (s *Submitter) Account() *wallet.Account { return s.account }

// Token returns the token contract address.
func (s *Submitter) Token() common.Address { return s.token }

// Validate parses recipient into a checksum-normalized address. It never
// contacts the node.
func (s *Submitter) Validate(recipient string) (common.Address, error) {
	addr, _, err := address.Normalize(recipient)
	if err != nil {
		return common.Address{}, &Error{Op: "validate recipient", Kind: KindInvalidAddress, Err: err}
	}
	return addr, nil
}

// Build creates the unsigned transfer(recipient, amount) call. It fetches the
// pending nonce and, on first use, the chain id. Gas is left unset.
func (s *Submitter) Build(ctx context.Context, recipient common.Address, amount *big.Int) (*Transaction, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errorf("build", KindInvalidAmount, "amount must be greater than zero, got %v", amount)
	}

	data, err := contract.PackTransfer(recipient, amount)
	if err != nil {
		return nil, &Error{Op: "encode transfer", Kind: KindInvalidAmount, Err: err}
	}

	chainID, err := s.chainIDFor(ctx)
	if err != nil {
		return nil, err
	}

	from := s.account.Address()
	nonce, err := s.node.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, newError("fetch nonce", KindNode, err)
	}
	nonce = s.nextNonce(nonce)

	gasPrice, err := s.gas.price(ctx, s.node)
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("from", from.Hex()).
		Str("to", recipient.Hex()).
		Str("amount", amount.String()).
		Uint64("nonce", nonce).
		Str("gas_price", gasPrice.String()).
		Str("chain_id", chainID.String()).
		Msg("built transfer")

	return &Transaction{
		From:      from,
		Nonce:     nonce,
		GasPrice:  gasPrice,
		To:        s.token,
		Data:      data,
		ChainID:   chainID,
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
	}, nil
}

// EstimateGas asks the node to simulate tx and sets tx.Gas to the estimate
// plus a 20% margin. A call that would revert fails with ErrEstimation.
func (s *Submitter) EstimateGas(ctx context.Context, tx *Transaction) (uint64, error) {
	to := tx.To
	est, err := s.node.EstimateGas(ctx, ethereum.CallMsg{
		From: tx.From,
		To:   &to,
		Data: tx.Data,
	})
	if err != nil {
		return 0, newError("estimate gas", KindEstimation, err)
	}
	tx.Estimated = est
	tx.Gas = WithMargin(est)
	s.log.Debug().Uint64("estimate", est).Uint64("gas_limit", tx.Gas).Msg("estimated gas")
	return tx.Gas, nil
}

// Sign signs tx with the submitter's account into an EIP-155 legacy
// transaction.
func (s *Submitter) Sign(tx *Transaction) (*SignedTransaction, error) {
	if tx.Gas == 0 {
		return nil, errorf("sign", KindSigning, "gas limit not set; estimate gas first")
	}
	if tx.ChainID == nil {
		return nil, errorf("sign", KindSigning, "chain id not set")
	}
	to := tx.To
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.Gas,
		To:       &to,
		Value:    new(big.Int),
		Data:     tx.Data,
	})
	signed, err := s.account.SignTx(unsigned, tx.ChainID)
	if err != nil {
		return nil, &Error{Op: "sign", Kind: KindSigning, Err: err}
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, &Error{Op: "sign", Kind: KindSigning, Err: err}
	}
	return &SignedTransaction{tx: tx, signed: signed, raw: raw}, nil
}

// Broadcast submits st to the node and returns its hash. Each
// SignedTransaction can be broadcast only once.
func (s *Submitter) Broadcast(ctx context.Context, st *SignedTransaction) (common.Hash, error) {
	if !st.sent.CompareAndSwap(false, true) {
		return common.Hash{}, errorf("broadcast", KindBroadcast, "transaction %s already broadcast", st.Hash().Hex())
	}
	if err := s.node.SendTransaction(ctx, st.signed); err != nil {
		return common.Hash{}, newError("broadcast", KindBroadcast, err)
	}

	hash := st.Hash()
	s.commitNonce(st.tx.Nonce)
	s.log.Info().Str("hash", hash.Hex()).Uint64("nonce", st.tx.Nonce).Uint64("gas", st.tx.Gas).Msg("transaction broadcast")
	s.recordSubmission(ctx, st)
	return hash, nil
}

func (s *Submitter) chainIDFor(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	cached := s.chainID
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	id, err := s.node.ChainID(ctx)
	if err != nil {
		return nil, newError("fetch chain id", KindNode, err)
	}

	s.mu.Lock()
	s.chainID = id
	s.mu.Unlock()
	return id, nil
}

// nextNonce guards against a node that has not caught up with our own
// broadcasts yet: nonces handed out after a broadcast are always higher.
func (s *Submitter) nextNonce(fromNode uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasNonce && fromNode <= s.lastNonce {
		s.log.Debug().Uint64("node", fromNode).Uint64("last", s.lastNonce).Msg("node nonce behind local broadcasts")
		return s.lastNonce + 1
	}
	return fromNode
}

func (s *Submitter) commitNonce(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasNonce || n > s.lastNonce {
		s.lastNonce = n
		s.hasNonce = true
	}
}
