package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/address"
	"github.com/Mohsinsiddi/tokensend/internal/chain"
	"github.com/Mohsinsiddi/tokensend/internal/config"
	"github.com/Mohsinsiddi/tokensend/internal/contract"
	"github.com/Mohsinsiddi/tokensend/internal/transfer"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/Mohsinsiddi/tokensend/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var errCancelled = errors.New("cancelled by user")

var sendFlags = append(append([]flagKey(nil), endpointFlags...),
	flagKey{"amount", config.KeyAmount},
	flagKey{"gas-policy", config.KeyGasPolicy},
	flagKey{"gas-price", config.KeyGasPriceGwei},
	flagKey{"timeout", config.KeyConfirmTimeout},
	flagKey{"poll-interval", config.KeyPollInterval},
	flagKey{"max-attempts", config.KeyMaxPollAttempts},
	flagKey{"key-ref", config.KeyKeyRef},
)

func addSendFlags(cmd *cobra.Command) {
	addEndpointFlags(cmd)
	f := cmd.Flags()
	f.String("amount", "", "amount in whole tokens, e.g. 100 or 2.5 (default from config: 100)")
	f.String("gas-policy", "", "gas price policy: fixed | network")
	f.String("gas-price", "", "fixed gas price in gwei (default 0.5)")
	f.Duration("timeout", 0, "give up waiting for inclusion after this long (default 2m)")
	f.Duration("poll-interval", 0, "receipt poll interval (default 2s)")
	f.Int("max-attempts", 0, "max receipt polls, 0 = bounded by --timeout only")
	f.String("key-ref", "", "keychain reference of the signing key")
	f.Bool("no-wait", false, "print the hash after broadcast and exit without waiting")
	f.BoolP("interactive", "i", false, "show a preview, ask before broadcasting and track confirmation live")
}

// pollRelay forwards poll callbacks to whichever progress view is active.
type pollRelay struct {
	fn transfer.PollObserver
}

func (r *pollRelay) observe(attempt int, elapsed time.Duration) {
	if r.fn != nil {
		r.fn(attempt, elapsed)
	}
}

// session is a submitter wired to a node, a keychain account and the journal.
type session struct {
	sub     *transfer.Submitter
	client  *chain.EVMClient
	network chain.Network
	relay   *pollRelay
	close   func()
}

func (a *app) openSession(ctx context.Context) (*session, error) {
	cfg := a.cfg
	acct, err := wallet.LoadAccount(a.openKeystore(cfg.Dir()), cfg.KeyRef)
	if err != nil {
		return nil, fmt.Errorf("no signing key %q (run: tokensend key import): %w", cfg.KeyRef, err)
	}

	client, network, err := a.dial(ctx)
	if err != nil {
		return nil, err
	}
	gas, err := cfg.GasPricePolicy()
	if err != nil {
		client.Close()
		return nil, err
	}

	relay := &pollRelay{}
	opts := []transfer.Option{
		transfer.WithGasPrice(gas),
		transfer.WithConfirmPolicy(cfg.ConfirmPolicy()),
		transfer.WithLogger(a.log),
		transfer.WithPollObserver(relay.observe),
	}

	closers := []func(){client.Close}
	if store, err := a.openJournal(cfg.Dir()); err != nil {
		a.log.Warn().Err(err).Msg("journal unavailable, continuing without it")
	} else {
		opts = append(opts, transfer.WithJournal(store))
		closers = append(closers, func() { store.Close() })
	}

	sub, err := transfer.New(client, acct, cfg.Token(), opts...)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, err
	}
	return &session{
		sub:     sub,
		client:  client,
		network: network,
		relay:   relay,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// dial connects to the configured endpoint, probing the network's fallbacks
// when rpc_strategy asks for it. The returned network is zero for a custom
// RPC URL outside the registry.
func (a *app) dial(ctx context.Context) (*chain.EVMClient, chain.Network, error) {
	url, err := a.cfg.SelectEndpoint(ctx)
	if err != nil {
		return nil, chain.Network{}, err
	}
	a.log.Debug().Str("url", url).Str("strategy", a.cfg.RPCStrategy).Msg("using rpc endpoint")
	network, _ := chain.NetworkByName(a.cfg.Network)
	client, err := chain.Dial(ctx, url)
	if err != nil {
		return nil, chain.Network{}, err
	}
	return client, network, nil
}

func runSend(cmd *cobra.Command, a *app, recipient string) error {
	ctx := cmd.Context()
	cfg := a.cfg
	if err := applyFlags(cmd.Flags(), cfg, sendFlags); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	noWait, _ := cmd.Flags().GetBool("no-wait")
	interactive, _ := cmd.Flags().GetBool("interactive")

	// Reject a bad recipient before touching the keychain or the network.
	to, _, err := address.Normalize(recipient)
	if err != nil {
		return &transfer.Error{Op: "validate recipient", Kind: transfer.KindInvalidAddress, Err: err}
	}
	amount, err := contract.ScaleAmount(cfg.Amount, cfg.Decimals)
	if err != nil {
		return &transfer.Error{Op: "parse amount", Kind: transfer.KindInvalidAmount, Err: err}
	}

	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	var hash common.Hash
	if interactive {
		hash, err = sendInteractive(cmd, a, s, recipient, amount)
	} else {
		fmt.Fprintln(errOut(cmd), ui.Meta(fmt.Sprintf("Transferring %s %s from %s to %s",
			contract.FormatAmount(amount, cfg.Decimals), cfg.TokenSymbol, s.sub.Account().Address().Hex(), to.Hex())))
		var res *transfer.Result
		if res, err = s.sub.Submit(ctx, recipient, amount); err == nil {
			hash = res.Hash
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash.Hex())
	if noWait {
		return nil
	}

	rec, err := waitForReceipt(cmd, a, s, hash, recipient, interactive)
	if err != nil {
		return err
	}
	if !interactive {
		fmt.Fprintln(errOut(cmd), ui.Success(fmt.Sprintf("confirmed in block #%d (gas used %d)", rec.BlockNumber, rec.GasUsed)))
		if url := s.network.TxURL(hash.Hex()); url != "" {
			fmt.Fprintln(errOut(cmd), ui.Meta(url))
		}
	}
	return nil
}

// sendInteractive runs the pipeline step by step so the estimated cost can be
// shown before anything is signed.
func sendInteractive(cmd *cobra.Command, a *app, s *session, recipient string, amount *big.Int) (common.Hash, error) {
	ctx := cmd.Context()
	to, err := s.sub.Validate(recipient)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := s.sub.Build(ctx, to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := s.sub.EstimateGas(ctx, tx); err != nil {
		return common.Hash{}, err
	}

	fee := new(big.Int).Mul(tx.GasPrice, new(big.Int).SetUint64(tx.Gas))
	fmt.Fprintln(errOut(cmd), ui.KeyValueBlock("Transfer Preview", [][2]string{
		{"From", ui.Addr(tx.From.Hex())},
		{"To", ui.Addr(to.Hex())},
		{"Amount", contract.FormatAmount(amount, a.cfg.Decimals) + " " + a.cfg.TokenSymbol},
		{"Token", ui.Addr(tx.To.Hex())},
		{"Network", networkLabel(s.network, tx.ChainID)},
		{"Nonce", fmt.Sprintf("%d", tx.Nonce)},
		{"Gas Limit", fmt.Sprintf("%d (estimate %d + 20%%)", tx.Gas, tx.Estimated)},
		{"Gas Price", contract.FormatAmount(tx.GasPrice, 9) + " gwei"},
		{"Max Fee", contract.FormatAmount(fee, 18) + " ETH"},
	}))

	if !ui.Confirm(cmd.InOrStdin(), errOut(cmd), "Broadcast this transfer?") {
		return common.Hash{}, errCancelled
	}

	st, err := s.sub.Sign(tx)
	if err != nil {
		return common.Hash{}, err
	}
	return s.sub.Broadcast(ctx, st)
}

func waitForReceipt(cmd *cobra.Command, a *app, s *session, hash common.Hash, recipient string, interactive bool) (*transfer.Receipt, error) {
	ctx := cmd.Context()
	out := errOut(cmd)

	switch {
	case interactive && isTTY(out) && isTTY(cmd.InOrStdin()):
		to, _, _ := address.Normalize(recipient)
		tracker := ui.NewTracker(ui.TrackerModel{
			Hash:        hash.Hex(),
			Network:     networkLabel(s.network, nil),
			Recipient:   to.Hex(),
			Amount:      a.cfg.Amount + " " + a.cfg.TokenSymbol,
			ExplorerURL: s.network.TxURL(hash.Hex()),
		}, cmd.InOrStdin(), out)
		s.relay.fn = tracker.Observe
		return tracker.Run(ctx, func(ctx context.Context) (*transfer.Receipt, error) {
			return s.sub.Confirm(ctx, hash)
		})

	case isTTY(out):
		spin := ui.NewSpinner(out, "Waiting for "+ui.TruncateAddr(hash.Hex())+" to be mined…")
		s.relay.fn = func(attempt int, elapsed time.Duration) {
			spin.SetMessage(fmt.Sprintf("Waiting for %s to be mined… poll #%d, %s",
				ui.TruncateAddr(hash.Hex()), attempt, elapsed.Round(time.Second)))
		}
		spin.Start()
		rec, err := s.sub.Confirm(ctx, hash)
		spin.Stop()
		return rec, err
	}
	return s.sub.Confirm(ctx, hash)
}

func networkLabel(n chain.Network, chainID *big.Int) string {
	switch {
	case n.Name != "":
		return fmt.Sprintf("%s (%d)", n.DisplayName, n.ChainID)
	case chainID != nil:
		return "chain " + chainID.String()
	}
	return "custom RPC"
}
