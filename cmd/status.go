package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/tokensend/internal/address"
	"github.com/Mohsinsiddi/tokensend/internal/journal"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status <hash>",
		Short: "Show the state of a transfer",
		Long: `Look up a transfer in the journal. Unless --offline is given, transfers not
yet settled are checked against the node and the journal is updated when
a receipt exists.

Examples:
  tokensend status 0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFlags(cmd.Flags(), a.cfg, endpointFlags); err != nil {
				return err
			}
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}

			store, err := a.openJournal(a.cfg.Dir())
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(hash.Hex())
			if err != nil && !errors.Is(err, journal.ErrNotFound) {
				return err
			}
			known := rec != nil
			if !known && offline {
				return fmt.Errorf("transaction %s not in journal", hash.Hex())
			}

			if !known || (!offline && unsettled(rec.Status)) {
				receipt, err := a.fetchReceipt(cmd, hash)
				switch {
				case errors.Is(err, ethereum.NotFound) && !known:
					return fmt.Errorf("transaction %s not found in journal or on chain", hash.Hex())
				case errors.Is(err, ethereum.NotFound):
					// still pending
				case err != nil:
					return err
				default:
					if !known {
						rec = &journal.Record{Hash: hash.Hex()}
					}
					rec.Status = journal.StatusConfirmed
					if receipt.Status != types.ReceiptStatusSuccessful {
						rec.Status = journal.StatusReverted
					}
					rec.BlockNumber = receipt.BlockNumber.Uint64()
					if known {
						if err := store.UpdateStatus(rec.Hash, rec.Status, rec.BlockNumber); err != nil {
							a.log.Warn().Err(err).Str("hash", rec.Hash).Msg("journal update failed")
						}
					}
				}
			}

			pairs := [][2]string{
				{"Hash", ui.Addr(rec.Hash)},
				{"Status", ui.Status(string(rec.Status))},
			}
			if rec.BlockNumber > 0 {
				pairs = append(pairs, [2]string{"Block", fmt.Sprintf("#%d", rec.BlockNumber)})
			}
			if rec.Recipient != "" {
				pairs = append(pairs,
					[2]string{"To", ui.Addr(rec.Recipient)},
					[2]string{"Amount", a.displayAmount(rec)},
					[2]string{"Nonce", fmt.Sprintf("%d", rec.Nonce)},
					[2]string{"Gas Limit", fmt.Sprintf("%d", rec.GasLimit)},
					[2]string{"Submitted", rec.SubmittedAt.Local().Format("2006-01-02 15:04:05")},
				)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Transfer Status", pairs))
			return nil
		},
	}
	addEndpointFlags(cmd)
	cmd.Flags().BoolVar(&offline, "offline", false, "only read the journal, do not query the node")
	return cmd
}

func parseHash(s string) (common.Hash, error) {
	raw := address.TrimHexPrefix(s)
	if len(raw) != 64 {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
	}
	return common.HexToHash(raw), nil
}

func unsettled(s journal.Status) bool {
	return s == journal.StatusPending || s == journal.StatusTimeout
}

func (a *app) fetchReceipt(cmd *cobra.Command, hash common.Hash) (*types.Receipt, error) {
	client, _, err := a.dial(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.TransactionReceipt(cmd.Context(), hash)
}
