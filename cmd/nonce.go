package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/spf13/cobra"
)

func newNonceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nonce [address]",
		Short: "Show latest and pending nonce for an address",
		Long: `Query the latest and pending transaction count (nonce) for an address,
by default the signing account.

If the two differ, transactions are pending or stuck in the mempool and the
next transfer will queue behind them.

Examples:
  tokensend nonce
  tokensend nonce 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 --network ethereum`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFlags(cmd.Flags(), a.cfg, lookupFlags); err != nil {
				return err
			}
			addr, err := a.targetAddress(args)
			if err != nil {
				return err
			}
			client, network, err := a.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			pending, latest, err := client.Nonces(cmd.Context(), addr)
			if err != nil {
				return err
			}

			pairs := [][2]string{
				{"Address", ui.Addr(addr.Hex())},
				{"Network", networkLabel(network, nil)},
				{"Latest Nonce", ui.Val(fmt.Sprintf("%d", latest))},
				{"Pending Nonce", ui.Val(fmt.Sprintf("%d", pending))},
			}
			if pending > latest {
				pairs = append(pairs, [2]string{"Status", ui.Warn(fmt.Sprintf("%d pending tx(s) in mempool", pending-latest))})
			} else {
				pairs = append(pairs, [2]string{"Status", ui.Success("no pending transactions")})
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Nonce", pairs))
			return nil
		},
	}
	addEndpointFlags(cmd)
	cmd.Flags().String("key-ref", "", "keychain reference of the signing key")
	return cmd
}
