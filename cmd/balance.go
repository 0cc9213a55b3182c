package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/tokensend/internal/address"
	"github.com/Mohsinsiddi/tokensend/internal/config"
	"github.com/Mohsinsiddi/tokensend/internal/contract"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/Mohsinsiddi/tokensend/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

// lookupFlags serve read-only commands that default to the signing account.
var lookupFlags = append(append([]flagKey(nil), endpointFlags...), flagKey{"key-ref", config.KeyKeyRef})

func newBalanceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the token balance of an address",
		Long: `Query balanceOf on the configured token contract. Without an address the
signing account's balance is shown.

Examples:
  tokensend balance
  tokensend balance 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 --network base`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFlags(cmd.Flags(), a.cfg, lookupFlags); err != nil {
				return err
			}
			owner, err := a.targetAddress(args)
			if err != nil {
				return err
			}

			client, network, err := a.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			token := contract.NewToken(a.cfg.Token(), client)
			bal, err := token.BalanceOf(cmd.Context(), owner)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Token Balance", [][2]string{
				{"Address", ui.Addr(owner.Hex())},
				{"Token", ui.Addr(token.Address().Hex())},
				{"Network", networkLabel(network, nil)},
				{"Balance", ui.Val(contract.FormatAmount(bal, a.cfg.Decimals) + " " + a.cfg.TokenSymbol)},
				{"Raw", bal.String()},
			}))
			return nil
		},
	}
	addEndpointFlags(cmd)
	cmd.Flags().String("key-ref", "", "keychain reference of the signing key")
	return cmd
}

// targetAddress returns the address in args, or the signing account's.
func (a *app) targetAddress(args []string) (common.Address, error) {
	if len(args) == 1 {
		addr, _, err := address.Normalize(args[0])
		return addr, err
	}
	acct, err := wallet.LoadAccount(a.openKeystore(a.cfg.Dir()), a.cfg.KeyRef)
	if err != nil {
		return common.Address{}, fmt.Errorf("no address given and no signing key %q: %w", a.cfg.KeyRef, err)
	}
	return acct.Address(), nil
}
