package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/tokensend/internal/contract"
	"github.com/Mohsinsiddi/tokensend/internal/journal"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List transfers recorded in the local journal",
		Long: `Every broadcast transfer is journaled with its nonce, gas and outcome.
Records still marked pending or timeout can be refreshed with
"tokensend status <hash>".

Examples:
  tokensend history
  tokensend history --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openJournal(a.cfg.Dir())
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("No transfers recorded yet."))
				return nil
			}

			tbl := ui.NewTable([]ui.Column{
				{Title: "SUBMITTED", Width: 19},
				{Title: "HASH", Width: 14, Style: ui.Addr},
				{Title: "TO", Width: 14, Style: ui.Addr},
				{Title: "AMOUNT", Width: 18},
				{Title: "NONCE", Width: 6},
				{Title: "STATUS", Width: 10, Style: ui.Status},
				{Title: "BLOCK", Width: 10},
			})
			for _, r := range recs {
				block := ""
				if r.BlockNumber > 0 {
					block = fmt.Sprintf("#%d", r.BlockNumber)
				}
				tbl.AddRow(ui.Row{
					r.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
					ui.TruncateAddr(r.Hash),
					ui.TruncateAddr(r.Recipient),
					a.displayAmount(r),
					fmt.Sprintf("%d", r.Nonce),
					string(r.Status),
					block,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "max records, newest first (0 = all)")
	return cmd
}

// displayAmount formats a journaled amount with the configured token's
// decimals, or as raw base units for any other token.
func (a *app) displayAmount(r *journal.Record) string {
	raw, ok := new(big.Int).SetString(r.Amount, 10)
	if !ok {
		return r.Amount
	}
	if strings.EqualFold(r.Token, a.cfg.TokenAddress) {
		return contract.FormatAmount(raw, a.cfg.Decimals) + " " + a.cfg.TokenSymbol
	}
	return raw.String()
}
