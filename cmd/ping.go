package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/chain"
	"github.com/Mohsinsiddi/tokensend/internal/rpc"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/spf13/cobra"
)

func newPingCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the RPC endpoint is reachable and on the expected chain",
		Long: `Ping the endpoint a transfer would use and verify its chain id. With --all
every public endpoint of the network is benchmarked and the one the
fastest strategy would pick is marked.

Examples:
  tokensend ping
  tokensend ping --network base-sepolia --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFlags(cmd.Flags(), a.cfg, endpointFlags); err != nil {
				return err
			}
			if all {
				return pingAll(cmd, a)
			}

			client, network, err := a.dial(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			latency, block, err := client.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s unreachable: %w", client.URL(), err)
			}
			id, err := client.VerifyChainID(cmd.Context(), network.ChainID)
			if err != nil && !errors.Is(err, chain.ErrChainMismatch) {
				return err
			}

			pairs := [][2]string{
				{"Endpoint", client.URL()},
				{"Network", networkLabel(network, id)},
				{"Latency", latency.Round(100 * time.Microsecond).String()},
				{"Block", fmt.Sprintf("#%d", block)},
				{"Chain ID", id.String()},
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("RPC Health", pairs))
			return err
		},
	}
	addEndpointFlags(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "benchmark every endpoint of the network")
	return cmd
}

func pingAll(cmd *cobra.Command, a *app) error {
	network, err := chain.NetworkByName(a.cfg.Network)
	if err != nil {
		return err
	}
	urls := network.Endpoints()
	if a.cfg.RPCURL != "" {
		urls = append([]string{a.cfg.RPCURL}, urls...)
	}

	results := rpc.Benchmark(cmd.Context(), urls, network.ChainID)
	best, pickErr := rpc.Pick(results, rpc.StrategyFastest)

	tbl := ui.NewTable([]ui.Column{
		{Title: "", Width: 2},
		{Title: "ENDPOINT", Width: 44},
		{Title: "LATENCY", Width: 10},
		{Title: "BLOCK", Width: 12},
		{Title: "STATUS", Width: 40, Style: func(s string) string {
			if s == "ok" {
				return ui.StyleSuccess.Render(s)
			}
			return ui.StyleError.Render(s)
		}},
	})
	for _, r := range results {
		mark, status := "", "ok"
		if pickErr == nil && r.URL == best.URL {
			mark = "★"
		}
		latency, block := "-", "-"
		if r.Err != nil {
			status = r.Err.Error()
		}
		if r.BlockNumber > 0 {
			latency = r.Latency.Round(time.Millisecond).String()
			block = fmt.Sprintf("#%d", r.BlockNumber)
		}
		tbl.AddRow(ui.Row{mark, r.URL, latency, block, status})
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.ChainName(networkLabel(network, nil)))
	fmt.Fprint(cmd.OutOrStdout(), tbl.Render())
	if pickErr != nil {
		return fmt.Errorf("%s: %w", network.Name, pickErr)
	}
	return nil
}
