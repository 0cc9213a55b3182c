package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/tokensend/internal/config"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persisted settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				var pairs [][2]string
				for _, k := range config.Keys() {
					v, err := a.cfg.Get(k)
					if err != nil {
						return err
					}
					if v == "" {
						v = ui.Meta("(unset)")
					}
					pairs = append(pairs, [2]string{k, v})
				}
				pairs = append(pairs, [2]string{"config dir", ui.Meta(a.cfg.Dir())})
				fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Configuration", pairs))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Persist a setting to config.json",
			Long: `Persist a setting. Keys: ` + fmt.Sprint(config.Keys()) + `

Examples:
  tokensend config set network base-sepolia
  tokensend config set gas_policy network
  tokensend config set confirm_timeout 5m`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := a.cfg.Save(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ui.Success(args[0]+" = "+args[1]))
				return nil
			},
		},
	)
	return cmd
}
