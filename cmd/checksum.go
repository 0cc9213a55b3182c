package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/tokensend/internal/address"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/spf13/cobra"
)

func newChecksumCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "checksum <address>",
		Short: "Validate or convert an address to EIP-55 checksum format",
		Long: `Convert an address to its EIP-55 checksummed form and report whether the
input was already correctly checksummed. A mixed-case input whose casing
does not match the checksum is rejected, exactly as a transfer would be.

Examples:
  tokensend checksum 0xd8da6bf26964af9d7eed9e03e53415d37aa96045
  tokensend checksum -q D8DA6BF26964AF9D7EED9E03E53415D37AA96045`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			_, checksummed, err := address.Normalize(input)
			if err != nil {
				return err
			}
			if quiet {
				fmt.Fprintln(cmd.OutOrStdout(), checksummed)
				return nil
			}

			pairs := [][2]string{
				{"Input", input},
				{"Checksummed", ui.Addr(checksummed)},
			}
			switch {
			case address.IsChecksummed(input):
				pairs = append(pairs, [2]string{"Valid", ui.Success("address is correctly checksummed")})
			case strings.EqualFold(strings.TrimPrefix(input, "0x"), checksummed[2:]):
				pairs = append(pairs, [2]string{"Valid", ui.Warn("valid address but not checksummed")})
			}

			fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("EIP-55 Checksum", pairs))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the checksummed address")
	return cmd
}
