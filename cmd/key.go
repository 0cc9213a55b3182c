package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/Mohsinsiddi/tokensend/internal/config"
	"github.com/Mohsinsiddi/tokensend/internal/ui"
	"github.com/Mohsinsiddi/tokensend/internal/wallet"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var keyFlags = []flagKey{{"key-ref", config.KeyKeyRef}}

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the signing key in the OS keychain",
		Long: `The signing key lives in the OS keychain (or an encrypted file under the
config directory when no keychain is available). It is never written to
config files. For CI, ` + wallet.EnvPrivateKey + ` overrides the keychain.`,
	}
	cmd.PersistentFlags().String("key-ref", "", "keychain reference of the signing key")
	cmd.AddCommand(newKeyImportCmd(a), newKeyAddressCmd(a), newKeyDeleteCmd(a))
	return cmd
}

func newKeyImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Store a hex private key in the keychain",
		Long: `Read a hex private key (with or without 0x) and store it in the keychain.
On a terminal the key is read without echo; otherwise the first line of
stdin is used.

Examples:
  tokensend key import
  pass show deploy-key | tokensend key import --key-ref deploy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFlags(cmd.Flags(), a.cfg, keyFlags); err != nil {
				return err
			}
			hexKey, err := readSecret(cmd, "Private key (hex): ")
			if err != nil {
				return err
			}
			acct, err := wallet.ImportKey(a.openKeystore(a.cfg.Dir()), a.cfg.KeyRef, hexKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("stored key "+a.cfg.KeyRef+" for "+ui.Addr(acct.Address().Hex())))
			return nil
		},
	}
}

func newKeyAddressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address of the signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFlags(cmd.Flags(), a.cfg, keyFlags); err != nil {
				return err
			}
			acct, err := wallet.LoadAccount(a.openKeystore(a.cfg.Dir()), a.cfg.KeyRef)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), acct.Address().Hex())
			return nil
		},
	}
}

func newKeyDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove the signing key from the keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyFlags(cmd.Flags(), a.cfg, keyFlags); err != nil {
				return err
			}
			if !yes && !ui.Confirm(cmd.InOrStdin(), errOut(cmd), "Delete key "+a.cfg.KeyRef+"? This cannot be undone.") {
				return errCancelled
			}
			if err := a.openKeystore(a.cfg.Dir()).Delete(a.cfg.KeyRef); err != nil {
				return fmt.Errorf("deleting key %s: %w", a.cfg.KeyRef, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Success("deleted key "+a.cfg.KeyRef))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(errOut(cmd), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(errOut(cmd))
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading key: %w", err)
		}
		return "", fmt.Errorf("reading key: empty input")
	}
	return line, nil
}
