package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/tokensend/internal/config"
	"github.com/Mohsinsiddi/tokensend/internal/journal"
	"github.com/Mohsinsiddi/tokensend/internal/logging"
	"github.com/Mohsinsiddi/tokensend/internal/wallet"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/tokensend/cmd.Version=1.2.3" .
var Version = "1.0.0"

// EnvConfigDir overrides the --config default.
const EnvConfigDir = "TOKENSEND_CONFIG_DIR"

// app carries the state shared by the commands of one invocation.
type app struct {
	cfgDir  string
	verbose bool
	cfg     *config.Config
	log     zerolog.Logger

	openKeystore func(configDir string) wallet.KeystoreBackend
	openJournal  func(configDir string) (*journal.Store, error)
}

func newApp() *app {
	a := &app{
		cfgDir: os.Getenv(EnvConfigDir),
		log:    zerolog.Nop(),
		openKeystore: func(dir string) wallet.KeystoreBackend {
			return wallet.DefaultKeystore(wallet.KeysDir(dir))
		},
	}
	a.openJournal = func(dir string) (*journal.Store, error) {
		return journal.Open(journal.Dir(dir), a.log)
	}
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tokensend <recipient>",
		Short: "Send an ERC-20 token transfer and wait for it to be mined",
		Long: `tokensend transfers a fixed amount of an ERC-20 token from the signing
account to <recipient>, then polls the node until the transaction is mined.

  validate → build (nonce) → estimate gas (+20%) → sign → broadcast → confirm

On success the transaction hash is printed and the exit status is 0. Any
failure prints "Error: <message>" and exits with status 1.

Defaults (token, amount, network, gas policy) come from the config
directory and TOKENSEND_* environment variables; flags override both.

Examples:
  tokensend key import
  tokensend 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045
  tokensend 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 --amount 2.5 -i
  tokensend 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 --network base-sepolia --no-wait`,
		Version:      Version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = logging.ForVerbosity(cmd.ErrOrStderr(), a.verbose)
			// Load config (skip for commands that don't need it).
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(a.cfgDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg

			log, err := logging.FromSettings(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, a.verbose)
			if err != nil {
				a.log.Warn().Err(err).Msg("ignoring log settings")
				return nil
			}
			a.log = log
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgDir, "config", a.cfgDir, "config directory (default: ~/.tokensend, env "+EnvConfigDir+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	addSendFlags(root)
	root.RunE = func(cmd *cobra.Command, args []string) error {
		return runSend(cmd, a, args[0])
	}

	root.AddCommand(
		newChecksumCmd(),
		newBalanceCmd(a),
		newNonceCmd(a),
		newKeyCmd(a),
		newHistoryCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
		newPingCmd(a),
	)
	return root
}

// Execute runs the root command. SIGINT and SIGTERM cancel in-flight work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(newApp()).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// flagKey maps a command flag onto a config key.
type flagKey struct {
	flag string
	key  string
}

// applyFlags overlays the flags the user actually set onto cfg, in order.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config, keys []flagKey) error {
	for _, fk := range keys {
		f := fs.Lookup(fk.flag)
		if f == nil || !f.Changed {
			continue
		}
		if err := cfg.Set(fk.key, f.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", fk.flag, err)
		}
	}
	return nil
}

// endpointFlags are shared by every command that talks to a node. rpc comes
// before network so a custom endpoint may use a network name the registry
// does not know.
var endpointFlags = []flagKey{
	{"rpc", config.KeyRPCURL},
	{"network", config.KeyNetwork},
	{"rpc-strategy", config.KeyRPCStrategy},
	{"token", config.KeyTokenAddress},
}

func addEndpointFlags(cmd *cobra.Command) {
	cmd.Flags().String("network", "", "network name (base, base-sepolia, ethereum, sepolia)")
	cmd.Flags().String("rpc", "", "JSON-RPC endpoint, overrides the network's")
	cmd.Flags().String("rpc-strategy", "", "how to choose among the network's endpoints: first | failover | fastest")
	cmd.Flags().String("token", "", "token contract address")
}

func isTTY(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func errOut(cmd *cobra.Command) io.Writer { return cmd.ErrOrStderr() }
