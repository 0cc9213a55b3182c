// Package config layers tokensend settings: built-in defaults, then
// <dir>/config.json, then .env files and TOKENSEND_* environment variables.
// Command flags are applied on top by the caller.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/address"
	"github.com/Mohsinsiddi/tokensend/internal/chain"
	"github.com/Mohsinsiddi/tokensend/internal/contract"
	"github.com/Mohsinsiddi/tokensend/internal/logging"
	"github.com/Mohsinsiddi/tokensend/internal/rpc"
	"github.com/Mohsinsiddi/tokensend/internal/transfer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

const (
	configFile = "config.json"
	envFile    = ".env"
)

// DefaultDir returns ~/.tokensend.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".tokensend"), nil
}

// Load reads config from dir (or creates defaults). dir defaults to ~/.tokensend.
// A .env file in dir or in the working directory is loaded into the process
// environment without replacing variables that are already set.
func Load(dir string) (*Config, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	if err := loadDotEnv(filepath.Join(dir, envFile), envFile); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, configFile)
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("json")
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	v := viper.New()
	for k, val := range defaultValues {
		v.SetDefault(k, val)
	}
	if err := v.MergeConfigMap(file.AllSettings()); err != nil {
		return nil, fmt.Errorf("merging config: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.configDir = dir
	cfg.file = file
	return cfg, nil
}

func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
	}
	return nil
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// Save writes the keys changed through Set to <dir>/config.json. Values that
// came from the environment are not persisted.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	path := filepath.Join(c.configDir, configFile)
	if err := c.fileSettings().WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return os.Chmod(path, 0o600)
}

func (c *Config) fileSettings() *viper.Viper {
	if c.file == nil {
		c.file = viper.New()
		c.file.SetConfigType("json")
	}
	return c.file
}

// Keys returns every settable key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaultValues))
	for k := range defaultValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the effective value of key formatted for display.
func (c *Config) Get(key string) (string, error) {
	switch strings.ToLower(key) {
	case KeyNetwork:
		return c.Network, nil
	case KeyRPCURL:
		return c.RPCURL, nil
	case KeyRPCStrategy:
		return c.RPCStrategy, nil
	case KeyTokenAddress:
		return c.TokenAddress, nil
	case KeyTokenSymbol:
		return c.TokenSymbol, nil
	case KeyDecimals:
		return strconv.Itoa(int(c.Decimals)), nil
	case KeyAmount:
		return c.Amount, nil
	case KeyGasPolicy:
		return c.GasPolicy, nil
	case KeyGasPriceGwei:
		return c.GasPriceGwei, nil
	case KeyConfirmTimeout:
		return c.ConfirmTimeout.String(), nil
	case KeyPollInterval:
		return c.PollInterval.String(), nil
	case KeyMaxPollAttempts:
		return strconv.Itoa(c.MaxPollAttempts), nil
	case KeyKeyRef:
		return c.KeyRef, nil
	case KeyLogLevel:
		return c.LogLevel, nil
	case KeyLogFormat:
		return c.LogFormat, nil
	}
	return "", fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
}

// Set parses value into key. The change is validated against the rest of
// the config and becomes durable on Save.
func (c *Config) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	next := *c
	var stored any = value

	switch key {
	case KeyNetwork:
		next.Network = value
	case KeyRPCURL:
		next.RPCURL = value
	case KeyRPCStrategy:
		next.RPCStrategy = value
	case KeyTokenAddress:
		next.TokenAddress = value
	case KeyTokenSymbol:
		next.TokenSymbol = value
	case KeyDecimals:
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return fmt.Errorf("%w: decimals: %v", ErrInvalid, err)
		}
		next.Decimals = uint8(n)
		stored = n
	case KeyAmount:
		next.Amount = value
	case KeyGasPolicy:
		next.GasPolicy = value
	case KeyGasPriceGwei:
		next.GasPriceGwei = value
	case KeyConfirmTimeout, KeyPollInterval:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		if key == KeyConfirmTimeout {
			next.ConfirmTimeout = d
		} else {
			next.PollInterval = d
		}
		stored = d.String()
	case KeyMaxPollAttempts:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: max_poll_attempts: %v", ErrInvalid, err)
		}
		next.MaxPollAttempts = n
		stored = n
	case KeyKeyRef:
		next.KeyRef = value
	case KeyLogLevel:
		next.LogLevel = value
	case KeyLogFormat:
		next.LogFormat = value
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, key)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	c.fileSettings().Set(key, stored)
	return nil
}

// Validate checks that the settings can drive a transfer.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		if _, err := chain.NetworkByName(c.Network); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if _, err := rpc.ParseStrategy(c.RPCStrategy); err != nil {
		return fmt.Errorf("%w: rpc_strategy: %v", ErrInvalid, err)
	}
	if _, _, err := address.Normalize(c.TokenAddress); err != nil {
		return fmt.Errorf("%w: token_address: %v", ErrInvalid, err)
	}
	mode, err := transfer.ParseGasMode(c.GasPolicy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if mode == transfer.GasFixed {
		if _, err := transfer.ParseGwei(c.GasPriceGwei); err != nil {
			return fmt.Errorf("%w: gas_price_gwei: %v", ErrInvalid, err)
		}
	}
	if c.Amount != "" {
		if _, err := contract.ScaleAmount(c.Amount, c.Decimals); err != nil {
			return fmt.Errorf("%w: amount: %v", ErrInvalid, err)
		}
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("%w: confirm_timeout must be positive", ErrInvalid)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be positive", ErrInvalid)
	}
	if c.MaxPollAttempts < 0 {
		return fmt.Errorf("%w: max_poll_attempts must not be negative", ErrInvalid)
	}
	if c.KeyRef == "" {
		return fmt.Errorf("%w: key_ref is empty", ErrInvalid)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: log_format: %v", ErrInvalid, err)
	}
	return nil
}

// Token returns the token contract address. Call Validate first.
func (c *Config) Token() common.Address {
	addr, _, _ := address.Normalize(c.TokenAddress)
	return addr
}

// Endpoint resolves the RPC URL: rpc_url when set, else the network's
// primary endpoint.
func (c *Config) Endpoint() (string, error) {
	if c.RPCURL != "" {
		return c.RPCURL, nil
	}
	n, err := chain.NetworkByName(c.Network)
	if err != nil {
		return "", err
	}
	return n.RPCURL, nil
}

// SelectEndpoint resolves the RPC URL like Endpoint, but lets rpc_strategy
// probe the network's fallbacks. An explicit rpc_url is never probed.
func (c *Config) SelectEndpoint(ctx context.Context) (string, error) {
	strategy, err := rpc.ParseStrategy(c.RPCStrategy)
	if err != nil {
		return "", fmt.Errorf("%w: rpc_strategy: %v", ErrInvalid, err)
	}
	if c.RPCURL != "" || strategy == rpc.StrategyFirst {
		return c.Endpoint()
	}
	n, err := chain.NetworkByName(c.Network)
	if err != nil {
		return "", err
	}
	return rpc.Select(ctx, n.Endpoints(), n.ChainID, strategy)
}

// GasPricePolicy builds the submitter gas policy.
func (c *Config) GasPricePolicy() (transfer.GasPricePolicy, error) {
	mode, err := transfer.ParseGasMode(c.GasPolicy)
	if err != nil {
		return transfer.GasPricePolicy{}, err
	}
	if mode == transfer.GasNetwork {
		return transfer.NetworkGasPrice(), nil
	}
	wei, err := transfer.ParseGwei(c.GasPriceGwei)
	if err != nil {
		return transfer.GasPricePolicy{}, err
	}
	return transfer.FixedGasPrice(wei), nil
}

// ConfirmPolicy builds the confirmation polling bounds.
func (c *Config) ConfirmPolicy() transfer.ConfirmPolicy {
	return transfer.ConfirmPolicy{
		PollInterval: c.PollInterval,
		Timeout:      c.ConfirmTimeout,
		MaxAttempts:  c.MaxPollAttempts,
	}
}
