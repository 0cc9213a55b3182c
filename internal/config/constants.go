package config

import (
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/wallet"
)

// Defaults match the GLDE deployment on Base mainnet.
const (
	DefaultNetwork      = "base"
	DefaultTokenAddress = "0x947A1657722453599f95A439f66Fbf418F72e7eD"
	DefaultTokenSymbol  = "GLDE"
	DefaultDecimals     = 18
	DefaultAmount       = "100"
	DefaultGasPolicy    = "fixed"
	DefaultGasPriceGwei = "0.5"

	DefaultConfirmTimeout = 2 * time.Minute
	DefaultPollInterval   = 2 * time.Second

	DefaultKeyRef      = wallet.DefaultKeyRef
	DefaultRPCStrategy = "first"
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
)

// Config keys.
const (
	KeyNetwork         = "network"
	KeyRPCURL          = "rpc_url"
	KeyRPCStrategy     = "rpc_strategy"
	KeyTokenAddress    = "token_address"
	KeyTokenSymbol     = "token_symbol"
	KeyDecimals        = "decimals"
	KeyAmount          = "amount"
	KeyGasPolicy       = "gas_policy"
	KeyGasPriceGwei    = "gas_price_gwei"
	KeyConfirmTimeout  = "confirm_timeout"
	KeyPollInterval    = "poll_interval"
	KeyMaxPollAttempts = "max_poll_attempts"
	KeyKeyRef          = "key_ref"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
)

// EnvPrefix namespaces environment overrides: TOKENSEND_RPC_URL, ...
const EnvPrefix = "TOKENSEND"

var defaultValues = map[string]any{
	KeyNetwork:         DefaultNetwork,
	KeyRPCURL:          "",
	KeyRPCStrategy:     DefaultRPCStrategy,
	KeyTokenAddress:    DefaultTokenAddress,
	KeyTokenSymbol:     DefaultTokenSymbol,
	KeyDecimals:        DefaultDecimals,
	KeyAmount:          DefaultAmount,
	KeyGasPolicy:       DefaultGasPolicy,
	KeyGasPriceGwei:    DefaultGasPriceGwei,
	KeyConfirmTimeout:  DefaultConfirmTimeout,
	KeyPollInterval:    DefaultPollInterval,
	KeyMaxPollAttempts: 0,
	KeyKeyRef:          DefaultKeyRef,
	KeyLogLevel:        DefaultLogLevel,
	KeyLogFormat:       DefaultLogFormat,
}
