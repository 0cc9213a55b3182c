package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the effective tokensend settings.
type Config struct {
	Network         string        `json:"network"           mapstructure:"network"`
	RPCURL          string        `json:"rpc_url"           mapstructure:"rpc_url"`      // overrides the network's RPC
	RPCStrategy     string        `json:"rpc_strategy"      mapstructure:"rpc_strategy"` // "first" | "failover" | "fastest"
	TokenAddress    string        `json:"token_address"     mapstructure:"token_address"`
	TokenSymbol     string        `json:"token_symbol"      mapstructure:"token_symbol"`
	Decimals        uint8         `json:"decimals"          mapstructure:"decimals"`
	Amount          string        `json:"amount"            mapstructure:"amount"`     // whole tokens, decimal
	GasPolicy       string        `json:"gas_policy"        mapstructure:"gas_policy"` // "fixed" | "network"
	GasPriceGwei    string        `json:"gas_price_gwei"    mapstructure:"gas_price_gwei"`
	ConfirmTimeout  time.Duration `json:"confirm_timeout"   mapstructure:"confirm_timeout"`
	PollInterval    time.Duration `json:"poll_interval"     mapstructure:"poll_interval"`
	MaxPollAttempts int           `json:"max_poll_attempts" mapstructure:"max_poll_attempts"`
	KeyRef          string        `json:"key_ref"           mapstructure:"key_ref"`
	LogLevel        string        `json:"log_level"         mapstructure:"log_level"`  // "debug" | "info" | "warn" | "error"
	LogFormat       string        `json:"log_format"        mapstructure:"log_format"` // "text" | "json"

	// internal: config dir and the file-only settings written by Save()
	configDir string
	file      *viper.Viper
}
