package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Mohsinsiddi/tokensend/internal/config"
	"github.com/Mohsinsiddi/tokensend/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv unsets every TOKENSEND_* config variable for the test and
// restores the previous environment afterwards.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range config.Keys() {
		name := config.EnvPrefix + "_" + strings.ToUpper(k)
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "base", cfg.Network)
	assert.Equal(t, config.DefaultTokenAddress, cfg.TokenAddress)
	assert.Equal(t, "GLDE", cfg.TokenSymbol)
	assert.Equal(t, uint8(18), cfg.Decimals)
	assert.Equal(t, "100", cfg.Amount)
	assert.Equal(t, "fixed", cfg.GasPolicy)
	assert.Equal(t, 2*time.Minute, cfg.ConfirmTimeout)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 0, cfg.MaxPollAttempts)
	assert.NoError(t, cfg.Validate())

	url, err := cfg.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "https://mainnet.base.org", url)
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"network":"base-sepolia","decimals":6,"poll_interval":"500ms"}`), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "base-sepolia", cfg.Network)
	assert.Equal(t, uint8(6), cfg.Decimals)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "GLDE", cfg.TokenSymbol, "untouched keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"rpc_url":"https://file.example"}`), 0o600))
	t.Setenv("TOKENSEND_RPC_URL", "https://env.example")
	t.Setenv("TOKENSEND_CONFIRM_TIMEOUT", "45s")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.RPCURL)
	assert.Equal(t, 45*time.Second, cfg.ConfirmTimeout)
}

func TestDotEnvFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("TOKENSEND_TOKEN_SYMBOL=TEST\nTOKENSEND_GAS_POLICY=network\n"), 0o600))
	t.Setenv("TOKENSEND_GAS_POLICY", "fixed")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "TEST", cfg.TokenSymbol)
	assert.Equal(t, "fixed", cfg.GasPolicy, "real environment wins over .env")
}

func TestMalformedConfigFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))

	_, err := config.Load(dir)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Set / Save
// ---------------------------------------------------------------------------

func TestSetSaveReload(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.Set("network", "ethereum"))
	require.NoError(t, cfg.Set("confirm_timeout", "5m"))
	require.NoError(t, cfg.Set("max_poll_attempts", "30"))
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ethereum", reloaded.Network)
	assert.Equal(t, 5*time.Minute, reloaded.ConfirmTimeout)
	assert.Equal(t, 30, reloaded.MaxPollAttempts)

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveDoesNotPersistEnv(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv("TOKENSEND_RPC_URL", "https://env.example")
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Set("token_symbol", "XYZ"))
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "XYZ")
	assert.NotContains(t, string(data), "env.example")
}

func TestSetRejectsInvalid(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	cases := map[string]string{
		"token_address":     "0x1234",
		"gas_policy":        "eip1559",
		"gas_price_gwei":    "cheap",
		"decimals":          "300",
		"confirm_timeout":   "-1s",
		"poll_interval":     "soon",
		"max_poll_attempts": "-3",
		"network":           "atlantis",
		"amount":            "0",
		"nope":              "x",
	}
	for key, val := range cases {
		err := cfg.Set(key, val)
		assert.ErrorIs(t, err, config.ErrInvalid, key)
	}
	assert.Equal(t, "base", cfg.Network, "failed Set leaves config untouched")
	assert.Equal(t, "fixed", cfg.GasPolicy)
}

func TestUnknownNetworkAllowedWithRPCURL(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("rpc_url", "http://127.0.0.1:8545"))
	require.NoError(t, cfg.Set("network", "anvil"))
	url, err := cfg.Endpoint()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8545", url)
}

func TestGet(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	v, err := cfg.Get("decimals")
	require.NoError(t, err)
	assert.Equal(t, "18", v)
	v, err = cfg.Get("poll_interval")
	require.NoError(t, err)
	assert.Equal(t, "2s", v)

	for _, k := range config.Keys() {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
	_, err = cfg.Get("bogus")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

// ---------------------------------------------------------------------------
// Policies
// ---------------------------------------------------------------------------

func TestPolicies(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	gp, err := cfg.GasPricePolicy()
	require.NoError(t, err)
	assert.Equal(t, transfer.GasFixed, gp.Mode)
	assert.Equal(t, int64(500_000_000), gp.Fixed.Int64())

	require.NoError(t, cfg.Set("gas_policy", "network"))
	gp, err = cfg.GasPricePolicy()
	require.NoError(t, err)
	assert.Equal(t, transfer.GasNetwork, gp.Mode)

	cp := cfg.ConfirmPolicy()
	assert.Equal(t, 2*time.Second, cp.PollInterval)
	assert.Equal(t, 2*time.Minute, cp.Timeout)

	assert.Equal(t, config.DefaultTokenAddress, cfg.Token().Hex())
}

// ---------------------------------------------------------------------------
// Endpoint selection
// ---------------------------------------------------------------------------

func TestRPCStrategy(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRPCStrategy, cfg.RPCStrategy)

	require.NoError(t, cfg.Set(config.KeyRPCStrategy, "fastest"))
	assert.Equal(t, "fastest", cfg.RPCStrategy)
	assert.ErrorIs(t, cfg.Set(config.KeyRPCStrategy, "random"), config.ErrInvalid)
	assert.Equal(t, "fastest", cfg.RPCStrategy, "failed Set leaves the value")
}

func TestLogSettings(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)

	require.NoError(t, cfg.Set(config.KeyLogLevel, "debug"))
	require.NoError(t, cfg.Set(config.KeyLogFormat, "json"))
	assert.ErrorIs(t, cfg.Set(config.KeyLogLevel, "chatty"), config.ErrInvalid)
	assert.ErrorIs(t, cfg.Set(config.KeyLogFormat, "xml"), config.ErrInvalid)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLogSettingsFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TOKENSEND_LOG_LEVEL", "info")
	t.Setenv("TOKENSEND_LOG_FORMAT", "json")
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestSelectEndpointWithoutProbing(t *testing.T) {
	isolateEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	url, err := cfg.SelectEndpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://mainnet.base.org", url, "first strategy uses the primary endpoint")

	// An explicit rpc_url wins over any strategy and is never probed.
	require.NoError(t, cfg.Set(config.KeyRPCStrategy, "fastest"))
	require.NoError(t, cfg.Set(config.KeyRPCURL, "http://127.0.0.1:8545"))
	url, err = cfg.SelectEndpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8545", url)
}
