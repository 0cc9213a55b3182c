package e2e_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// Hardhat account #0.
	testKey       = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testRecipient = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "tokensend-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "tokensend")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

type result struct {
	stdout, stderr string
	code           int
}

// runCLI runs the binary with a clean TOKENSEND_* environment plus extraEnv.
func runCLI(t *testing.T, configDir string, extraEnv []string, args ...string) result {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "TOKENSEND_") {
			cmd.Env = append(cmd.Env, kv)
		}
	}
	cmd.Env = append(cmd.Env, "TOKENSEND_CONFIG_DIR="+configDir)
	cmd.Env = append(cmd.Env, extraEnv...)

	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()

	res := result{stdout: out.String(), stderr: errb.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.code = exitErr.ExitCode()
	} else {
		require.NoError(t, err)
	}
	return res
}

func TestVersionFlag(t *testing.T) {
	res := runCLI(t, t.TempDir(), nil, "--version")
	require.Zero(t, res.code, res.stderr)
	assert.Contains(t, res.stdout, "tokensend")
	assert.Contains(t, res.stdout, "1.0.0")
}

func TestHelpCommand(t *testing.T) {
	res := runCLI(t, t.TempDir(), nil, "--help")
	require.Zero(t, res.code)
	for _, s := range []string{"tokensend", "checksum", "balance", "history", "--amount", "--no-wait", "--interactive"} {
		assert.Contains(t, res.stdout, s)
	}
}

func TestInvalidRecipientExitsOne(t *testing.T) {
	res := runCLI(t, t.TempDir(), nil, "0xnot-an-address")
	assert.Equal(t, 1, res.code)
	assert.Empty(t, res.stdout)
	assert.True(t, strings.HasPrefix(res.stderr, "Error: "), res.stderr)
}

func TestMissingRecipientExitsOne(t *testing.T) {
	res := runCLI(t, t.TempDir(), nil)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error: ")
}

func TestChecksum(t *testing.T) {
	res := runCLI(t, t.TempDir(), nil, "checksum", "-q", strings.ToLower(testRecipient))
	require.Zero(t, res.code, res.stderr)
	assert.Equal(t, testRecipient, strings.TrimSpace(res.stdout))
}

func TestConfigSetPersists(t *testing.T) {
	dir := t.TempDir()

	res := runCLI(t, dir, nil, "config", "set", "network", "base-sepolia")
	require.Zero(t, res.code, res.stderr)

	res = runCLI(t, dir, nil, "config", "show")
	require.Zero(t, res.code, res.stderr)
	assert.Contains(t, res.stdout, "base-sepolia")

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigSetInvalidExitsOne(t *testing.T) {
	res := runCLI(t, t.TempDir(), nil, "config", "set", "gas_policy", "cheapest")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error: ")
}

func TestEnvOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	res := runCLI(t, dir, []string{"TOKENSEND_AMOUNT=42"}, "config", "show")
	require.Zero(t, res.code, res.stderr)
	assert.Contains(t, res.stdout, "42")
}

func TestKeyAddressFromEnv(t *testing.T) {
	res := runCLI(t, t.TempDir(), []string{"TOKENSEND_PRIVATE_KEY=" + testKey}, "key", "address")
	require.Zero(t, res.code, res.stderr)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", strings.TrimSpace(res.stdout))
}

// ---------------------------------------------------------------------------
// full transfer against a local JSON-RPC node
// ---------------------------------------------------------------------------

// minedNode accepts raw transactions and reports them mined right away.
func minedNode(t *testing.T) (*httptest.Server, func() common.Hash) {
	t.Helper()
	var (
		mu   sync.Mutex
		last common.Hash
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     json.RawMessage   `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var param string
		if len(req.Params) > 0 {
			_ = json.Unmarshal(req.Params[0], &param)
		}

		mu.Lock()
		defer mu.Unlock()
		var result interface{}
		switch req.Method {
		case "eth_chainId":
			result = "0x2105"
		case "eth_getTransactionCount":
			result = "0x0"
		case "eth_estimateGas":
			result = "0xc822"
		case "eth_sendRawTransaction":
			raw, _ := hexutil.Decode(param)
			tx := new(types.Transaction)
			if err := tx.UnmarshalBinary(raw); err == nil {
				last = tx.Hash()
			}
			result = last.Hex()
		case "eth_getTransactionReceipt":
			if common.HexToHash(param) == last {
				result = map[string]interface{}{
					"status":            "0x1",
					"cumulativeGasUsed": "0xc822",
					"logsBloom":         "0x" + strings.Repeat("00", 256),
					"logs":              []interface{}{},
					"transactionHash":   last.Hex(),
					"gasUsed":           "0xc822",
					"blockHash":         "0x" + strings.Repeat("cd", 32),
					"blockNumber":       "0x10",
					"transactionIndex":  "0x0",
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() common.Hash {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestTransferPrintsHashAndExitsZero(t *testing.T) {
	dir := t.TempDir()
	srv, lastHash := minedNode(t)
	env := []string{"TOKENSEND_PRIVATE_KEY=" + testKey}

	res := runCLI(t, dir, env, testRecipient, "--rpc", srv.URL, "--poll-interval", "20ms")
	require.Zero(t, res.code, res.stderr)
	assert.Equal(t, lastHash().Hex(), strings.TrimSpace(res.stdout))

	res = runCLI(t, dir, nil, "history")
	require.Zero(t, res.code, res.stderr)
	assert.Contains(t, res.stdout, "confirmed")
}
