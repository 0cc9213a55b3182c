package cmd

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// testNode is a JSON-RPC server that accepts raw transactions and mines them
// on the next receipt query.
type testNode struct {
	srv *httptest.Server

	mu        sync.Mutex
	calls     map[string]int
	sent      map[common.Hash]bool
	lastHash  common.Hash
	revert    bool
	neverMine bool
	balance   *big.Int
}

const testBlock = 436 // 0x1b4

func newTestNode(t *testing.T) *testNode {
	t.Helper()
	n := &testNode{
		calls:   make(map[string]int),
		sent:    make(map[common.Hash]bool),
		balance: new(big.Int),
	}
	n.srv = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.srv.Close)
	return n
}

func (n *testNode) URL() string { return n.srv.URL }

func (n *testNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *testNode) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	sum := 0
	for _, c := range n.calls {
		sum += c
	}
	return sum
}

func (n *testNode) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     json.RawMessage   `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls[req.Method]++
	result, rpcErr := n.handle(req.Method, req.Params)
	n.mu.Unlock()

	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != "" {
		resp["error"] = map[string]interface{}{"code": -32000, "message": rpcErr}
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (n *testNode) handle(method string, params []json.RawMessage) (interface{}, string) {
	param := func(i int) string {
		var s string
		if i < len(params) {
			_ = json.Unmarshal(params[i], &s)
		}
		return s
	}

	switch method {
	case "eth_chainId":
		return "0x2105", ""
	case "eth_blockNumber":
		return hexutil.EncodeUint64(testBlock), ""
	case "eth_getTransactionCount":
		return "0x5", ""
	case "eth_gasPrice":
		return "0x77359400", ""
	case "eth_estimateGas":
		return "0xc822", ""
	case "eth_call":
		return hexutil.Encode(common.LeftPadBytes(n.balance.Bytes(), 32)), ""
	case "eth_sendRawTransaction":
		raw, err := hexutil.Decode(param(0))
		if err != nil {
			return nil, err.Error()
		}
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, err.Error()
		}
		n.sent[tx.Hash()] = true
		n.lastHash = tx.Hash()
		return tx.Hash().Hex(), ""
	case "eth_getTransactionReceipt":
		hash := common.HexToHash(param(0))
		if !n.sent[hash] || n.neverMine {
			return nil, ""
		}
		status := "0x1"
		if n.revert {
			status = "0x0"
		}
		return map[string]interface{}{
			"type":              "0x0",
			"status":            status,
			"cumulativeGasUsed": "0xc822",
			"logsBloom":         "0x" + strings.Repeat("00", 256),
			"logs":              []interface{}{},
			"transactionHash":   hash.Hex(),
			"gasUsed":           "0xc822",
			"effectiveGasPrice": "0x1dcd6500",
			"blockHash":         "0x" + strings.Repeat("ab", 32),
			"blockNumber":       hexutil.EncodeUint64(testBlock),
			"transactionIndex":  "0x0",
		}, ""
	}
	return nil, "method not found"
}
