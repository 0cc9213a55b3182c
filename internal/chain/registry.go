package chain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds the metadata needed to reach one EVM chain.
type Network struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	ChainID     int64  `json:"chain_id"`
	RPCURL      string   `json:"rpc_url"`
	Fallbacks   []string `json:"fallbacks,omitempty"` // tried after RPCURL
	Explorer    string   `json:"explorer"`
}

// Endpoints returns RPCURL followed by the fallbacks.
func (n Network) Endpoints() []string {
	if n.RPCURL == "" {
		return append([]string(nil), n.Fallbacks...)
	}
	return append([]string{n.RPCURL}, n.Fallbacks...)
}

// TxURL returns the explorer page for hash, or "" when the network has no
// explorer.
func (n Network) TxURL(hash string) string {
	if n.Explorer == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/tx/" + hash
}

var networks = map[string]Network{
	"base": {
		Name: "base", DisplayName: "Base", ChainID: 8453,
		RPCURL:    "https://mainnet.base.org",
		Fallbacks: []string{"https://base-rpc.publicnode.com", "https://base.llamarpc.com"},
		Explorer:  "https://basescan.org",
	},
	"base-sepolia": {
		Name: "base-sepolia", DisplayName: "Base Sepolia", ChainID: 84532,
		RPCURL:    "https://sepolia.base.org",
		Fallbacks: []string{"https://base-sepolia-rpc.publicnode.com"},
		Explorer:  "https://sepolia.basescan.org",
	},
	"ethereum": {
		Name: "ethereum", DisplayName: "Ethereum", ChainID: 1,
		RPCURL:    "https://eth.llamarpc.com",
		Fallbacks: []string{"https://ethereum-rpc.publicnode.com", "https://cloudflare-eth.com"},
		Explorer:  "https://etherscan.io",
	},
	"sepolia": {
		Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111,
		RPCURL:    "https://rpc.sepolia.org",
		Fallbacks: []string{"https://ethereum-sepolia-rpc.publicnode.com"},
		Explorer:  "https://sepolia.etherscan.io",
	},
}

// NetworkByName finds a network by its slug (e.g. "base"). Matching is
// case-insensitive.
func NetworkByName(name string) (Network, error) {
	n, ok := networks[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Network{}, fmt.Errorf("%w: %q (known: %s)", ErrNetworkNotFound, name, strings.Join(NetworkNames(), ", "))
	}
	return n, nil
}

// NetworkNames returns the registered network slugs, sorted.
func NetworkNames() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
