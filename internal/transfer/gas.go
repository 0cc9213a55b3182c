package transfer

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/tokensend/internal/contract"
)

// GasMode selects where the gas price comes from.
type GasMode string

const (
	// GasFixed uses a constant price. Cost is predictable, but a price below
	// the market can leave the transaction unmined during congestion.
	GasFixed GasMode = "fixed"
	// GasNetwork asks the node (eth_gasPrice) at build time.
	GasNetwork GasMode = "network"
)

// DefaultFixedGasPrice is 0.5 gwei.
var DefaultFixedGasPrice = big.NewInt(500_000_000)

// Gas limit margin: ceil(estimate * 6/5), i.e. +20%.
const (
	marginNum = 6
	marginDen = 5
)

// GasPricePolicy decides the gas price of built transactions.
type GasPricePolicy struct {
	Mode  GasMode
	Fixed *big.Int // wei, used when Mode == GasFixed
}

// FixedGasPrice returns a fixed policy at wei.
func FixedGasPrice(wei *big.Int) GasPricePolicy {
	return GasPricePolicy{Mode: GasFixed, Fixed: new(big.Int).Set(wei)}
}

// NetworkGasPrice returns a policy that queries the node.
func NetworkGasPrice() GasPricePolicy {
	return GasPricePolicy{Mode: GasNetwork}
}

// ParseGasMode parses "fixed" or "network".
func ParseGasMode(s string) (GasMode, error) {
	switch m := GasMode(strings.ToLower(strings.TrimSpace(s))); m {
	case GasFixed, GasNetwork:
		return m, nil
	default:
		return "", fmt.Errorf("unknown gas policy %q (want fixed|network)", s)
	}
}

// ParseGwei converts a decimal gwei string ("0.5") into wei.
func ParseGwei(s string) (*big.Int, error) {
	wei, err := contract.ScaleAmount(s, 9)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	return wei, nil
}

func (p GasPricePolicy) price(ctx context.Context, node Node) (*big.Int, error) {
	switch p.Mode {
	case GasNetwork:
		gp, err := node.SuggestGasPrice(ctx)
		if err != nil {
			return nil, newError("fetch gas price", KindNode, err)
		}
		return gp, nil
	case GasFixed, "":
		if p.Fixed == nil || p.Fixed.Sign() <= 0 {
			return new(big.Int).Set(DefaultFixedGasPrice), nil
		}
		return new(big.Int).Set(p.Fixed), nil
	default:
		return nil, errorf("gas price", KindUnknown, "unknown gas policy %q", p.Mode)
	}
}

// WithMargin returns ceil(estimate * 1.2). The result is never below
// estimate and saturates at MaxUint64.
func WithMargin(estimate uint64) uint64 {
	n := new(big.Int).SetUint64(estimate)
	n.Mul(n, big.NewInt(marginNum))
	n.Add(n, big.NewInt(marginDen-1))
	n.Quo(n, big.NewInt(marginDen))
	if !n.IsUint64() {
		return math.MaxUint64
	}
	return n.Uint64()
}
