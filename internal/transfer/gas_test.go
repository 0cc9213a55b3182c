package transfer

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGasMode(t *testing.T) {
	m, err := ParseGasMode(" Network ")
	require.NoError(t, err)
	assert.Equal(t, GasNetwork, m)

	m, err = ParseGasMode("fixed")
	require.NoError(t, err)
	assert.Equal(t, GasFixed, m)

	_, err = ParseGasMode("eip1559")
	assert.Error(t, err)
}

func TestParseGwei(t *testing.T) {
	wei, err := ParseGwei("0.5")
	require.NoError(t, err)
	assert.Equal(t, 0, DefaultFixedGasPrice.Cmp(wei))

	wei, err = ParseGwei("3")
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000_000), wei.Int64())

	_, err = ParseGwei("0.0000000001")
	assert.Error(t, err, "below 1 wei")
	_, err = ParseGwei("abc")
	assert.Error(t, err)
}

func TestGasPolicyPrice(t *testing.T) {
	node := newFakeNode()
	ctx := context.Background()

	gp, err := GasPricePolicy{}.price(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, 0, DefaultFixedGasPrice.Cmp(gp), "zero policy falls back to default fixed")

	fixed := big.NewInt(42)
	p := FixedGasPrice(fixed)
	fixed.SetInt64(1)
	gp, err = p.price(ctx, node)
	require.NoError(t, err)
	assert.Equal(t, int64(42), gp.Int64(), "policy holds its own copy")

	_, err = GasPricePolicy{Mode: "bogus"}.price(ctx, node)
	assert.Error(t, err)
	assert.Equal(t, 0, node.count("eth_gasPrice"))
}
