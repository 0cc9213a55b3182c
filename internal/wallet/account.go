package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKey is returned for key material that is not a valid 32-byte
// secp256k1 secret.
var ErrInvalidKey = errors.New("invalid private key")

// Account is a single signing identity: an address and the secret it was
// derived from. It is immutable once created.
type Account struct {
	address common.Address
	key     *ecdsa.PrivateKey
}

// NewAccount derives an Account from a hex-encoded 32-byte private key.
// The 0x prefix and surrounding whitespace are ignored.
func NewAccount(hexKey string) (*Account, error) {
	clean := normaliseHexKey(hexKey)
	if len(clean) != 64 {
		return nil, fmt.Errorf("%w: expected 64 hex chars, got %d", ErrInvalidKey, len(clean))
	}
	key, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Account{address: crypto.PubkeyToAddress(key.PublicKey), key: key}, nil
}

// Address returns the account address.
func (a *Account) Address() common.Address { return a.address }

// String returns the checksummed address. The key is never printed.
func (a *Account) String() string { return a.address.Hex() }

// SignTx signs tx for chainID with the latest signer the chain supports
// (EIP-155 replay protection for legacy transactions).
func (a *Account) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if a == nil || a.key == nil {
		return nil, fmt.Errorf("%w: account has no key", ErrInvalidKey)
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id %v", chainID)
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), a.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signed, nil
}

// normaliseHexKey strips surrounding whitespace and a 0x/0X prefix.
func normaliseHexKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	return strings.TrimPrefix(s, "0X")
}
