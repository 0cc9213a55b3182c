// Package address validates and normalizes EVM account addresses.
package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ErrInvalid is returned for inputs that are not a 20-byte hex address or
// that carry a mixed-case checksum which does not verify.
var ErrInvalid = errors.New("invalid address")

// Normalize validates s and returns the parsed address together with its
// EIP-55 checksummed form. The 0x prefix is optional. All-lowercase and
// all-uppercase inputs are accepted as-is; mixed-case inputs must match
// their checksum exactly.
func Normalize(s string) (common.Address, string, error) {
	clean := TrimHexPrefix(s)
	if len(clean) != 40 {
		return common.Address{}, "", fmt.Errorf("%w %q: expected 40 hex chars, got %d", ErrInvalid, s, len(clean))
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return common.Address{}, "", fmt.Errorf("%w %q: not hex", ErrInvalid, s)
	}

	sum := Checksum(clean)
	if isMixedCase(clean) && sum[2:] != clean {
		return common.Address{}, "", fmt.Errorf("%w %q: checksum mismatch (expected %s)", ErrInvalid, s, sum)
	}
	return common.BytesToAddress(raw), sum, nil
}

// TrimHexPrefix removes a single leading 0x or 0X.
func TrimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// IsChecksummed reports whether s is already in its exact EIP-55 form,
// including the 0x prefix.
func IsChecksummed(s string) bool {
	clean := strings.TrimPrefix(s, "0x")
	if len(clean) != 40 || !strings.HasPrefix(s, "0x") {
		return false
	}
	if _, err := hex.DecodeString(clean); err != nil {
		return false
	}
	return Checksum(clean) == s
}

// Checksum implements EIP-55 mixed-case checksum encoding for a 40-char hex
// string (no prefix). The result carries the 0x prefix.
func Checksum(addr string) string {
	lower := strings.ToLower(addr)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := hex.EncodeToString(h.Sum(nil))

	var result strings.Builder
	result.WriteString("0x")
	for i, c := range lower {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			result.WriteByte(byte(c - 32))
			continue
		}
		result.WriteByte(byte(c))
	}
	return result.String()
}

func isMixedCase(s string) bool {
	return strings.ToLower(s) != s && strings.ToUpper(s) != s
}
