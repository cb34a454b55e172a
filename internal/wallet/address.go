package wallet

import (
	"strings"

	"golang.org/x/crypto/sha3"

	dErrors "blockship/pkg/domain-errors"
)

// NormalizeAddress canonicalizes a wallet address to its EIP-55 checksummed
// form: Keccak-256 over the lowercase hex digits decides the case of every
// letter. Addresses are normalized once, at the gate boundary, so every
// downstream equality check and display works from one canonical form.
func NormalizeAddress(address string) (string, error) {
	hexPart := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(address)), "0x")
	if len(hexPart) != 40 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address must be 20 bytes of hex")
	}
	for _, c := range hexPart {
		if !isHexDigit(c) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "wallet address contains non-hex characters")
		}
	}

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(hexPart))
	hash := hasher.Sum(nil)

	out := make([]byte, 40)
	for i := 0; i < 40; i++ {
		c := hexPart[i]
		if c >= 'a' && c <= 'f' {
			nibble := hash[i/2] >> 4
			if i%2 == 1 {
				nibble = hash[i/2] & 0x0f
			}
			if nibble >= 8 {
				c = c - 'a' + 'A'
			}
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// AddressesEqual compares two addresses case-insensitively, so mixed-case
// input and the canonical form compare equal.
func AddressesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// TruncateAddress shortens an address for display: first 6 and last 4
// characters. Anything too short to truncate is returned as-is.
func TruncateAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
