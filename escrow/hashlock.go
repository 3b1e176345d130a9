package escrow

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Secret is the 32-byte preimage that unlocks both legs of a swap.
type Secret [32]byte

func NewSecret() (Secret, error) {
	var s Secret
	if _, err := rand.Read(s[:]); err != nil {
		return s, fmt.Errorf("failed to generate secret: %w", err)
	}

	return s, nil
}

func ParseSecret(str string) (Secret, error) {
	var s Secret

	b, err := hex.DecodeString(trimHex(str))
	if err != nil {
		return s, fmt.Errorf("secret is not a valid hex string: %w", err)
	}
	if len(b) != len(s) {
		return s, fmt.Errorf("secret must be %d bytes, got %d", len(s), len(b))
	}
	copy(s[:], b)

	return s, nil
}

func (s Secret) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

// HashLock commits to a secret. Only the hash is ever part of the escrow
// immutables.
type HashLock [32]byte

// ForSingleFill returns the lock used verbatim by both the src and the dst
// escrow of a single-fill order.
func ForSingleFill(secret Secret) HashLock {
	return HashLock(crypto.Keccak256Hash(secret[:]))
}

func ParseHashLock(str string) (HashLock, error) {
	var h HashLock

	b, err := hex.DecodeString(trimHex(str))
	if err != nil {
		return h, fmt.Errorf("hashlock is not a valid hex string: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hashlock must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)

	return h, nil
}

func (h HashLock) Verify(candidate Secret) bool {
	return ForSingleFill(candidate) == h
}

func (h HashLock) IsZero() bool {
	return h == HashLock{}
}

func (h HashLock) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func trimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}

	return s
}
