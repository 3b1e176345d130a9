package escrow

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an account, asset or escrow object on either ledger.
// EVM addresses are stored left-padded to 32 bytes so both chain kinds share
// the uint256 encoding used when hashing immutables.
type Address [32]byte

// ZeroAddress is the native asset on every ledger.
var ZeroAddress Address

func ParseAddress(s string) (Address, error) {
	var a Address

	raw := trimHex(s)
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) > len(a) {
		return a, fmt.Errorf("invalid address %q: longer than 32 bytes", s)
	}
	copy(a[len(a)-len(b):], b)

	return a, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}

	return a
}

func FromEVM(addr common.Address) Address {
	var a Address
	copy(a[12:], addr.Bytes())

	return a
}

func (a Address) EVM() common.Address {
	return common.BytesToAddress(a[12:])
}

// IsEVM reports whether the upper 12 bytes are zero.
func (a Address) IsEVM() bool {
	for _, b := range a[:12] {
		if b != 0 {
			return false
		}
	}

	return true
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) Big() *big.Int {
	return new(big.Int).SetBytes(a[:])
}

// String prints EVM addresses in their checksummed 20-byte form and every
// other identifier as full 32-byte hex.
func (a Address) String() string {
	if a.IsEVM() {
		return a.EVM().Hex()
	}

	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed

	return nil
}
