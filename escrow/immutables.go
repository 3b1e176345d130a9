package escrow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	// orderHash, hashlock, maker, taker, token, amount, safetyDeposit, timelocks
	immutablesArgs = abi.Arguments{
		{Type: bytes32Type},
		{Type: bytes32Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
		{Type: uint256Type},
	}
)

// Immutables is the frozen parameter set of one escrow. Its hash is the
// commitment deterministic address derivation is based on.
type Immutables struct {
	OrderHash     common.Hash `json:"orderHash"`
	HashLock      HashLock    `json:"hashlock"`
	Maker         Address     `json:"maker"`
	Taker         Address     `json:"taker"`
	Token         Address     `json:"token"`
	Amount        *big.Int    `json:"amount"`
	SafetyDeposit *big.Int    `json:"safetyDeposit"`
	TimeLocks     TimeLocks   `json:"timelocks"`
}

// Leg is the side specific part of a set of immutables.
type Leg struct {
	Maker         Address
	Taker         Address
	Token         Address
	Amount        *big.Int
	SafetyDeposit *big.Int
}

func (i Immutables) Validate() error {
	if i.OrderHash == (common.Hash{}) {
		return fmt.Errorf("%w: missing order hash", ErrMalformedOrder)
	}
	if i.HashLock.IsZero() {
		return fmt.Errorf("%w: missing hashlock", ErrMalformedOrder)
	}
	if i.Maker.IsZero() || i.Taker.IsZero() {
		return fmt.Errorf("%w: maker and taker are required", ErrMalformedOrder)
	}
	if i.Amount == nil || i.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrMalformedOrder)
	}
	if i.SafetyDeposit == nil || i.SafetyDeposit.Sign() < 0 {
		return fmt.Errorf("%w: safety deposit must not be negative", ErrMalformedOrder)
	}

	return nil
}

// Encode returns the ABI encoding the escrow contracts hash.
func (i Immutables) Encode() ([]byte, error) {
	return immutablesArgs.Pack(
		[32]byte(i.OrderHash),
		[32]byte(i.HashLock),
		i.Maker.Big(),
		i.Taker.Big(),
		i.Token.Big(),
		orZero(i.Amount),
		orZero(i.SafetyDeposit),
		i.TimeLocks.Pack(),
	)
}

func (i Immutables) Hash() common.Hash {
	encoded, err := i.Encode()
	if err != nil {
		// Every argument is a fixed size word, packing cannot fail.
		panic(fmt.Sprintf("failed to encode immutables: %v", err))
	}

	return crypto.Keccak256Hash(encoded)
}

// WithDeployedAt returns a copy anchored at ts. The receiver is untouched.
func (i Immutables) WithDeployedAt(ts uint32) (Immutables, error) {
	out := i
	if err := out.TimeLocks.SetDeployedAt(ts); err != nil {
		return Immutables{}, err
	}

	return out, nil
}

// Complement builds the immutables of the other leg. Order hash, hashlock
// and the anchored timelocks are carried over unchanged.
func (i Immutables) Complement(leg Leg) Immutables {
	return Immutables{
		OrderHash:     i.OrderHash,
		HashLock:      i.HashLock,
		Maker:         leg.Maker,
		Taker:         leg.Taker,
		Token:         leg.Token,
		Amount:        new(big.Int).Set(orZero(leg.Amount)),
		SafetyDeposit: new(big.Int).Set(orZero(leg.SafetyDeposit)),
		TimeLocks:     i.TimeLocks,
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
