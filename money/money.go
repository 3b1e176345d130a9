// Package money converts between human readable token amounts and the base
// units escrows hold.
package money

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ErrNegativeAmount is returned when trying to convert a negative amount.
var ErrNegativeAmount = errors.New("amount cannot be negative")

// ErrTooPrecise is returned when an amount has more decimals than the token.
var ErrTooPrecise = errors.New("amount is more precise than the token")

// Token describes how many decimals one whole token has.
type Token struct {
	Symbol   string
	Decimals int32
}

// Ether is the native EVM token.
var Ether = Token{Symbol: "ETH", Decimals: 18}

func (t Token) ToBaseUnits(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	shifted := amount.Shift(t.Decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("%w: %s has %d decimals", ErrTooPrecise, t.Symbol, t.Decimals)
	}

	return shifted.BigInt(), nil
}

func (t Token) FromBaseUnits(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(units, -t.Decimals)
}

// Format renders units as "1.5 ETH".
func (t Token) Format(units *big.Int) string {
	return fmt.Sprintf("%s %s", t.FromBaseUnits(units).String(), t.Symbol)
}

// ParseAmount parses a decimal string into base units.
func (t Token) ParseAmount(s string) (*big.Int, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", s, err)
	}

	return t.ToBaseUnits(amount)
}
