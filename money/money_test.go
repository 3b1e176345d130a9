package money

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToken_ToBaseUnits(t *testing.T) {
	usdc := Token{Symbol: "USDC", Decimals: 6}

	tests := []struct {
		name    string
		token   Token
		amount  decimal.Decimal
		want    *big.Int
		wantErr bool
	}{
		{
			name:   "ToBaseUnits - Pass",
			token:  Ether,
			amount: decimal.NewFromInt(1),
			want:   new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil),
		},
		{
			name:   "ToBaseUnits - Fractional",
			token:  usdc,
			amount: decimal.RequireFromString("1.5"),
			want:   big.NewInt(1_500_000),
		},
		{
			name:    "ToBaseUnits - Fail Negative Amount",
			token:   usdc,
			amount:  decimal.NewFromInt(-1),
			wantErr: true,
		},
		{
			name:    "ToBaseUnits - Fail Too Precise",
			token:   usdc,
			amount:  decimal.RequireFromString("0.0000001"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.token.ToBaseUnits(tt.amount)
			if (err != nil) != tt.wantErr {
				t.Errorf("ToBaseUnits() error = %v, wantErr %v", err, tt.wantErr)

				return
			}
			if !tt.wantErr && got.Cmp(tt.want) != 0 {
				t.Errorf("ToBaseUnits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToken_FromBaseUnits(t *testing.T) {
	tests := []struct {
		name  string
		units *big.Int
		want  decimal.Decimal
	}{
		{
			name:  "From base units - Pass",
			units: big.NewInt(1_500_000_000_000_000_000),
			want:  decimal.RequireFromString("1.5"),
		},
		{
			name:  "From base units - Nil",
			units: nil,
			want:  decimal.Zero,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ether.FromBaseUnits(tt.units); !got.Equal(tt.want) {
				t.Errorf("FromBaseUnits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToken_Format(t *testing.T) {
	got := Token{Symbol: "USDC", Decimals: 6}.Format(big.NewInt(2_250_000))
	if got != "2.25 USDC" {
		t.Errorf("Format() = %q", got)
	}
}
