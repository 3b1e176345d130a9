package models

import (
	"context"
	"encoding/json"
	"math/big"
	"reflect"
	"testing"

	"github.com/40acres/htlcswap/escrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestSwapStatus(t *testing.T) {
	var s SwapStatus
	require.NoError(t, s.Scan([]byte("SECRET_REVEALED")))
	require.Equal(t, StatusSecretRevealed, s)
	require.True(t, s.IsValid())
	require.Error(t, s.Scan(42))
	require.False(t, SwapStatus("LOST").IsValid())

	v, err := StatusCancelling.Value()
	require.NoError(t, err)
	require.Equal(t, "CANCELLING", v)
}

func TestSwapOutcome(t *testing.T) {
	var o SwapOutcome
	require.NoError(t, o.Scan("CANCELLED"))
	require.Equal(t, OutcomeCancelled, o)
	require.NoError(t, o.Scan(nil))
	require.Equal(t, SwapOutcome(""), o)

	v, err := o.Value()
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSecretSerializer(t *testing.T) {
	ctx := context.Background()
	field := &schema.Field{Name: "Secret", FieldType: reflect.TypeOf((*escrow.Secret)(nil))}
	secret := escrow.Secret{0xaa, 0xbb}

	value, err := SecretSerializer{}.Value(ctx, field, reflect.Value{}, &secret)
	require.NoError(t, err)
	require.Equal(t, secret.String(), value)

	value, err = SecretSerializer{}.Value(ctx, field, reflect.Value{}, (*escrow.Secret)(nil))
	require.NoError(t, err)
	require.Nil(t, value)

	var swap Swap
	require.NoError(t, SecretSerializer{}.Scan(ctx, field, reflect.ValueOf(&swap), []byte(secret.String())))
	require.NotNil(t, swap.Secret)
	require.Equal(t, secret, *swap.Secret)

	require.NoError(t, SecretSerializer{}.Scan(ctx, field, reflect.ValueOf(&swap), ""))
	require.Nil(t, swap.Secret)

	require.Error(t, SecretSerializer{}.Scan(ctx, field, reflect.ValueOf(&swap), "0x12"))
	require.Error(t, SecretSerializer{}.Scan(ctx, field, reflect.ValueOf(&swap), 12))
}

func TestSwapTermsJSON(t *testing.T) {
	terms := SwapTerms{
		Order: escrow.Order{
			Maker:        escrow.MustParseAddress("0xaa"),
			MakingAmount: big.NewInt(100),
			TakingAmount: big.NewInt(99),
			SrcChainID:   1,
			DstChainID:   2,
		},
		Signature:        []byte{1, 2, 3},
		HashLock:         escrow.ForSingleFill(escrow.Secret{1}),
		TimeLocks:        escrow.Offsets{SrcWithdrawal: 10, DstCancellation: 250},
		SrcSafetyDeposit: big.NewInt(5),
		DstSafetyDeposit: big.NewInt(7),
	}

	data, err := json.Marshal(terms)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"signature":"0x010203"`)
	assert.NotContains(t, string(data), "fillAmount")

	var decoded SwapTerms
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, terms.Order.Hash(), decoded.Order.Hash())
	assert.Equal(t, terms.HashLock, decoded.HashLock)
	assert.Equal(t, terms.TimeLocks, decoded.TimeLocks)
	assert.Equal(t, int64(7), decoded.DstSafetyDeposit.Int64())
}

func TestIsDone(t *testing.T) {
	require.True(t, (&Swap{Status: StatusDone}).IsDone())
	require.False(t, (&Swap{Status: StatusCancelling}).IsDone())
}
