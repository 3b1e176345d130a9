package escrow

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder(t *testing.T) (Order, []byte) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	o := Order{
		Salt:         big.NewInt(1),
		Nonce:        big.NewInt(2),
		Maker:        FromEVM(crypto.PubkeyToAddress(key.PublicKey)),
		MakerAsset:   token,
		TakerAsset:   MustParseAddress("0x5d4b302506645c37ff133b98c4b50a5ae14841659738d6d733d59d0d217a93bf"),
		MakingAmount: big.NewInt(100),
		TakingAmount: big.NewInt(99),
		SrcChainID:   1,
		DstChainID:   2,
	}
	sig, err := o.Sign(key)
	require.NoError(t, err)

	return o, sig
}

func TestOrderSignature(t *testing.T) {
	o, sig := testOrder(t)
	require.NoError(t, o.VerifySignature(sig))

	require.ErrorIs(t, o.VerifySignature(sig[:64]), ErrInvalidSignature)

	tampered := o
	tampered.TakingAmount = big.NewInt(1)
	require.ErrorIs(t, tampered.VerifySignature(sig), ErrInvalidSignature)
}

func TestOrderHashIsStable(t *testing.T) {
	o, _ := testOrder(t)
	require.Equal(t, o.Hash(), o.Hash())

	changed := o
	changed.Nonce = big.NewInt(3)
	require.NotEqual(t, o.Hash(), changed.Hash())
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Order)
		ok     bool
	}{
		{"valid", func(o *Order) {}, true},
		{"no maker", func(o *Order) { o.Maker = ZeroAddress }, false},
		{"zero making", func(o *Order) { o.MakingAmount = big.NewInt(0) }, false},
		{"nil taking", func(o *Order) { o.TakingAmount = nil }, false},
		{"same chain", func(o *Order) { o.DstChainID = o.SrcChainID }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := testOrder(t)
			tt.mutate(&o)
			if tt.ok {
				require.NoError(t, o.Validate())
			} else {
				require.ErrorIs(t, o.Validate(), ErrMalformedOrder)
			}
		})
	}
}

func TestDstReceiver(t *testing.T) {
	o, _ := testOrder(t)
	require.Equal(t, o.Maker, o.DstReceiver())

	o.Receiver = other
	require.Equal(t, other, o.DstReceiver())
}

func TestHashLock(t *testing.T) {
	secret, err := NewSecret()
	require.NoError(t, err)
	lock := ForSingleFill(secret)

	require.True(t, lock.Verify(secret))
	require.False(t, lock.Verify(Secret{}))
	require.False(t, lock.IsZero())

	parsed, err := ParseHashLock(lock.String())
	require.NoError(t, err)
	require.Equal(t, lock, parsed)

	again, err := ParseSecret(secret.String())
	require.NoError(t, err)
	require.Equal(t, secret, again)

	_, err = ParseSecret("0x1234")
	require.Error(t, err)
	_, err = ParseHashLock("zz")
	require.Error(t, err)
}

func TestAddress(t *testing.T) {
	evm := MustParseAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	assert.True(t, evm.IsEVM())
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", evm.String())
	assert.Equal(t, evm, FromEVM(evm.EVM()))

	object := MustParseAddress("0x5d4b302506645c37ff133b98c4b50a5ae14841659738d6d733d59d0d217a93bf")
	assert.False(t, object.IsEVM())
	assert.Equal(t, "0x5d4b302506645c37ff133b98c4b50a5ae14841659738d6d733d59d0d217a93bf", object.String())

	short := MustParseAddress("0xabc")
	assert.Equal(t, byte(0x0a), short[30])
	assert.Equal(t, byte(0xbc), short[31])

	_, err := ParseAddress("0x" + object.String()[2:] + "00")
	require.Error(t, err)
	_, err = ParseAddress("nothex")
	require.Error(t, err)
}

func TestImmutables(t *testing.T) {
	e := newEscrow(t, SideSrc)
	imm := e.Immutables

	data, err := json.Marshal(imm)
	require.NoError(t, err)
	var decoded Immutables
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, imm.Hash(), decoded.Hash())

	// The anchor is part of the commitment.
	unanchored := imm
	unanchored.TimeLocks = NewTimeLocks(testOffsets)
	require.NotEqual(t, imm.Hash(), unanchored.Hash())

	_, err = imm.WithDeployedAt(5)
	require.ErrorIs(t, err, ErrAlreadyAnchored)
	reanchored, err := unanchored.WithDeployedAt(deploy)
	require.NoError(t, err)
	require.Equal(t, imm.Hash(), reanchored.Hash())
	require.False(t, unanchored.TimeLocks.IsAnchored())

	dst := imm.Complement(Leg{Maker: other, Taker: taker, Token: ZeroAddress, Amount: big.NewInt(7)})
	require.Equal(t, imm.OrderHash, dst.OrderHash)
	require.Equal(t, imm.HashLock, dst.HashLock)
	require.Equal(t, imm.TimeLocks, dst.TimeLocks)
	require.Equal(t, other, dst.Maker)
	require.Equal(t, int64(0), dst.SafetyDeposit.Int64())
	require.NoError(t, dst.Validate())
}
