package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Standard test vector shared by most Ethereum wallets.
const testMnemonic = "test test test test test test test test test test test junk"

func TestDeriveAddress(t *testing.T) {
	tests := []struct {
		index    uint32
		expected string
	}{
		{0, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		{1, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
	}

	for _, tt := range tests {
		addr, err := DeriveAddress(testMnemonic, tt.index)
		require.NoError(t, err)
		require.Equal(t, tt.expected, addr.String())
	}
}

func TestDeriveKeyInvalidMnemonic(t *testing.T) {
	_, err := DeriveKey("not a mnemonic", 0)
	require.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)

	_, err = DeriveKey(mnemonic, 0)
	require.NoError(t, err)
}
