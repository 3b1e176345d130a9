// Package wallet derives the resolver's signing keys from a BIP39 mnemonic.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/40acres/htlcswap/escrow"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// NewMnemonic returns a fresh 24 word mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", fmt.Errorf("failed to create entropy: %w", err)
	}

	return bip39.NewMnemonic(entropy)
}

// DeriveKey derives the key at m/44'/60'/0'/0/{index}.
func DeriveKey(mnemonic string, index uint32) (*ecdsa.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	path := []uint32{
		bip32.FirstHardenedChild + 44,
		bip32.FirstHardenedChild + 60,
		bip32.FirstHardenedChild,
		0,
		index,
	}
	for _, child := range path {
		key, err = key.NewChildKey(child)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d: %w", child, err)
		}
	}

	privateKey, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to convert key: %w", err)
	}

	return privateKey, nil
}

// DeriveAddress is the resolver account of the key at index.
func DeriveAddress(mnemonic string, index uint32) (escrow.Address, error) {
	key, err := DeriveKey(mnemonic, index)
	if err != nil {
		return escrow.Address{}, err
	}

	return escrow.FromEVM(crypto.PubkeyToAddress(key.PublicKey)), nil
}
