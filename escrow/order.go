package escrow

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// salt, nonce, maker, receiver, makerAsset, takerAsset, makingAmount,
// takingAmount, srcChainId, dstChainId
var orderArgs = abi.Arguments{
	{Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type},
	{Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type},
}

// Order is the maker's signed intent. MakerAsset lives on the source chain,
// TakerAsset on the destination chain. Receiver is the maker's account on the
// destination ledger; when empty the maker address is used.
type Order struct {
	Salt         *big.Int `json:"salt"`
	Nonce        *big.Int `json:"nonce"`
	Maker        Address  `json:"maker"`
	Receiver     Address  `json:"receiver"`
	MakerAsset   Address  `json:"makerAsset"`
	TakerAsset   Address  `json:"takerAsset"`
	MakingAmount *big.Int `json:"makingAmount"`
	TakingAmount *big.Int `json:"takingAmount"`
	SrcChainID   uint64   `json:"srcChainId"`
	DstChainID   uint64   `json:"dstChainId"`
}

func (o Order) Validate() error {
	if o.Maker.IsZero() {
		return fmt.Errorf("%w: missing maker", ErrMalformedOrder)
	}
	if o.MakingAmount == nil || o.MakingAmount.Sign() <= 0 {
		return fmt.Errorf("%w: making amount must be positive", ErrMalformedOrder)
	}
	if o.TakingAmount == nil || o.TakingAmount.Sign() <= 0 {
		return fmt.Errorf("%w: taking amount must be positive", ErrMalformedOrder)
	}
	if o.SrcChainID == o.DstChainID {
		return fmt.Errorf("%w: source and destination chain must differ", ErrMalformedOrder)
	}

	return nil
}

// DstReceiver is the account that receives the taker asset.
func (o Order) DstReceiver() Address {
	if o.Receiver.IsZero() {
		return o.Maker
	}

	return o.Receiver
}

func (o Order) Hash() common.Hash {
	encoded, err := orderArgs.Pack(
		orZero(o.Salt),
		orZero(o.Nonce),
		o.Maker.Big(),
		o.Receiver.Big(),
		o.MakerAsset.Big(),
		o.TakerAsset.Big(),
		orZero(o.MakingAmount),
		orZero(o.TakingAmount),
		new(big.Int).SetUint64(o.SrcChainID),
		new(big.Int).SetUint64(o.DstChainID),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to encode order: %v", err))
	}

	return crypto.Keccak256Hash(encoded)
}

// Sign produces a 65 byte personal-sign signature over the order hash.
func (o Order) Sign(key *ecdsa.PrivateKey) ([]byte, error) {
	hash := o.Hash()
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	return sig, nil
}

// VerifySignature checks that sig was produced by the maker's key.
func (o Order) VerifySignature(sig []byte) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	hash := o.Hash()
	pub, err := crypto.SigToPub(accounts.TextHash(hash.Bytes()), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if FromEVM(crypto.PubkeyToAddress(*pub)) != o.Maker {
		return ErrInvalidSignature
	}

	return nil
}
