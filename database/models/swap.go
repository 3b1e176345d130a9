package models

import (
	"math/big"
	"time"

	"github.com/40acres/htlcswap/escrow"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SwapTerms is everything the resolver needs to rebuild both escrows of a swap.
type SwapTerms struct {
	Order            escrow.Order    `json:"order"`
	Signature        hexutil.Bytes   `json:"signature"`
	HashLock         escrow.HashLock `json:"hashlock"`
	TimeLocks        escrow.Offsets  `json:"timelocks"`
	FillAmount       *big.Int        `json:"fillAmount,omitempty"`
	SrcSafetyDeposit *big.Int        `json:"srcSafetyDeposit"`
	DstSafetyDeposit *big.Int        `json:"dstSafetyDeposit"`
}

type Swap struct {
	ID        uint         `gorm:"primaryKey;autoIncrement"`
	OrderHash string       `gorm:"not null;uniqueIndex"`
	Status    SwapStatus   `gorm:"type:swap_status;not null"`
	Outcome   *SwapOutcome `gorm:"type:swap_outcome"`
	SrcChain  string       `gorm:"not null"`
	DstChain  string       `gorm:"not null"`
	Terms     SwapTerms    `gorm:"type:jsonb;serializer:json;not null"`
	// Set once known: generated locally, supplied by the maker or read from the dst chain.
	Secret *escrow.Secret `gorm:"serializer:secret"`

	SrcEscrow     string
	DstEscrow     string
	SrcImmutables *escrow.Immutables `gorm:"type:jsonb;serializer:json"`
	DstImmutables *escrow.Immutables `gorm:"type:jsonb;serializer:json"`
	DeployedAt    int64

	SrcCreateTx string
	DstCreateTx string
	DstSettleTx string
	SrcSettleTx string

	LastError string
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Swap) TableName() string {
	return "swaps"
}

func (s *Swap) IsDone() bool {
	return s.Status == StatusDone
}
