// Package chain defines the seam between the chain-agnostic swap protocol and
// the ledgers that host the escrows. Each supported chain provides an Adapter;
// everything else only talks to this interface.
package chain

import (
	"context"
	"math/big"

	"github.com/40acres/htlcswap/escrow"
	"github.com/ethereum/go-ethereum/common"
)

//go:generate go tool mockgen -destination=mock.go -package=chain . Adapter

type Kind string

const (
	KindEVM    Kind = "evm"
	KindObject Kind = "object"
)

func (k Kind) IsValid() bool {
	return k == KindEVM || k == KindObject
}

// SrcRequest fills an order on the source chain. Immutables carry the
// resolver's terms but no deployment anchor: the chain sets it.
type SrcRequest struct {
	Order      escrow.Order
	Signature  []byte
	FillAmount *big.Int
	Immutables escrow.Immutables
}

// DstRequest locks the resolver's funds on the destination chain.
// Immutables are already anchored at the src deployment time and
// SrcCancellation is the absolute src cancellation deadline the dst
// cancellation must not exceed.
type DstRequest struct {
	Immutables      escrow.Immutables
	SrcCancellation uint64
}

// Created is what a factory call leaves on chain.
type Created struct {
	Immutables escrow.Immutables
	Address    escrow.Address
	DeployedAt uint32
	TxHash     string
	// Effects are only reported by object chains.
	Effects *TxEffects
}

type Receipt struct {
	TxHash string
}

// Status is the observed state of an escrow. Secret is set once a withdrawal
// has published it.
type Status struct {
	State  escrow.State
	Secret *escrow.Secret
}

type Adapter interface {
	// Name identifies the chain in logs and persisted swaps.
	Name() string
	Kind() Kind
	Addressing() Addressing
	// Resolver is the account this adapter signs with, the taker of every
	// escrow it creates.
	Resolver() escrow.Address
	// Now is the timestamp of the latest block. Phase math is always done
	// against the chain that enforces it.
	Now(ctx context.Context) (uint64, error)

	CreateSrcEscrow(ctx context.Context, req SrcRequest) (*Created, error)
	CreateDstEscrow(ctx context.Context, req DstRequest) (*Created, error)

	Withdraw(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret escrow.Secret) (*Receipt, error)
	PublicWithdraw(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret escrow.Secret) (*Receipt, error)
	Cancel(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*Receipt, error)
	PublicCancel(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*Receipt, error)

	EscrowStatus(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*Status, error)
	// FindEscrow looks up the escrow an order already created on this chain,
	// escrow.ErrEscrowNotFound when there is none. It lets a restarted resolver
	// pick up an escrow whose creation it never recorded.
	FindEscrow(ctx context.Context, side escrow.Side, orderHash common.Hash) (*Created, error)
}
