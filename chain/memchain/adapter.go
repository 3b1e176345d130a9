package memchain

import (
	"context"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/escrow"
	"github.com/ethereum/go-ethereum/common"
)

// Adapter is a ledger seen through one signing account.
type Adapter struct {
	ledger  *Ledger
	account escrow.Address
}

var _ chain.Adapter = (*Adapter)(nil)

func (a *Adapter) Name() string {
	return a.ledger.name
}

func (a *Adapter) Kind() chain.Kind {
	return a.ledger.kind
}

func (a *Adapter) Addressing() chain.Addressing {
	return a.ledger.addressing
}

func (a *Adapter) Resolver() escrow.Address {
	return a.account
}

func (a *Adapter) Ledger() *Ledger {
	return a.ledger
}

func (a *Adapter) Now(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return a.ledger.Time(), nil
}

func (a *Adapter) CreateSrcEscrow(ctx context.Context, req chain.SrcRequest) (*chain.Created, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.createSrc(a.account, req)
}

func (a *Adapter) CreateDstEscrow(ctx context.Context, req chain.DstRequest) (*chain.Created, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.createDst(a.account, req)
}

func (a *Adapter) Withdraw(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret escrow.Secret) (*chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.transition(a.account, escrow.ActionWithdraw, side, addr, imm, &secret)
}

func (a *Adapter) PublicWithdraw(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret escrow.Secret) (*chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.transition(a.account, escrow.ActionPublicWithdraw, side, addr, imm, &secret)
}

func (a *Adapter) Cancel(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.transition(a.account, escrow.ActionCancel, side, addr, imm, nil)
}

func (a *Adapter) PublicCancel(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.transition(a.account, escrow.ActionPublicCancel, side, addr, imm, nil)
}

func (a *Adapter) EscrowStatus(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.status(side, addr, imm)
}

func (a *Adapter) FindEscrow(ctx context.Context, side escrow.Side, orderHash common.Hash) (*chain.Created, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return a.ledger.find(side, orderHash)
}
