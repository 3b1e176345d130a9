// Package events carries escrow lifecycle notifications from chain adapters
// to whoever watches them: the orchestrator, the notifier, operators.
package events

import (
	"fmt"

	"github.com/40acres/htlcswap/escrow"
	"github.com/ethereum/go-ethereum/common"
)

type Kind string

const (
	EscrowCreated   Kind = "escrow_created"
	EscrowWithdrawn Kind = "escrow_withdrawn"
	EscrowCancelled Kind = "escrow_cancelled"
)

type Event struct {
	Kind           Kind
	Chain          string
	Side           escrow.Side
	OrderHash      common.Hash
	ImmutablesHash common.Hash
	Address        escrow.Address
	DeployedAt     uint32
	// Secret is set on withdrawals. From that point on it is public.
	Secret *escrow.Secret
	TxHash string
}

func Created(chain string, side escrow.Side, imm escrow.Immutables, addr escrow.Address, txHash string) Event {
	return Event{
		Kind:           EscrowCreated,
		Chain:          chain,
		Side:           side,
		OrderHash:      imm.OrderHash,
		ImmutablesHash: imm.Hash(),
		Address:        addr,
		DeployedAt:     imm.TimeLocks.DeployedAt(),
		TxHash:         txHash,
	}
}

func Withdrawn(chain string, side escrow.Side, orderHash common.Hash, addr escrow.Address, secret escrow.Secret, txHash string) Event {
	return Event{
		Kind:      EscrowWithdrawn,
		Chain:     chain,
		Side:      side,
		OrderHash: orderHash,
		Address:   addr,
		Secret:    &secret,
		TxHash:    txHash,
	}
}

func Cancelled(chain string, side escrow.Side, orderHash common.Hash, addr escrow.Address, txHash string) Event {
	return Event{
		Kind:      EscrowCancelled,
		Chain:     chain,
		Side:      side,
		OrderHash: orderHash,
		Address:   addr,
		TxHash:    txHash,
	}
}

func (e Event) String() string {
	switch e.Kind {
	case EscrowCreated:
		return fmt.Sprintf("%s escrow %s created on %s (deployedAt=%d)", e.Side, e.Address, e.Chain, e.DeployedAt)
	case EscrowWithdrawn:
		return fmt.Sprintf("%s escrow %s withdrawn on %s", e.Side, e.Address, e.Chain)
	case EscrowCancelled:
		return fmt.Sprintf("%s escrow %s cancelled on %s", e.Side, e.Address, e.Chain)
	default:
		return fmt.Sprintf("%s: %s escrow %s on %s", e.Kind, e.Side, e.Address, e.Chain)
	}
}
