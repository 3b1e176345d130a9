package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/40acres/htlcswap/escrow"
)

// AddressStrategy is how a chain gives an escrow its identity.
//
// Chains with deterministic deployment (CREATE2 on EVM) let the resolver
// compute the escrow address from the immutables before any transaction is
// sent. Object chains assign a fresh object id when the creating transaction
// executes, so the id can only be read from that transaction's effects.
// ResolveAddress is the one place the protocol branches on this.
type AddressStrategy int

const (
	DeterministicAddress AddressStrategy = iota
	ObservedObjectID
)

func (s AddressStrategy) String() string {
	switch s {
	case DeterministicAddress:
		return "deterministic"
	case ObservedObjectID:
		return "observed"
	default:
		return fmt.Sprintf("AddressStrategy(%d)", int(s))
	}
}

// Addressing is the capability an adapter declares. It is implemented by
// exactly one of DeterministicAddresser or CreatedIDObserver.
type Addressing interface {
	Strategy() AddressStrategy
}

type DeterministicAddresser interface {
	Addressing
	ComputeAddress(side escrow.Side, imm escrow.Immutables) (escrow.Address, error)
}

type CreatedIDObserver interface {
	Addressing
	ObserveCreatedID(side escrow.Side, effects TxEffects) (escrow.Address, error)
}

var ErrNoCreatedEscrow = errors.New("transaction effects contain no created escrow")

// ResolveAddress returns the identity of an escrow. effects may be nil for
// deterministic chains.
func ResolveAddress(addressing Addressing, side escrow.Side, imm escrow.Immutables, effects *TxEffects) (escrow.Address, error) {
	switch addressing.Strategy() {
	case DeterministicAddress:
		d, ok := addressing.(DeterministicAddresser)
		if !ok {
			return escrow.Address{}, fmt.Errorf("addressing declares %s but cannot compute addresses", addressing.Strategy())
		}

		return d.ComputeAddress(side, imm)
	case ObservedObjectID:
		o, ok := addressing.(CreatedIDObserver)
		if !ok {
			return escrow.Address{}, fmt.Errorf("addressing declares %s but cannot observe ids", addressing.Strategy())
		}
		if effects == nil {
			return escrow.Address{}, fmt.Errorf("%w: no effects reported", ErrNoCreatedEscrow)
		}

		return o.ObserveCreatedID(side, *effects)
	default:
		return escrow.Address{}, fmt.Errorf("unknown address strategy %s", addressing.Strategy())
	}
}

// Predict returns the escrow address ahead of creation when the chain allows
// it.
func Predict(addressing Addressing, side escrow.Side, imm escrow.Immutables) (escrow.Address, bool, error) {
	if addressing.Strategy() != DeterministicAddress {
		return escrow.Address{}, false, nil
	}
	addr, err := ResolveAddress(addressing, side, imm, nil)
	if err != nil {
		return escrow.Address{}, false, err
	}

	return addr, true, nil
}

// ObjectChange is one entry of a transaction's effects.
type ObjectChange struct {
	ObjectID   escrow.Address `json:"objectId"`
	ObjectType string         `json:"objectType"`
	Owner      escrow.Address `json:"owner"`
}

// TxEffects is the part of an executed object-chain transaction the protocol
// reads.
type TxEffects struct {
	Digest  string           `json:"digest"`
	Created []ObjectChange   `json:"created"`
	Mutated []ObjectChange   `json:"mutated"`
	Deleted []escrow.Address `json:"deleted"`
}

// ObjectIDs observes escrow ids on an object chain by matching the type of
// created objects against the package's escrow types.
type ObjectIDs struct {
	SrcType string
	DstType string
}

func (ObjectIDs) Strategy() AddressStrategy {
	return ObservedObjectID
}

func (o ObjectIDs) ObserveCreatedID(side escrow.Side, effects TxEffects) (escrow.Address, error) {
	want := o.SrcType
	if side == escrow.SideDst {
		want = o.DstType
	}

	var found []escrow.Address
	for _, created := range effects.Created {
		if typeMatches(created.ObjectType, want) {
			found = append(found, created.ObjectID)
		}
	}

	switch len(found) {
	case 0:
		return escrow.Address{}, fmt.Errorf("%w: tx %s has no %s object", ErrNoCreatedEscrow, effects.Digest, want)
	case 1:
		return found[0], nil
	default:
		return escrow.Address{}, fmt.Errorf("tx %s created %d %s objects, expected one", effects.Digest, len(found), want)
	}
}

// typeMatches compares object types ignoring generic parameters, so
// "pkg::escrow::SrcEscrow<0x2::sui::SUI>" matches "pkg::escrow::SrcEscrow".
func typeMatches(objectType, want string) bool {
	if i := strings.IndexByte(objectType, '<'); i >= 0 {
		objectType = objectType[:i]
	}

	return objectType == want
}
