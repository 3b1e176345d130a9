package evm

import (
	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/escrow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP-1167 minimal proxy creation code. Escrows are clones of one
// implementation per side, deployed with CREATE2 and the immutables hash as
// salt.
var (
	proxyPrefix = common.FromHex("0x3d602d80600a3d3981f3363d3d373d3d3d363d73")
	proxySuffix = common.FromHex("0x5af43d82803e903d91602b57fd5bf3")
)

func ProxyBytecodeHash(implementation common.Address) common.Hash {
	code := make([]byte, 0, len(proxyPrefix)+common.AddressLength+len(proxySuffix))
	code = append(code, proxyPrefix...)
	code = append(code, implementation.Bytes()...)
	code = append(code, proxySuffix...)

	return crypto.Keccak256Hash(code)
}

func ComputeAddress(factory common.Address, salt common.Hash, implementation common.Address) common.Address {
	return crypto.CreateAddress2(factory, salt, ProxyBytecodeHash(implementation).Bytes())
}

// Deterministic is the addressing capability of EVM chains.
type Deterministic struct {
	Factory           common.Address
	SrcImplementation common.Address
	DstImplementation common.Address
}

var _ chain.DeterministicAddresser = Deterministic{}

func (Deterministic) Strategy() chain.AddressStrategy {
	return chain.DeterministicAddress
}

func (d Deterministic) ComputeAddress(side escrow.Side, imm escrow.Immutables) (escrow.Address, error) {
	if !imm.TimeLocks.IsAnchored() {
		return escrow.Address{}, escrow.ErrNotAnchored
	}

	impl := d.SrcImplementation
	if side == escrow.SideDst {
		impl = d.DstImplementation
	}

	return escrow.FromEVM(ComputeAddress(d.Factory, imm.Hash(), impl)), nil
}
