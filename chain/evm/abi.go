package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/40acres/htlcswap/escrow"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const immutablesComponents = `[
	{"name":"orderHash","type":"bytes32"},
	{"name":"hashlock","type":"bytes32"},
	{"name":"maker","type":"uint256"},
	{"name":"taker","type":"uint256"},
	{"name":"token","type":"uint256"},
	{"name":"amount","type":"uint256"},
	{"name":"safetyDeposit","type":"uint256"},
	{"name":"timelocks","type":"uint256"}
]`

const orderComponents = `[
	{"name":"salt","type":"uint256"},
	{"name":"nonce","type":"uint256"},
	{"name":"maker","type":"uint256"},
	{"name":"receiver","type":"uint256"},
	{"name":"makerAsset","type":"uint256"},
	{"name":"takerAsset","type":"uint256"},
	{"name":"makingAmount","type":"uint256"},
	{"name":"takingAmount","type":"uint256"},
	{"name":"srcChainId","type":"uint256"},
	{"name":"dstChainId","type":"uint256"}
]`

// FactoryABI covers the escrow factory: dst creation and the creation
// events of both sides.
var FactoryABI = `[
	{"type":"function","name":"createDstEscrow","stateMutability":"payable","inputs":[
		{"name":"dstImmutables","type":"tuple","components":` + immutablesComponents + `},
		{"name":"srcCancellationTimestamp","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"SrcEscrowCreated","anonymous":false,"inputs":[
		{"name":"srcImmutables","type":"tuple","indexed":false,"components":` + immutablesComponents + `}]},
	{"type":"event","name":"DstEscrowCreated","anonymous":false,"inputs":[
		{"name":"escrow","type":"address","indexed":false},
		{"name":"hashlock","type":"bytes32","indexed":false},
		{"name":"taker","type":"uint256","indexed":false}]},
	{"type":"error","name":"InsufficientEscrowBalance","inputs":[]},
	{"type":"error","name":"InvalidCreationTime","inputs":[]}
]`

// ResolverABI is the resolver contract that fills an order through the
// limit order protocol and deploys the src escrow in the same transaction.
var ResolverABI = `[
	{"type":"function","name":"deploySrc","stateMutability":"payable","inputs":[
		{"name":"immutables","type":"tuple","components":` + immutablesComponents + `},
		{"name":"order","type":"tuple","components":` + orderComponents + `},
		{"name":"signature","type":"bytes"},
		{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"error","name":"BadSignature","inputs":[]},
	{"type":"error","name":"OrderAlreadyFilled","inputs":[]}
]`

// EscrowABI is shared by the src and dst implementations. publicCancel only
// exists on src.
var EscrowABI = `[
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[
		{"name":"secret","type":"bytes32"},
		{"name":"immutables","type":"tuple","components":` + immutablesComponents + `}],"outputs":[]},
	{"type":"function","name":"publicWithdraw","stateMutability":"nonpayable","inputs":[
		{"name":"secret","type":"bytes32"},
		{"name":"immutables","type":"tuple","components":` + immutablesComponents + `}],"outputs":[]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[
		{"name":"immutables","type":"tuple","components":` + immutablesComponents + `}],"outputs":[]},
	{"type":"function","name":"publicCancel","stateMutability":"nonpayable","inputs":[
		{"name":"immutables","type":"tuple","components":` + immutablesComponents + `}],"outputs":[]},
	{"type":"event","name":"EscrowWithdrawal","anonymous":false,"inputs":[
		{"name":"secret","type":"bytes32","indexed":false}]},
	{"type":"event","name":"EscrowCancelled","anonymous":false,"inputs":[]},
	{"type":"error","name":"InvalidCaller","inputs":[]},
	{"type":"error","name":"InvalidImmutables","inputs":[]},
	{"type":"error","name":"InvalidSecret","inputs":[]},
	{"type":"error","name":"InvalidTime","inputs":[]},
	{"type":"error","name":"NativeTokenSendingFailure","inputs":[]}
]`

// ERC20ABI is the subset used to check funding before locking tokens.
var ERC20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

type contracts struct {
	factory  abi.ABI
	resolver abi.ABI
	escrow   abi.ABI
	erc20    abi.ABI
}

func parseContracts() (*contracts, error) {
	var c contracts
	for _, def := range []struct {
		name string
		json string
		dst  *abi.ABI
	}{
		{"factory", FactoryABI, &c.factory},
		{"resolver", ResolverABI, &c.resolver},
		{"escrow", EscrowABI, &c.escrow},
		{"erc20", ERC20ABI, &c.erc20},
	} {
		parsed, err := abi.JSON(strings.NewReader(def.json))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s abi: %w", def.name, err)
		}
		*def.dst = parsed
	}

	return &c, nil
}

// immutablesTuple mirrors the Immutables struct of the contracts.
type immutablesTuple struct {
	OrderHash     [32]byte
	Hashlock      [32]byte
	Maker         *big.Int
	Taker         *big.Int
	Token         *big.Int
	Amount        *big.Int
	SafetyDeposit *big.Int
	Timelocks     *big.Int
}

type orderTuple struct {
	Salt         *big.Int
	Nonce        *big.Int
	Maker        *big.Int
	Receiver     *big.Int
	MakerAsset   *big.Int
	TakerAsset   *big.Int
	MakingAmount *big.Int
	TakingAmount *big.Int
	SrcChainId   *big.Int
	DstChainId   *big.Int
}

func toTuple(imm escrow.Immutables) immutablesTuple {
	return immutablesTuple{
		OrderHash:     [32]byte(imm.OrderHash),
		Hashlock:      [32]byte(imm.HashLock),
		Maker:         imm.Maker.Big(),
		Taker:         imm.Taker.Big(),
		Token:         imm.Token.Big(),
		Amount:        bigOrZero(imm.Amount),
		SafetyDeposit: bigOrZero(imm.SafetyDeposit),
		Timelocks:     imm.TimeLocks.Pack(),
	}
}

func fromTuple(t immutablesTuple) escrow.Immutables {
	return escrow.Immutables{
		OrderHash:     common.Hash(t.OrderHash),
		HashLock:      escrow.HashLock(t.Hashlock),
		Maker:         addressFromBig(t.Maker),
		Taker:         addressFromBig(t.Taker),
		Token:         addressFromBig(t.Token),
		Amount:        new(big.Int).Set(t.Amount),
		SafetyDeposit: new(big.Int).Set(t.SafetyDeposit),
		TimeLocks:     escrow.UnpackTimeLocks(t.Timelocks),
	}
}

func toOrderTuple(o escrow.Order) orderTuple {
	return orderTuple{
		Salt:         bigOrZero(o.Salt),
		Nonce:        bigOrZero(o.Nonce),
		Maker:        o.Maker.Big(),
		Receiver:     o.Receiver.Big(),
		MakerAsset:   o.MakerAsset.Big(),
		TakerAsset:   o.TakerAsset.Big(),
		MakingAmount: bigOrZero(o.MakingAmount),
		TakingAmount: bigOrZero(o.TakingAmount),
		SrcChainId:   new(big.Int).SetUint64(o.SrcChainID),
		DstChainId:   new(big.Int).SetUint64(o.DstChainID),
	}
}

func addressFromBig(v *big.Int) escrow.Address {
	var a escrow.Address
	if v != nil {
		v.FillBytes(a[:])
	}

	return a
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
