package evm

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/events"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	log "github.com/sirupsen/logrus"
)

const (
	defaultGasLimit    = 500_000
	defaultLogLookback = 50_000
	defaultPollPeriod  = 2 * time.Second
)

type Config struct {
	Name              string
	ChainID           *big.Int
	Factory           common.Address
	SrcImplementation common.Address
	DstImplementation common.Address
	// ResolverContract fills orders and deploys src escrows.
	ResolverContract common.Address
	// Confirmations to wait after inclusion before a transaction counts.
	Confirmations uint64
	LogLookback   uint64
	GasLimit      uint64
	PollPeriod    time.Duration
	// AutoApprove lets the adapter approve the factory for the dst token
	// instead of failing with ErrInsufficientApproval.
	AutoApprove bool
}

// Adapter drives the escrow contracts of one EVM chain with one resolver key.
type Adapter struct {
	cfg        Config
	backend    Backend
	key        *ecdsa.PrivateKey
	from       common.Address
	addressing Deterministic
	contracts  *contracts
	bus        events.Publisher
}

var _ chain.Adapter = (*Adapter)(nil)

func NewAdapter(cfg Config, backend Backend, key *ecdsa.PrivateKey, bus events.Publisher) (*Adapter, error) {
	if cfg.ChainID == nil {
		return nil, errors.New("chain id is required")
	}
	if cfg.Factory == (common.Address{}) {
		return nil, errors.New("factory address is required")
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = defaultGasLimit
	}
	if cfg.LogLookback == 0 {
		cfg.LogLookback = defaultLogLookback
	}
	if cfg.PollPeriod == 0 {
		cfg.PollPeriod = defaultPollPeriod
	}
	if bus == nil {
		bus = events.Discard
	}

	parsed, err := parseContracts()
	if err != nil {
		return nil, err
	}

	return &Adapter{
		cfg:     cfg,
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		addressing: Deterministic{
			Factory:           cfg.Factory,
			SrcImplementation: cfg.SrcImplementation,
			DstImplementation: cfg.DstImplementation,
		},
		contracts: parsed,
		bus:       bus,
	}, nil
}

func (a *Adapter) Name() string {
	return a.cfg.Name
}

func (a *Adapter) Kind() chain.Kind {
	return chain.KindEVM
}

func (a *Adapter) Addressing() chain.Addressing {
	return a.addressing
}

func (a *Adapter) Resolver() escrow.Address {
	return escrow.FromEVM(a.from)
}

func (a *Adapter) Now(ctx context.Context) (uint64, error) {
	head, err := a.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest header: %w", err)
	}

	return head.Time, nil
}

func (a *Adapter) CreateSrcEscrow(ctx context.Context, req chain.SrcRequest) (*chain.Created, error) {
	if err := req.Order.VerifySignature(req.Signature); err != nil {
		return nil, err
	}
	if err := a.requireNative(ctx, req.Immutables.SafetyDeposit); err != nil {
		return nil, err
	}

	data, err := a.contracts.resolver.Pack("deploySrc",
		toTuple(req.Immutables), toOrderTuple(req.Order), req.Signature, bigOrZero(req.FillAmount))
	if err != nil {
		return nil, fmt.Errorf("failed to pack deploySrc: %w", err)
	}

	receipt, err := a.transact(ctx, a.cfg.ResolverContract, req.Immutables.SafetyDeposit, data)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy src escrow: %w", err)
	}

	imm, err := a.srcImmutablesFromReceipt(receipt)
	if err != nil {
		return nil, err
	}
	addr, err := a.addressing.ComputeAddress(escrow.SideSrc, imm)
	if err != nil {
		return nil, err
	}

	txHash := receipt.TxHash.Hex()
	a.bus.Publish(events.Created(a.Name(), escrow.SideSrc, imm, addr, txHash))

	return &chain.Created{
		Immutables: imm,
		Address:    addr,
		DeployedAt: imm.TimeLocks.DeployedAt(),
		TxHash:     txHash,
	}, nil
}

func (a *Adapter) CreateDstEscrow(ctx context.Context, req chain.DstRequest) (*chain.Created, error) {
	imm := req.Immutables
	if imm.TimeLocks.Deadline(escrow.DstCancellation) > req.SrcCancellation {
		return nil, fmt.Errorf("%w: dst cancellation %d is after src cancellation %d",
			escrow.ErrInvalidCreationTime, imm.TimeLocks.Deadline(escrow.DstCancellation), req.SrcCancellation)
	}
	expected, err := a.addressing.ComputeAddress(escrow.SideDst, imm)
	if err != nil {
		return nil, err
	}
	code, err := a.backend.CodeAt(ctx, expected.EVM(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code of %s: %w", expected, err)
	}
	if len(code) > 0 {
		return nil, fmt.Errorf("%w: dst escrow already deployed at %s", escrow.ErrDuplicateEscrow, expected)
	}

	value := new(big.Int).Set(bigOrZero(imm.SafetyDeposit))
	if imm.Token.IsZero() {
		value.Add(value, imm.Amount)
	} else if err := a.ensureAllowance(ctx, imm.Token.EVM(), imm.Amount); err != nil {
		return nil, err
	}
	if err := a.requireNative(ctx, value); err != nil {
		return nil, err
	}

	data, err := a.contracts.factory.Pack("createDstEscrow", toTuple(imm), new(big.Int).SetUint64(req.SrcCancellation))
	if err != nil {
		return nil, fmt.Errorf("failed to pack createDstEscrow: %w", err)
	}

	receipt, err := a.transact(ctx, a.cfg.Factory, value, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create dst escrow: %w", err)
	}

	addr, err := a.dstAddressFromReceipt(receipt)
	if err != nil {
		return nil, err
	}
	if addr != expected {
		return nil, fmt.Errorf("factory created dst escrow at %s, expected %s", addr, expected)
	}

	txHash := receipt.TxHash.Hex()
	a.bus.Publish(events.Created(a.Name(), escrow.SideDst, imm, addr, txHash))

	return &chain.Created{
		Immutables: imm,
		Address:    addr,
		DeployedAt: imm.TimeLocks.DeployedAt(),
		TxHash:     txHash,
	}, nil
}

func (a *Adapter) Withdraw(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret escrow.Secret) (*chain.Receipt, error) {
	return a.withdraw(ctx, escrow.ActionWithdraw, "withdraw", side, addr, imm, secret)
}

func (a *Adapter) PublicWithdraw(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret escrow.Secret) (*chain.Receipt, error) {
	return a.withdraw(ctx, escrow.ActionPublicWithdraw, "publicWithdraw", side, addr, imm, secret)
}

func (a *Adapter) Cancel(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Receipt, error) {
	return a.cancel(ctx, escrow.ActionCancel, "cancel", side, addr, imm)
}

func (a *Adapter) PublicCancel(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Receipt, error) {
	return a.cancel(ctx, escrow.ActionPublicCancel, "publicCancel", side, addr, imm)
}

func (a *Adapter) withdraw(ctx context.Context, action escrow.Action, method string, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret escrow.Secret) (*chain.Receipt, error) {
	if err := a.precheck(ctx, action, side, addr, imm); err != nil {
		return nil, err
	}
	if !imm.HashLock.Verify(secret) {
		return nil, escrow.ErrInvalidSecret
	}

	data, err := a.contracts.escrow.Pack(method, [32]byte(secret), toTuple(imm))
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	receipt, err := a.transact(ctx, addr.EVM(), nil, data)
	if err != nil {
		return nil, a.explain(ctx, action, side, addr, imm, fmt.Errorf("failed to %s %s escrow: %w", method, side, err))
	}

	txHash := receipt.TxHash.Hex()
	a.bus.Publish(events.Withdrawn(a.Name(), side, imm.OrderHash, addr, secret, txHash))

	return &chain.Receipt{TxHash: txHash}, nil
}

func (a *Adapter) cancel(ctx context.Context, action escrow.Action, method string, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Receipt, error) {
	if err := a.precheck(ctx, action, side, addr, imm); err != nil {
		return nil, err
	}

	data, err := a.contracts.escrow.Pack(method, toTuple(imm))
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	receipt, err := a.transact(ctx, addr.EVM(), nil, data)
	if err != nil {
		return nil, a.explain(ctx, action, side, addr, imm, fmt.Errorf("failed to %s %s escrow: %w", method, side, err))
	}

	txHash := receipt.TxHash.Hex()
	a.bus.Publish(events.Cancelled(a.Name(), side, imm.OrderHash, addr, txHash))

	return &chain.Receipt{TxHash: txHash}, nil
}

// precheck runs the escrow guards against the chain's own clock so that a
// transaction bound to revert is never sent.
func (a *Adapter) precheck(ctx context.Context, action escrow.Action, side escrow.Side, addr escrow.Address, imm escrow.Immutables) error {
	status, err := a.EscrowStatus(ctx, side, addr, imm)
	if err != nil {
		return err
	}
	now, err := a.Now(ctx)
	if err != nil {
		return err
	}

	e := escrow.Escrow{Side: side, Address: addr, Immutables: imm, State: status.State}

	return e.Check(action, a.Resolver(), now)
}

// explain turns an InvalidTime revert into the phase error it stands for,
// evaluated at the time the chain rejected the call.
func (a *Adapter) explain(ctx context.Context, action escrow.Action, side escrow.Side, addr escrow.Address, imm escrow.Immutables, err error) error {
	if !errors.Is(err, errInvalidTime) {
		return err
	}
	if guardErr := a.precheck(ctx, action, side, addr, imm); guardErr != nil {
		return fmt.Errorf("%w: %w", guardErr, err)
	}

	return fmt.Errorf("%w: %w", escrow.ErrTooEarly, err)
}

// EscrowStatus reads the terminal state from the escrow's own events. Only the
// last LogLookback blocks are searched: an escrow settled before that window
// reports StateCreated as long as its code is still deployed, so LogLookback
// has to cover the longest swap the resolver tracks.
func (a *Adapter) EscrowStatus(ctx context.Context, side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Status, error) {
	from, err := a.lookbackStart(ctx)
	if err != nil {
		return nil, err
	}

	withdrawal := a.contracts.escrow.Events["EscrowWithdrawal"]
	cancelled := a.contracts.escrow.Events["EscrowCancelled"]
	logs, err := a.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		Addresses: []common.Address{addr.EVM()},
		Topics:    [][]common.Hash{{withdrawal.ID, cancelled.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter %s escrow logs: %w", side, err)
	}

	for _, l := range logs {
		if len(l.Topics) == 0 || l.Removed {
			continue
		}
		switch l.Topics[0] {
		case withdrawal.ID:
			secret, err := a.secretFromLog(l)
			if err != nil {
				return nil, err
			}

			return &chain.Status{State: escrow.StateWithdrawn, Secret: &secret}, nil
		case cancelled.ID:
			return &chain.Status{State: escrow.StateCancelled}, nil
		}
	}

	code, err := a.backend.CodeAt(ctx, addr.EVM(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code of %s: %w", addr, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: no contract at %s", escrow.ErrEscrowNotFound, addr)
	}

	return &chain.Status{State: escrow.StateCreated}, nil
}

// FindEscrow scans the factory's SrcEscrowCreated events for the order. Dst
// escrows carry no order hash in their event; they are located by predicting
// their address from the immutables instead.
func (a *Adapter) FindEscrow(ctx context.Context, side escrow.Side, orderHash common.Hash) (*chain.Created, error) {
	if side != escrow.SideSrc {
		return nil, fmt.Errorf("%w: %s escrows are found by address", escrow.ErrUnsupportedAction, side)
	}
	from, err := a.lookbackStart(ctx)
	if err != nil {
		return nil, err
	}

	event := a.contracts.factory.Events["SrcEscrowCreated"]
	logs, err := a.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: from,
		Addresses: []common.Address{a.cfg.Factory},
		Topics:    [][]common.Hash{{event.ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to filter factory logs: %w", err)
	}

	for _, l := range logs {
		if l.Removed {
			continue
		}
		imm, err := a.srcImmutablesFromLog(l)
		if err != nil {
			return nil, err
		}
		if imm.OrderHash != orderHash {
			continue
		}
		addr, err := a.addressing.ComputeAddress(escrow.SideSrc, imm)
		if err != nil {
			return nil, err
		}

		return &chain.Created{
			Immutables: imm,
			Address:    addr,
			DeployedAt: imm.TimeLocks.DeployedAt(),
			TxHash:     l.TxHash.Hex(),
		}, nil
	}

	return nil, fmt.Errorf("%w: no src escrow for order %s", escrow.ErrEscrowNotFound, orderHash.Hex())
}

func (a *Adapter) lookbackStart(ctx context.Context) (*big.Int, error) {
	head, err := a.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}
	from := new(big.Int)
	if head.Number.Uint64() > a.cfg.LogLookback {
		from.SetUint64(head.Number.Uint64() - a.cfg.LogLookback)
	}

	return from, nil
}

func (a *Adapter) transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	value = bigOrZero(value)
	msg := ethereum.CallMsg{From: a.from, To: &to, Value: value, Data: data}

	if _, err := a.backend.CallContract(ctx, msg, nil); err != nil {
		return nil, a.decodeRevert(err)
	}

	gas, err := a.backend.EstimateGas(ctx, msg)
	if err != nil {
		log.WithError(err).Debug("gas estimation failed, using configured limit")
		gas = a.cfg.GasLimit
	}

	nonce, err := a.backend.PendingNonceAt(ctx, a.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := a.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, value, gas, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(a.cfg.ChainID), a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign tx: %w", err)
	}

	logger := log.WithFields(log.Fields{"chain": a.Name(), "tx": signed.Hash().Hex()})
	if err := a.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send tx: %w", err)
	}
	logger.Debug("tx sent, waiting to be mined")

	receipt, err := bind.WaitMined(ctx, a.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for tx: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("tx %s reverted", signed.Hash().Hex())
	}

	if err := a.waitConfirmations(ctx, receipt.BlockNumber); err != nil {
		return nil, err
	}
	logger.WithField("block", receipt.BlockNumber).Debug("tx confirmed")

	return receipt, nil
}

func (a *Adapter) waitConfirmations(ctx context.Context, included *big.Int) error {
	if a.cfg.Confirmations == 0 || included == nil {
		return nil
	}
	target := included.Uint64() + a.cfg.Confirmations

	ticker := time.NewTicker(a.cfg.PollPeriod)
	defer ticker.Stop()
	for {
		head, err := a.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to get latest header: %w", err)
		}
		if head.Number.Uint64() >= target {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *Adapter) requireNative(ctx context.Context, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	balance, err := a.backend.BalanceAt(ctx, a.from, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s native", escrow.ErrInsufficientBalance, balance, amount)
	}

	return nil
}

func (a *Adapter) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	balance, err := a.callUint(ctx, token, "balanceOf", a.from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s of %s", escrow.ErrInsufficientBalance, balance, amount, token.Hex())
	}

	allowance, err := a.callUint(ctx, token, "allowance", a.from, a.cfg.Factory)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}
	if !a.cfg.AutoApprove {
		return fmt.Errorf("%w: factory may spend %s, need %s of %s", escrow.ErrInsufficientApproval, allowance, amount, token.Hex())
	}

	data, err := a.contracts.erc20.Pack("approve", a.cfg.Factory, amount)
	if err != nil {
		return fmt.Errorf("failed to pack approve: %w", err)
	}
	if _, err := a.transact(ctx, token, nil, data); err != nil {
		return fmt.Errorf("failed to approve factory: %w", err)
	}

	return nil
}

func (a *Adapter) callUint(ctx context.Context, contract common.Address, method string, args ...interface{}) (*big.Int, error) {
	data, err := a.contracts.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	out, err := a.backend.CallContract(ctx, ethereum.CallMsg{From: a.from, To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	values, err := a.contracts.erc20.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result %T", method, values[0])
	}

	return v, nil
}

func (a *Adapter) srcImmutablesFromReceipt(receipt *types.Receipt) (escrow.Immutables, error) {
	event := a.contracts.factory.Events["SrcEscrowCreated"]
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}

		return a.srcImmutablesFromLog(*l)
	}

	return escrow.Immutables{}, fmt.Errorf("tx %s has no SrcEscrowCreated event", receipt.TxHash.Hex())
}

func (a *Adapter) srcImmutablesFromLog(l types.Log) (escrow.Immutables, error) {
	values, err := a.contracts.factory.Events["SrcEscrowCreated"].Inputs.Unpack(l.Data)
	if err != nil {
		return escrow.Immutables{}, fmt.Errorf("failed to unpack SrcEscrowCreated: %w", err)
	}
	tuple := *abi.ConvertType(values[0], new(immutablesTuple)).(*immutablesTuple)

	return fromTuple(tuple), nil
}

func (a *Adapter) dstAddressFromReceipt(receipt *types.Receipt) (escrow.Address, error) {
	event := a.contracts.factory.Events["DstEscrowCreated"]
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.Unpack(l.Data)
		if err != nil {
			return escrow.Address{}, fmt.Errorf("failed to unpack DstEscrowCreated: %w", err)
		}
		addr, ok := values[0].(common.Address)
		if !ok {
			return escrow.Address{}, fmt.Errorf("unexpected escrow field %T", values[0])
		}

		return escrow.FromEVM(addr), nil
	}

	return escrow.Address{}, fmt.Errorf("tx %s has no DstEscrowCreated event", receipt.TxHash.Hex())
}

func (a *Adapter) secretFromLog(l types.Log) (escrow.Secret, error) {
	values, err := a.contracts.escrow.Events["EscrowWithdrawal"].Inputs.Unpack(l.Data)
	if err != nil {
		return escrow.Secret{}, fmt.Errorf("failed to unpack EscrowWithdrawal: %w", err)
	}
	secret, ok := values[0].([32]byte)
	if !ok {
		return escrow.Secret{}, fmt.Errorf("unexpected secret field %T", values[0])
	}

	return escrow.Secret(secret), nil
}

var errInvalidTime = errors.New("InvalidTime")

// decodeRevert maps the custom errors of the escrow contracts onto the
// protocol's error taxonomy.
func (a *Adapter) decodeRevert(err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return fmt.Errorf("call failed: %w", err)
	}
	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return fmt.Errorf("call failed: %w", err)
	}
	data, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil || len(data) < 4 {
		return fmt.Errorf("call failed: %w", err)
	}

	for _, parsed := range []abi.ABI{a.contracts.escrow, a.contracts.factory, a.contracts.resolver} {
		for name, e := range parsed.Errors {
			if !bytes.Equal(e.ID[:4], data[:4]) {
				continue
			}
			if sentinel, ok := revertErrors[name]; ok {
				return fmt.Errorf("%w: reverted with %s", sentinel, name)
			}

			return fmt.Errorf("reverted with %s: %w", name, err)
		}
	}

	return fmt.Errorf("call reverted: %w", err)
}

var revertErrors = map[string]error{
	"InvalidTime":               errInvalidTime,
	"InvalidCaller":             escrow.ErrInvalidCaller,
	"InvalidSecret":             escrow.ErrInvalidSecret,
	"InvalidImmutables":         escrow.ErrEscrowNotFound,
	"InvalidCreationTime":       escrow.ErrInvalidCreationTime,
	"InsufficientEscrowBalance": escrow.ErrInsufficientBalance,
	"BadSignature":              escrow.ErrInvalidSignature,
	"OrderAlreadyFilled":        escrow.ErrOrderFilled,
}
