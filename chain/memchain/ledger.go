// Package memchain is an in-memory ledger hosting escrows. It runs the same
// escrow state machine the contracts enforce, with a clock the caller
// controls, and serves as a devnet for the resolver and its tests.
package memchain

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/chain/evm"
	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/events"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
)

const (
	SrcEscrowType = "0xe5c0::escrow::SrcEscrow"
	DstEscrowType = "0xe5c0::escrow::DstEscrow"
)

type escrowKey struct {
	orderHash common.Hash
	side      escrow.Side
}

// Ledger holds balances, allowances and escrows of one chain.
type Ledger struct {
	mu sync.Mutex

	name       string
	kind       chain.Kind
	addressing chain.Addressing
	factory    escrow.Address
	bus        events.Publisher

	now        uint64
	seq        uint64
	balances   map[escrow.Address]map[escrow.Address]*big.Int
	allowances map[escrow.Address]map[escrow.Address]*big.Int
	escrows    map[escrow.Address]*escrow.Escrow
	byOrder    map[escrowKey]escrow.Address
	txs        map[escrow.Address]string
	filled     map[common.Hash]bool
}

type Option func(*Ledger)

// WithBus publishes lifecycle events to bus.
func WithBus(bus events.Publisher) Option {
	return func(l *Ledger) {
		l.bus = bus
	}
}

// WithFactory sets the factory address deterministic ledgers derive escrow
// addresses from.
func WithFactory(factory common.Address, srcImpl, dstImpl common.Address) Option {
	return func(l *Ledger) {
		l.factory = escrow.FromEVM(factory)
		if l.kind == chain.KindEVM {
			l.addressing = evm.Deterministic{Factory: factory, SrcImplementation: srcImpl, DstImplementation: dstImpl}
		}
	}
}

// NewLedger creates a ledger whose clock starts at now. EVM ledgers derive
// escrow addresses with CREATE2, object ledgers mint fresh object ids.
func NewLedger(name string, kind chain.Kind, now uint64, opts ...Option) *Ledger {
	l := &Ledger{
		name:       name,
		kind:       kind,
		bus:        events.Discard,
		now:        now,
		balances:   make(map[escrow.Address]map[escrow.Address]*big.Int),
		allowances: make(map[escrow.Address]map[escrow.Address]*big.Int),
		escrows:    make(map[escrow.Address]*escrow.Escrow),
		byOrder:    make(map[escrowKey]escrow.Address),
		txs:        make(map[escrow.Address]string),
		filled:     make(map[common.Hash]bool),
	}

	defaultFactory := common.HexToAddress("0x00000000000000000000000000000000000fac70")
	switch kind {
	case chain.KindEVM:
		l.factory = escrow.FromEVM(defaultFactory)
		l.addressing = evm.Deterministic{
			Factory:           defaultFactory,
			SrcImplementation: common.HexToAddress("0x0000000000000000000000000000000000005c00"),
			DstImplementation: common.HexToAddress("0x0000000000000000000000000000000000005d00"),
		}
	default:
		l.factory = escrow.MustParseAddress("0xe5c0")
		l.addressing = chain.ObjectIDs{SrcType: SrcEscrowType, DstType: DstEscrowType}
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Ledger) Name() string {
	return l.name
}

func (l *Ledger) Kind() chain.Kind {
	return l.kind
}

// Factory is the account allowances must be granted to.
func (l *Ledger) Factory() escrow.Address {
	return l.factory
}

func (l *Ledger) Time() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.now
}

func (l *Ledger) SetTime(ts uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts > l.now {
		l.now = ts
	}
}

// Advance moves the clock forward by seconds.
func (l *Ledger) Advance(seconds uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.now += seconds
}

// Mint credits amount of token to account. The zero token is native.
func (l *Ledger) Mint(account, token escrow.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.credit(account, token, amount)
}

// Approve lets the factory pull amount of token from owner.
func (l *Ledger) Approve(owner, token escrow.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[escrow.Address]*big.Int)
	}
	l.allowances[owner][token] = new(big.Int).Set(amount)
}

func (l *Ledger) Balance(account, token escrow.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(big.Int).Set(l.balanceOf(account, token))
}

// Escrow returns a copy of the escrow stored at addr.
func (l *Ledger) Escrow(addr escrow.Address) (escrow.Escrow, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.escrows[addr]
	if !ok {
		return escrow.Escrow{}, false
	}

	return *e, true
}

// Account returns an adapter that signs as account.
func (l *Ledger) Account(account escrow.Address) *Adapter {
	return &Adapter{ledger: l, account: account}
}

func (l *Ledger) createSrc(caller escrow.Address, req chain.SrcRequest) (*chain.Created, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order := req.Order
	if err := order.Validate(); err != nil {
		return nil, err
	}
	orderHash := order.Hash()
	if err := order.VerifySignature(req.Signature); err != nil {
		return nil, err
	}
	if req.FillAmount == nil || req.FillAmount.Sign() <= 0 || req.FillAmount.Cmp(order.MakingAmount) > 0 {
		return nil, fmt.Errorf("%w: fill amount must be in (0, %s]", escrow.ErrMalformedOrder, order.MakingAmount)
	}
	if req.Immutables.Taker != caller {
		return nil, fmt.Errorf("%w: taker %s is not the caller", escrow.ErrInvalidCaller, req.Immutables.Taker)
	}
	if _, exists := l.byOrder[escrowKey{orderHash, escrow.SideSrc}]; exists {
		return nil, escrow.ErrDuplicateEscrow
	}
	if l.filled[orderHash] {
		return nil, escrow.ErrOrderFilled
	}

	imm := req.Immutables
	imm.OrderHash = orderHash
	imm.Maker = order.Maker
	imm.Token = order.MakerAsset
	imm.Amount = new(big.Int).Set(req.FillAmount)
	imm.SafetyDeposit = new(big.Int).Set(bigOrZero(imm.SafetyDeposit))
	if err := imm.TimeLocks.SetDeployedAt(uint32(l.now)); err != nil {
		return nil, err
	}

	if err := l.pull(order.Maker, imm.Token, imm.Amount, true); err != nil {
		return nil, err
	}
	if err := l.requireBalance(caller, escrow.ZeroAddress, imm.SafetyDeposit); err != nil {
		return nil, err
	}

	created, err := l.deploy(escrow.SideSrc, imm)
	if err != nil {
		return nil, err
	}

	l.debit(order.Maker, imm.Token, imm.Amount)
	l.spendAllowance(order.Maker, imm.Token, imm.Amount)
	l.debit(caller, escrow.ZeroAddress, imm.SafetyDeposit)
	l.credit(created.Address, imm.Token, imm.Amount)
	l.credit(created.Address, escrow.ZeroAddress, imm.SafetyDeposit)
	l.filled[orderHash] = true

	l.bus.Publish(events.Created(l.name, escrow.SideSrc, imm, created.Address, created.TxHash))

	return created, nil
}

func (l *Ledger) createDst(caller escrow.Address, req chain.DstRequest) (*chain.Created, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	imm := req.Immutables
	imm.Amount = new(big.Int).Set(bigOrZero(imm.Amount))
	imm.SafetyDeposit = new(big.Int).Set(bigOrZero(imm.SafetyDeposit))
	if !imm.TimeLocks.IsAnchored() {
		return nil, escrow.ErrNotAnchored
	}
	if err := imm.Validate(); err != nil {
		return nil, err
	}
	if imm.Taker != caller {
		return nil, fmt.Errorf("%w: taker %s is not the caller", escrow.ErrInvalidCaller, imm.Taker)
	}
	if imm.TimeLocks.Deadline(escrow.DstCancellation) > req.SrcCancellation {
		return nil, fmt.Errorf("%w: dst cancellation %d is after src cancellation %d",
			escrow.ErrInvalidCreationTime, imm.TimeLocks.Deadline(escrow.DstCancellation), req.SrcCancellation)
	}
	if _, exists := l.byOrder[escrowKey{imm.OrderHash, escrow.SideDst}]; exists {
		return nil, escrow.ErrDuplicateEscrow
	}

	native := new(big.Int).Set(imm.SafetyDeposit)
	if imm.Token.IsZero() {
		native.Add(native, imm.Amount)
	} else if err := l.pull(caller, imm.Token, imm.Amount, true); err != nil {
		return nil, err
	}
	if err := l.requireBalance(caller, escrow.ZeroAddress, native); err != nil {
		return nil, err
	}

	created, err := l.deploy(escrow.SideDst, imm)
	if err != nil {
		return nil, err
	}

	if !imm.Token.IsZero() {
		l.debit(caller, imm.Token, imm.Amount)
		l.spendAllowance(caller, imm.Token, imm.Amount)
	}
	l.debit(caller, escrow.ZeroAddress, native)
	l.credit(created.Address, imm.Token, imm.Amount)
	l.credit(created.Address, escrow.ZeroAddress, imm.SafetyDeposit)

	l.bus.Publish(events.Created(l.name, escrow.SideDst, imm, created.Address, created.TxHash))

	return created, nil
}

// deploy resolves the escrow identity the way the chain kind does and stores
// the escrow. Funds are moved by the caller.
func (l *Ledger) deploy(side escrow.Side, imm escrow.Immutables) (*chain.Created, error) {
	txHash := l.nextDigest()

	var effects *chain.TxEffects
	if l.addressing.Strategy() == chain.ObservedObjectID {
		effects = &chain.TxEffects{
			Digest: txHash,
			Created: []chain.ObjectChange{{
				ObjectID:   l.nextObjectID(txHash),
				ObjectType: objectType(side) + "<" + imm.Token.String() + ">",
				Owner:      escrow.ZeroAddress,
			}},
		}
	}

	addr, err := chain.ResolveAddress(l.addressing, side, imm, effects)
	if err != nil {
		return nil, err
	}
	if _, taken := l.escrows[addr]; taken {
		return nil, escrow.ErrDuplicateEscrow
	}

	e, err := escrow.New(side, addr, imm)
	if err != nil {
		return nil, err
	}
	l.escrows[addr] = e
	l.byOrder[escrowKey{imm.OrderHash, side}] = addr
	l.txs[addr] = txHash

	log.WithFields(log.Fields{
		"chain":   l.name,
		"side":    side,
		"escrow":  addr.String(),
		"order":   imm.OrderHash.Hex(),
		"anchor":  imm.TimeLocks.DeployedAt(),
		"deposit": imm.SafetyDeposit.String(),
	}).Debug("escrow deployed")

	return &chain.Created{
		Immutables: imm,
		Address:    addr,
		DeployedAt: imm.TimeLocks.DeployedAt(),
		TxHash:     txHash,
		Effects:    effects,
	}, nil
}

// transition runs one state machine action and settles it atomically.
func (l *Ledger) transition(caller escrow.Address, action escrow.Action, side escrow.Side, addr escrow.Address, imm escrow.Immutables, secret *escrow.Secret) (*chain.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.lookup(side, addr, imm)
	if err != nil {
		return nil, err
	}

	var settlement escrow.Settlement
	switch action {
	case escrow.ActionWithdraw:
		settlement, err = e.Withdraw(caller, *secret, l.now)
	case escrow.ActionPublicWithdraw:
		settlement, err = e.PublicWithdraw(caller, *secret, l.now)
	case escrow.ActionCancel:
		settlement, err = e.Cancel(caller, l.now)
	case escrow.ActionPublicCancel:
		settlement, err = e.PublicCancel(caller, l.now)
	default:
		err = fmt.Errorf("%w: %s", escrow.ErrUnsupportedAction, action)
	}
	if err != nil {
		return nil, err
	}

	l.pay(addr, settlement.Asset)
	l.pay(addr, settlement.Deposit)

	txHash := l.nextDigest()
	if settlement.Secret != nil {
		l.bus.Publish(events.Withdrawn(l.name, side, imm.OrderHash, addr, *settlement.Secret, txHash))
	} else {
		l.bus.Publish(events.Cancelled(l.name, side, imm.OrderHash, addr, txHash))
	}

	log.WithFields(log.Fields{
		"chain":  l.name,
		"side":   side,
		"escrow": addr.String(),
		"action": action,
		"to":     settlement.Asset.To.String(),
	}).Debug("escrow settled")

	return &chain.Receipt{TxHash: txHash}, nil
}

func (l *Ledger) status(side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*chain.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.lookup(side, addr, imm)
	if err != nil {
		return nil, err
	}

	status := &chain.Status{State: e.State}
	if e.Secret != nil {
		secret := *e.Secret
		status.Secret = &secret
	}

	return status, nil
}

func (l *Ledger) find(side escrow.Side, orderHash common.Hash) (*chain.Created, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	addr, ok := l.byOrder[escrowKey{orderHash, side}]
	if !ok {
		return nil, fmt.Errorf("%w: no %s escrow for order %s", escrow.ErrEscrowNotFound, side, orderHash.Hex())
	}
	e := l.escrows[addr]

	return &chain.Created{
		Immutables: e.Immutables,
		Address:    addr,
		DeployedAt: e.Immutables.TimeLocks.DeployedAt(),
		TxHash:     l.txs[addr],
	}, nil
}

// lookup mirrors the contracts' immutables check: the caller has to present
// the exact parameters the escrow was created with.
func (l *Ledger) lookup(side escrow.Side, addr escrow.Address, imm escrow.Immutables) (*escrow.Escrow, error) {
	e, ok := l.escrows[addr]
	if !ok || e.Side != side {
		return nil, fmt.Errorf("%w: no %s escrow at %s", escrow.ErrEscrowNotFound, side, addr)
	}
	if e.Immutables.Hash() != imm.Hash() {
		return nil, fmt.Errorf("%w: immutables do not match escrow %s", escrow.ErrEscrowNotFound, addr)
	}

	return e, nil
}

func (l *Ledger) pay(from escrow.Address, t escrow.Transfer) {
	if t.Amount == nil || t.Amount.Sign() == 0 {
		return
	}
	l.debit(from, t.Token, t.Amount)
	l.credit(t.To, t.Token, t.Amount)
}

func (l *Ledger) pull(owner, token escrow.Address, amount *big.Int, needsApproval bool) error {
	if err := l.requireBalance(owner, token, amount); err != nil {
		return err
	}
	if !needsApproval {
		return nil
	}
	allowance := new(big.Int)
	if a, ok := l.allowances[owner][token]; ok {
		allowance = a
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s approved %s of %s, need %s", escrow.ErrInsufficientApproval, owner, allowance, token, amount)
	}

	return nil
}

func (l *Ledger) requireBalance(account, token escrow.Address, amount *big.Int) error {
	if have := l.balanceOf(account, token); have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, need %s", escrow.ErrInsufficientBalance, account, have, token, amount)
	}

	return nil
}

func (l *Ledger) balanceOf(account, token escrow.Address) *big.Int {
	if b, ok := l.balances[account][token]; ok {
		return b
	}

	return new(big.Int)
}

func (l *Ledger) credit(account, token escrow.Address, amount *big.Int) {
	if l.balances[account] == nil {
		l.balances[account] = make(map[escrow.Address]*big.Int)
	}
	l.balances[account][token] = new(big.Int).Add(l.balanceOf(account, token), amount)
}

func (l *Ledger) debit(account, token escrow.Address, amount *big.Int) {
	l.balances[account][token] = new(big.Int).Sub(l.balanceOf(account, token), amount)
}

func (l *Ledger) spendAllowance(owner, token escrow.Address, amount *big.Int) {
	if a, ok := l.allowances[owner][token]; ok {
		l.allowances[owner][token] = new(big.Int).Sub(a, amount)
	}
}

func (l *Ledger) nextDigest() string {
	l.seq++
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], l.seq)
	binary.BigEndian.PutUint64(buf[8:], l.now)

	return crypto.Keccak256Hash([]byte(l.name), buf[:]).Hex()
}

func (l *Ledger) nextObjectID(digest string) escrow.Address {
	return escrow.Address(crypto.Keccak256Hash([]byte(digest), []byte("escrow")))
}

func objectType(side escrow.Side) string {
	if side == escrow.SideDst {
		return DstEscrowType
	}

	return SrcEscrowType
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
