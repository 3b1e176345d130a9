package resolver

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/chain/memchain"
	"github.com/40acres/htlcswap/database"
	"github.com/40acres/htlcswap/database/models"
	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/events"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const genesis = 1_700_000_000

var (
	srcToken = escrow.MustParseAddress("0x00000000000000000000000000000000000a11ce")
	dstToken = escrow.MustParseAddress("0xb0b0")
	native   = escrow.ZeroAddress
)

type memStore struct {
	mu    sync.Mutex
	saves int
	swaps map[string]models.Swap
}

func newMemStore() *memStore {
	return &memStore{swaps: make(map[string]models.Swap)}
}

func (s *memStore) SaveSwap(_ context.Context, swap *models.Swap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	s.swaps[swap.OrderHash] = *swap

	return nil
}

func (s *memStore) get(orderHash string) models.Swap {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.swaps[orderHash]
}

type fixture struct {
	src, dst *memchain.Ledger
	legs     Legs
	makerKey *ecdsa.PrivateKey
	maker    escrow.Address
	resolver escrow.Address
	secret   escrow.Secret
	terms    models.SwapTerms
	store    *memStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	resolverKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		src:      memchain.NewLedger("ethereum", chain.KindEVM, genesis),
		dst:      memchain.NewLedger("objectchain", chain.KindObject, genesis),
		makerKey: key,
		maker:    escrow.FromEVM(crypto.PubkeyToAddress(key.PublicKey)),
		resolver: escrow.FromEVM(crypto.PubkeyToAddress(resolverKey.PublicKey)),
		store:    newMemStore(),
	}
	f.legs = Legs{Src: f.src.Account(f.resolver), Dst: f.dst.Account(f.resolver)}

	f.secret, err = escrow.NewSecret()
	require.NoError(t, err)

	order := escrow.Order{
		Salt:         big.NewInt(42),
		Nonce:        big.NewInt(1),
		Maker:        f.maker,
		MakerAsset:   srcToken,
		TakerAsset:   dstToken,
		MakingAmount: big.NewInt(100),
		TakingAmount: big.NewInt(99),
		SrcChainID:   1,
		DstChainID:   2,
	}
	sig, err := order.Sign(key)
	require.NoError(t, err)

	f.terms = models.SwapTerms{
		Order:     order,
		Signature: sig,
		HashLock:  escrow.ForSingleFill(f.secret),
		TimeLocks: escrow.Offsets{
			SrcWithdrawal:         10,
			SrcPublicWithdrawal:   120,
			SrcCancellation:       300,
			SrcPublicCancellation: 400,
			DstWithdrawal:         10,
			DstPublicWithdrawal:   100,
			DstCancellation:       250,
		},
		SrcSafetyDeposit: big.NewInt(5),
		DstSafetyDeposit: big.NewInt(7),
	}

	f.src.Mint(f.maker, srcToken, big.NewInt(100))
	f.src.Approve(f.maker, srcToken, big.NewInt(100))
	f.src.Mint(f.resolver, native, big.NewInt(5))
	f.dst.Mint(f.resolver, dstToken, big.NewInt(99))
	f.dst.Approve(f.resolver, dstToken, big.NewInt(99))
	f.dst.Mint(f.resolver, native, big.NewInt(7))

	return f
}

// tick advances both chain clocks instead of sleeping.
func (f *fixture) tick(_ context.Context, _ time.Duration) error {
	f.src.Advance(5)
	f.dst.Advance(5)

	return nil
}

func (f *fixture) orchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()

	cfg := &Config{
		PollInterval:         time.Millisecond,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     2 * time.Millisecond,
		RetryMaxElapsed:      20 * time.Millisecond,
	}
	o, err := New(cfg, f.store, append([]Option{WithSleep(f.tick)}, opts...)...)
	require.NoError(t, err)

	return o
}

func balance(l *memchain.Ledger, account, token escrow.Address) int64 {
	return l.Balance(account, token).Int64()
}

func TestExecute(t *testing.T) {
	t.Run("resolver holds the secret", func(t *testing.T) {
		f := newFixture(t)
		o := f.orchestrator(t)

		swap, err := o.Execute(context.Background(), f.legs, f.terms, &f.secret)
		require.NoError(t, err)

		require.Equal(t, models.StatusDone, swap.Status)
		require.Equal(t, models.OutcomeSuccess, *swap.Outcome)
		require.Equal(t, f.secret, *swap.Secret)
		require.Empty(t, swap.LastError)

		// Maker paid on dst, resolver paid on src, deposits back to the resolver.
		assert.Equal(t, int64(99), balance(f.dst, f.maker, dstToken))
		assert.Equal(t, int64(0), balance(f.dst, f.resolver, dstToken))
		assert.Equal(t, int64(7), balance(f.dst, f.resolver, native))
		assert.Equal(t, int64(100), balance(f.src, f.resolver, srcToken))
		assert.Equal(t, int64(0), balance(f.src, f.maker, srcToken))
		assert.Equal(t, int64(5), balance(f.src, f.resolver, native))

		// Both escrows share the deployment anchor.
		require.NotNil(t, swap.SrcImmutables)
		require.NotNil(t, swap.DstImmutables)
		require.Equal(t, uint32(genesis), swap.SrcImmutables.TimeLocks.DeployedAt())
		require.Equal(t, swap.SrcImmutables.TimeLocks, swap.DstImmutables.TimeLocks)
		require.Equal(t, swap.SrcImmutables.HashLock, swap.DstImmutables.HashLock)
		require.Equal(t, f.maker, swap.DstImmutables.Maker)

		stored := f.store.get(swap.OrderHash)
		require.Equal(t, models.StatusDone, stored.Status)
		// pending, src created, dst created, secret revealed, done
		require.Equal(t, 5, f.store.saves)
	})

	t.Run("maker discloses the secret later", func(t *testing.T) {
		f := newFixture(t)
		secrets := NewSecrets()
		calls := 0
		o := f.orchestrator(t, WithSecrets(secrets), WithSleep(func(ctx context.Context, d time.Duration) error {
			calls++
			if calls == 10 {
				secrets.Reveal(f.terms.Order.Hash(), f.secret)
			}

			return f.tick(ctx, d)
		}))

		swap, err := o.Execute(context.Background(), f.legs, f.terms, nil)
		require.NoError(t, err)
		require.Equal(t, models.OutcomeSuccess, *swap.Outcome)
		require.Equal(t, f.secret, *swap.Secret)
		assert.Equal(t, int64(99), balance(f.dst, f.maker, dstToken))
	})

	t.Run("secret is never disclosed", func(t *testing.T) {
		f := newFixture(t)
		o := f.orchestrator(t)

		swap, err := o.Execute(context.Background(), f.legs, f.terms, nil)
		require.NoError(t, err)
		require.Equal(t, models.OutcomeCancelled, *swap.Outcome)
		require.Contains(t, swap.LastError, ErrDeadlinePassed.Error())

		assert.Equal(t, int64(100), balance(f.src, f.maker, srcToken))
		assert.Equal(t, int64(5), balance(f.src, f.resolver, native))
		assert.Equal(t, int64(99), balance(f.dst, f.resolver, dstToken))
		assert.Equal(t, int64(7), balance(f.dst, f.resolver, native))

		dst, ok := f.dst.Escrow(mustAddress(t, swap.DstEscrow))
		require.True(t, ok)
		require.Equal(t, escrow.StateCancelled, dst.State)
	})

	t.Run("destination funding fails", func(t *testing.T) {
		f := newFixture(t)
		f.dst.Approve(f.resolver, dstToken, big.NewInt(0))
		o := f.orchestrator(t)

		swap, err := o.Execute(context.Background(), f.legs, f.terms, &f.secret)
		require.NoError(t, err)
		require.Equal(t, models.OutcomeCancelled, *swap.Outcome)
		require.Empty(t, swap.DstEscrow)
		require.Contains(t, swap.LastError, escrow.ErrInsufficientApproval.Error())

		// The secret is known but the maker was never paid: src is refunded.
		assert.Equal(t, int64(100), balance(f.src, f.maker, srcToken))
		assert.Equal(t, int64(0), balance(f.src, f.resolver, srcToken))
		assert.Equal(t, int64(5), balance(f.src, f.resolver, native))
	})

	t.Run("maker cannot fund the order", func(t *testing.T) {
		f := newFixture(t)
		f.src.Approve(f.maker, srcToken, big.NewInt(1))
		o := f.orchestrator(t)

		swap, err := o.Execute(context.Background(), f.legs, f.terms, &f.secret)
		require.ErrorIs(t, err, escrow.ErrInsufficientApproval)
		require.Equal(t, models.StatusDone, swap.Status)
		require.Equal(t, models.OutcomeFailed, *swap.Outcome)
		assert.Equal(t, int64(100), balance(f.src, f.maker, srcToken))
	})
}

func TestPrepareRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, terms *models.SwapTerms) *escrow.Secret
		err    error
	}{
		{
			name: "dst cancellation after src cancellation",
			mutate: func(f *fixture, terms *models.SwapTerms) *escrow.Secret {
				terms.TimeLocks.DstCancellation = 301

				return &f.secret
			},
			err: escrow.ErrMalformedOrder,
		},
		{
			name: "missing hashlock",
			mutate: func(f *fixture, terms *models.SwapTerms) *escrow.Secret {
				terms.HashLock = escrow.HashLock{}

				return nil
			},
			err: escrow.ErrMalformedOrder,
		},
		{
			name: "fill larger than the order",
			mutate: func(f *fixture, terms *models.SwapTerms) *escrow.Secret {
				terms.FillAmount = big.NewInt(101)

				return &f.secret
			},
			err: escrow.ErrMalformedOrder,
		},
		{
			name: "zero taking amount",
			mutate: func(f *fixture, terms *models.SwapTerms) *escrow.Secret {
				terms.Order.TakingAmount = big.NewInt(0)

				return &f.secret
			},
			err: escrow.ErrMalformedOrder,
		},
		{
			name: "secret does not open the hashlock",
			mutate: func(f *fixture, terms *models.SwapTerms) *escrow.Secret {
				wrong := escrow.Secret{0xde, 0xad}

				return &wrong
			},
			err: escrow.ErrInvalidSecret,
		},
		{
			name: "signature from someone else",
			mutate: func(f *fixture, terms *models.SwapTerms) *escrow.Secret {
				other, _ := crypto.GenerateKey()
				terms.Signature, _ = terms.Order.Sign(other)

				return &f.secret
			},
			err: escrow.ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctrl := gomock.NewController(t)
			// No expectations: nothing may be persisted.
			repo := database.NewMockSwapRepository(ctrl)
			o, err := New(NewConfig(), repo)
			require.NoError(t, err)

			terms := f.terms
			secret := tt.mutate(f, &terms)

			_, err = o.Execute(context.Background(), f.legs, terms, secret)
			require.ErrorIs(t, err, tt.err)

			// Nothing moved on chain.
			assert.Equal(t, int64(100), balance(f.src, f.maker, srcToken))
			assert.Equal(t, int64(99), balance(f.dst, f.resolver, dstToken))
		})
	}
}

func TestPrepareSaveFails(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	repo := database.NewMockSwapRepository(ctrl)
	repo.EXPECT().SaveSwap(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	o, err := New(NewConfig(), repo)
	require.NoError(t, err)

	_, err = o.Prepare(context.Background(), f.legs, f.terms, &f.secret)
	require.ErrorContains(t, err, "db down")
	assert.Equal(t, int64(100), balance(f.src, f.maker, srcToken))
}

func TestRunResumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.orchestrator(t)
	swap, err := first.Prepare(ctx, f.legs, f.terms, &f.secret)
	require.NoError(t, err)
	require.NoError(t, first.createSrc(ctx, f.legs.Src, swap))
	require.NoError(t, f.store.SaveSwap(ctx, swap))

	// A restarted daemon picks the swap up from the store.
	stored := f.store.get(swap.OrderHash)
	require.Equal(t, models.StatusSrcCreated, stored.Status)

	second := f.orchestrator(t)
	require.NoError(t, second.Run(ctx, f.legs, &stored))
	require.Equal(t, models.OutcomeSuccess, *stored.Outcome)
	assert.Equal(t, int64(99), balance(f.dst, f.maker, dstToken))
}

func TestRunChainMismatch(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t)

	swap := &models.Swap{OrderHash: "0x01", Status: models.StatusPending, SrcChain: "other", DstChain: f.dst.Name()}
	err := o.Run(context.Background(), f.legs, swap)
	require.ErrorIs(t, err, ErrChainMismatch)
}

func TestCreateSrcRetriesTransientErrors(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	src := chain.NewMockAdapter(ctrl)

	created := &chain.Created{
		Immutables: escrow.Immutables{OrderHash: common.Hash{1}, Amount: big.NewInt(1), SafetyDeposit: big.NewInt(0)},
		Address:    escrow.MustParseAddress("0x5c"),
		DeployedAt: genesis,
		TxHash:     "0xtx",
	}
	src.EXPECT().Resolver().Return(f.resolver).AnyTimes()
	gomock.InOrder(
		src.EXPECT().CreateSrcEscrow(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset")),
		src.EXPECT().CreateSrcEscrow(gomock.Any(), gomock.Any()).Return(created, nil),
	)

	o := f.orchestrator(t)
	swap := &models.Swap{OrderHash: "0x01", Status: models.StatusPending, Terms: f.terms}
	swap.Terms.FillAmount = big.NewInt(100)

	require.NoError(t, o.createSrc(context.Background(), src, swap))
	require.Equal(t, models.StatusSrcCreated, swap.Status)
	require.Equal(t, created.Address.String(), swap.SrcEscrow)
	require.Equal(t, int64(genesis), swap.DeployedAt)
	require.Equal(t, "0xtx", swap.SrcCreateTx)
}

func TestCreateSrcDoesNotRetryProtocolErrors(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	src := chain.NewMockAdapter(ctrl)

	rival := escrow.MustParseAddress("0x00000000000000000000000000000000000000bb")
	src.EXPECT().Resolver().Return(f.resolver).AnyTimes()
	src.EXPECT().CreateSrcEscrow(gomock.Any(), gomock.Any()).Return(nil, escrow.ErrOrderFilled).Times(1)
	src.EXPECT().FindEscrow(gomock.Any(), escrow.SideSrc, f.terms.Order.Hash()).Return(&chain.Created{
		Immutables: escrow.Immutables{Taker: rival, HashLock: f.terms.HashLock},
		Address:    escrow.MustParseAddress("0x5c"),
	}, nil)

	o := f.orchestrator(t)
	swap := &models.Swap{OrderHash: "0x01", Status: models.StatusPending, Terms: f.terms}

	err := o.createSrc(context.Background(), src, swap)
	require.ErrorIs(t, err, escrow.ErrOrderFilled)
	require.Equal(t, models.StatusPending, swap.Status)
	require.Empty(t, swap.SrcEscrow)
}

// A daemon that crashed between sending the src creation and saving it finds
// the swap still pending on restart.
func TestRunAdoptsUnrecordedSrcEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orchestrator(t)

	swap, err := o.Prepare(ctx, f.legs, f.terms, &f.secret)
	require.NoError(t, err)
	crashed := *swap
	require.NoError(t, o.createSrc(ctx, f.legs.Src, &crashed))

	require.Equal(t, models.StatusPending, swap.Status)
	require.NoError(t, o.Run(ctx, f.legs, swap))

	require.Equal(t, models.OutcomeSuccess, *swap.Outcome)
	require.Equal(t, crashed.SrcEscrow, swap.SrcEscrow)
	require.Equal(t, crashed.SrcCreateTx, swap.SrcCreateTx)
	require.Equal(t, crashed.DeployedAt, swap.DeployedAt)
	assert.Equal(t, int64(99), balance(f.dst, f.maker, dstToken))
	assert.Equal(t, int64(100), balance(f.src, f.resolver, srcToken))
	assert.Equal(t, int64(5), balance(f.src, f.resolver, native))
}

func TestRunAdoptsUnrecordedDstEscrow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.orchestrator(t)

	swap, err := o.Prepare(ctx, f.legs, f.terms, &f.secret)
	require.NoError(t, err)
	require.NoError(t, o.createSrc(ctx, f.legs.Src, swap))
	crashed := *swap
	require.NoError(t, o.createDst(ctx, f.legs, &crashed))

	require.Equal(t, models.StatusSrcCreated, swap.Status)
	require.NoError(t, o.Run(ctx, f.legs, swap))

	require.Equal(t, models.OutcomeSuccess, *swap.Outcome)
	require.Equal(t, crashed.DstEscrow, swap.DstEscrow)
	require.Equal(t, crashed.DstCreateTx, swap.DstCreateTx)
	// Only one dst escrow was funded.
	assert.Equal(t, int64(99), balance(f.dst, f.maker, dstToken))
	assert.Equal(t, int64(7), balance(f.dst, f.resolver, native))
	assert.Equal(t, int64(100), balance(f.src, f.resolver, srcToken))
}

func TestRunFailsOrderFilledByAnotherResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rivalKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	rival := escrow.FromEVM(crypto.PubkeyToAddress(rivalKey.PublicKey))
	f.src.Mint(rival, native, big.NewInt(5))
	rivalLegs := Legs{Src: f.src.Account(rival), Dst: f.dst.Account(rival)}

	other, err := New(NewConfig(), newMemStore())
	require.NoError(t, err)
	taken, err := other.Prepare(ctx, rivalLegs, f.terms, nil)
	require.NoError(t, err)
	require.NoError(t, other.createSrc(ctx, rivalLegs.Src, taken))

	o := f.orchestrator(t)
	swap, err := o.Execute(ctx, f.legs, f.terms, &f.secret)
	require.ErrorIs(t, err, escrow.ErrDuplicateEscrow)
	require.Equal(t, models.StatusDone, swap.Status)
	require.Equal(t, models.OutcomeFailed, *swap.Outcome)
	require.Empty(t, swap.SrcEscrow)
	assert.Equal(t, int64(5), balance(f.src, f.resolver, native))
	assert.Equal(t, int64(99), balance(f.dst, f.resolver, dstToken))
}

func TestRunLogsSaveFailureWhileCancelling(t *testing.T) {
	f := newFixture(t)
	hook := logtest.NewGlobal()
	defer hook.Reset()

	ctrl := gomock.NewController(t)
	repo := database.NewMockSwapRepository(ctrl)
	repo.EXPECT().SaveSwap(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
	o, err := New(NewConfig(), repo)
	require.NoError(t, err)

	// A dst address without immutables cannot be cancelled.
	swap := &models.Swap{
		OrderHash: "0x01",
		Status:    models.StatusCancelling,
		SrcChain:  f.src.Name(),
		DstChain:  f.dst.Name(),
		DstEscrow: "0x5d",
	}
	err = o.Run(context.Background(), f.legs, swap)
	require.ErrorContains(t, err, "failed to cancel escrows")
	require.NotEmpty(t, swap.LastError)

	var logged bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "failed to save swap" {
			logged = true
			require.ErrorContains(t, entry.Data["error"].(error), "db down")
		}
	}
	require.True(t, logged)
}

func TestSecretsWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus(events.DefaultBufferSize)
	secrets := NewSecrets()
	secrets.Watch(ctx, bus)

	orderHash := common.HexToHash("0xabc")
	secret := escrow.Secret{9}
	bus.Publish(events.Withdrawn("objectchain", escrow.SideDst, orderHash, escrow.MustParseAddress("0x1"), secret, "0xtx"))

	require.Eventually(t, func() bool {
		got, err := secrets.Secret(ctx, orderHash)

		return err == nil && got != nil && *got == secret
	}, time.Second, time.Millisecond)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{escrow.ErrTooEarly, true},
		{escrow.ErrInsufficientBalance, true},
		{escrow.ErrInsufficientApproval, true},
		{errors.New("i/o timeout"), true},
		{escrow.ErrInvalidSecret, false},
		{escrow.ErrMalformedOrder, false},
		{escrow.ErrAlreadyFinalized, false},
		{ErrDeadlinePassed, false},
		{context.Canceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.expected, retryable(tt.err))
		})
	}
}

func TestTakingFor(t *testing.T) {
	order := escrow.Order{MakingAmount: big.NewInt(100), TakingAmount: big.NewInt(99)}

	assert.Equal(t, int64(99), takingFor(order, big.NewInt(100)).Int64())
	assert.Equal(t, int64(49), takingFor(order, big.NewInt(50)).Int64())
}

func mustAddress(t *testing.T, s string) escrow.Address {
	t.Helper()
	addr, err := escrow.ParseAddress(s)
	require.NoError(t, err)

	return addr
}
