package main

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/chain/memchain"
	"github.com/40acres/htlcswap/database/models"
	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/events"
	"github.com/40acres/htlcswap/money"
	"github.com/40acres/htlcswap/resolver"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

var (
	usdc      = money.Token{Symbol: "USDC", Decimals: 6}
	usdcAsset = escrow.MustParseAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	objAsset  = escrow.MustParseAddress("0x5d4b302506645c37ff133b98c4b50a5ae14841659738d6d733d59d0d217a93bf")
)

// memorySwaps keeps swaps of a simulation in process.
type memorySwaps struct {
	mu    sync.Mutex
	swaps map[string]models.Swap
}

func (m *memorySwaps) SaveSwap(_ context.Context, swap *models.Swap) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.swaps[swap.OrderHash] = *swap
	log.WithFields(log.Fields{
		"order_hash": swap.OrderHash,
		"status":     swap.Status,
	}).Debug("Swap saved")

	return nil
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Run one swap between two in-memory chains",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "amount",
				Usage: "USDC the maker sells",
				Value: "100",
			},
			&cli.BoolFlag{
				Name:  "skip-dst",
				Usage: "Leave the resolver unable to fund the destination escrow",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			amount, err := usdc.ParseAmount(cmd.String("amount"))
			if err != nil {
				return err
			}

			return simulate(ctx, amount, cmd.Bool("skip-dst"))
		},
	}
}

func simulate(ctx context.Context, amount *big.Int, skipDst bool) error {
	genesis := uint64(time.Now().Unix())
	bus := events.NewBus(events.DefaultBufferSize)
	src := memchain.NewLedger("ethereum", chain.KindEVM, genesis, memchain.WithBus(bus))
	dst := memchain.NewLedger("objectchain", chain.KindObject, genesis, memchain.WithBus(bus))

	makerKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	resolverKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	maker := escrow.FromEVM(crypto.PubkeyToAddress(makerKey.PublicKey))
	taker := escrow.FromEVM(crypto.PubkeyToAddress(resolverKey.PublicKey))

	secret, err := escrow.NewSecret()
	if err != nil {
		return err
	}

	order := escrow.Order{
		Salt:         big.NewInt(time.Now().UnixNano()),
		Nonce:        big.NewInt(1),
		Maker:        maker,
		MakerAsset:   usdcAsset,
		TakerAsset:   objAsset,
		MakingAmount: amount,
		TakingAmount: amount,
		SrcChainID:   1,
		DstChainID:   101,
	}
	sig, err := order.Sign(makerKey)
	if err != nil {
		return err
	}

	deposit, err := money.Ether.ParseAmount("0.001")
	if err != nil {
		return err
	}
	terms := models.SwapTerms{
		Order:     order,
		Signature: sig,
		HashLock:  escrow.ForSingleFill(secret),
		TimeLocks: escrow.Offsets{
			SrcWithdrawal:         10,
			SrcPublicWithdrawal:   120,
			SrcCancellation:       300,
			SrcPublicCancellation: 400,
			DstWithdrawal:         10,
			DstPublicWithdrawal:   100,
			DstCancellation:       250,
		},
		SrcSafetyDeposit: deposit,
		DstSafetyDeposit: deposit,
	}

	src.Mint(maker, usdcAsset, amount)
	src.Approve(maker, usdcAsset, amount)
	src.Mint(taker, escrow.ZeroAddress, deposit)
	dst.Mint(taker, objAsset, amount)
	dst.Mint(taker, escrow.ZeroAddress, deposit)
	if !skipDst {
		dst.Approve(taker, objAsset, amount)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		for ev := range bus.Subscribe(ctx) {
			log.WithFields(log.Fields{
				"chain":   ev.Chain,
				"side":    ev.Side,
				"address": ev.Address.String(),
				"tx":      ev.TxHash,
			}).Info(ev.Kind)
		}
	}()

	cfg := resolver.NewConfig()
	cfg.PollInterval = time.Millisecond
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	cfg.RetryMaxElapsed = 50 * time.Millisecond

	// Chain time moves five seconds per poll so the run finishes at once.
	tick := func(ctx context.Context, _ time.Duration) error {
		src.Advance(5)
		dst.Advance(5)

		return ctx.Err()
	}
	orchestrator, err := resolver.New(cfg, &memorySwaps{swaps: make(map[string]models.Swap)}, resolver.WithSleep(tick))
	if err != nil {
		return err
	}

	legs := resolver.Legs{Src: src.Account(taker), Dst: dst.Account(taker)}
	swap, err := orchestrator.Execute(ctx, legs, terms, &secret)
	if err != nil {
		log.WithError(err).Warn("Swap did not complete")
	}
	if swap == nil {
		return err
	}

	outcome := "unknown"
	if swap.Outcome != nil {
		outcome = string(*swap.Outcome)
	}
	fmt.Printf("swap %s finished %s (%s)\n", swap.OrderHash, outcome, swap.Status)
	fmt.Printf("maker    src %s, dst %s\n", usdc.Format(src.Balance(maker, usdcAsset)), usdc.Format(dst.Balance(maker, objAsset)))
	fmt.Printf("resolver src %s, dst %s, deposits %s + %s\n",
		usdc.Format(src.Balance(taker, usdcAsset)),
		usdc.Format(dst.Balance(taker, objAsset)),
		money.Ether.Format(src.Balance(taker, escrow.ZeroAddress)),
		money.Ether.Format(dst.Balance(taker, escrow.ZeroAddress)),
	)

	return nil
}
