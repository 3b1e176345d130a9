package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/40acres/htlcswap/chain"
	"github.com/40acres/htlcswap/chain/evm"
	"github.com/40acres/htlcswap/chain/memchain"
	"github.com/40acres/htlcswap/config"
	"github.com/40acres/htlcswap/daemon"
	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/events"
	"github.com/40acres/htlcswap/resolver"
	"github.com/ethereum/go-ethereum/crypto"
)

// openChains builds both adapters of cfg. Memory ledgers come with a service
// that keeps their clock on wall time.
func openChains(ctx context.Context, cfg *config.Config, key *ecdsa.PrivateKey, bus events.Publisher) (resolver.Legs, []daemon.Service, func(), error) {
	var services []daemon.Service
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	open := func(c config.Chain) (chain.Adapter, error) {
		switch c.Backend {
		case config.BackendMemory:
			ledger := memchain.NewLedger(c.Name, c.Kind, uint64(time.Now().Unix()), memchain.WithBus(bus))
			services = append(services, followWallClock(ledger))

			return ledger.Account(escrow.FromEVM(crypto.PubkeyToAddress(key.PublicKey))), nil
		default:
			client, err := evm.Dial(ctx, c.RPCURL)
			if err != nil {
				return nil, err
			}
			closers = append(closers, client.Close)

			return evm.NewAdapter(evm.Config{
				Name:              c.Name,
				ChainID:           new(big.Int).SetUint64(c.ChainID),
				Factory:           c.Factory,
				SrcImplementation: c.SrcImplementation,
				DstImplementation: c.DstImplementation,
				ResolverContract:  c.ResolverContract,
				Confirmations:     c.Confirmations,
				GasLimit:          c.GasLimit,
				AutoApprove:       c.AutoApprove,
			}, client, key, bus)
		}
	}

	src, err := open(cfg.Src)
	if err != nil {
		closeAll()

		return resolver.Legs{}, nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Src.Name, err)
	}
	dst, err := open(cfg.Dst)
	if err != nil {
		closeAll()

		return resolver.Legs{}, nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Dst.Name, err)
	}

	return resolver.Legs{Src: src, Dst: dst}, services, closeAll, nil
}

func followWallClock(ledger *memchain.Ledger) daemon.Service {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				ledger.SetTime(uint64(now.Unix()))
			}
		}
	}
}
