package main

import (
	"context"
	"fmt"

	"github.com/40acres/htlcswap/config"
	"github.com/40acres/htlcswap/daemon"
	"github.com/40acres/htlcswap/database"
	"github.com/40acres/htlcswap/events"
	"github.com/40acres/htlcswap/notify"
	"github.com/40acres/htlcswap/resolver"
	"github.com/40acres/htlcswap/rpc"
	"github.com/40acres/htlcswap/wallet"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func startCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start the resolver daemon",
		Flags: []cli.Flag{
			&grpcPort,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			port, err := validatePort(cmd.Int("grpc-port"))
			if err != nil {
				return err
			}

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			key, err := wallet.DeriveKey(cfg.Mnemonic, cfg.AccountIndex)
			if err != nil {
				return err
			}

			bus := events.NewBus(events.DefaultBufferSize)
			legs, services, closeChains, err := openChains(ctx, cfg, key, bus)
			if err != nil {
				return err
			}
			defer closeChains()

			db, closeDb, err := StartDatabase(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeDb(); err != nil {
					log.Errorf("❌ Could not close database: %v", err)
				}
			}()
			if db.IsEmbedded() {
				if err := db.MigrateDatabase(); err != nil {
					return fmt.Errorf("❌ Could not migrate database: %w", err)
				}
			}

			secrets := resolver.NewSecrets()
			secrets.Watch(ctx, bus)
			orchestrator, err := resolver.New(cfg.Resolver(), db, resolver.WithSecrets(secrets))
			if err != nil {
				return err
			}

			if cfg.Telegram != nil {
				notifier, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, bus)
				if err != nil {
					return err
				}
				services = append(services, notifier.Run)
			}

			log.WithFields(log.Fields{
				"src":      legs.Src.Name(),
				"dst":      legs.Dst.Name(),
				"resolver": legs.Src.Resolver().String(),
			}).Info("Resolver configured")

			monitor := daemon.NewSwapMonitor(db, orchestrator, legs)
			server := rpc.NewRPCServer(port)

			return daemon.Start(ctx, server, monitor, daemon.MonitoringInterval, services...)
		},
	}
}

// openResolver loads what a one-shot command needs to talk to the store.
func openResolver(ctx context.Context, cmd *cli.Command, db *database.Database) (*resolver.Orchestrator, resolver.Legs, func(), error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, resolver.Legs{}, nil, err
	}
	key, err := wallet.DeriveKey(cfg.Mnemonic, cfg.AccountIndex)
	if err != nil {
		return nil, resolver.Legs{}, nil, err
	}
	legs, _, closeChains, err := openChains(ctx, cfg, key, events.Discard)
	if err != nil {
		return nil, resolver.Legs{}, nil, err
	}
	orchestrator, err := resolver.New(cfg.Resolver(), db)
	if err != nil {
		closeChains()

		return nil, resolver.Legs{}, nil, err
	}

	return orchestrator, legs, closeChains, nil
}
