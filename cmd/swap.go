package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/40acres/htlcswap/database"
	"github.com/40acres/htlcswap/database/models"
	"github.com/40acres/htlcswap/escrow"
	"github.com/40acres/htlcswap/wallet"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func swapCommand() *cli.Command {
	return &cli.Command{
		Name:  "swap",
		Usage: "Swap operations",
		Commands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "Queue a signed order for the daemon",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "terms",
						Usage:    "Path to the swap terms JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "secret",
						Usage: "Secret behind the hashlock, when the resolver holds it",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					terms, err := readTerms(cmd.String("terms"))
					if err != nil {
						return err
					}

					var secret *escrow.Secret
					if s := cmd.String("secret"); s != "" {
						parsed, err := escrow.ParseSecret(s)
						if err != nil {
							return err
						}
						secret = &parsed
					}

					return withDatabase(cmd, func(db *database.Database) error {
						orchestrator, legs, closeChains, err := openResolver(ctx, cmd, db)
						if err != nil {
							return err
						}
						defer closeChains()

						swap, err := orchestrator.Prepare(ctx, legs, *terms, secret)
						if err != nil {
							return fmt.Errorf("❌ Could not submit swap: %w", err)
						}
						log.Infof("✅ Swap %s queued", swap.OrderHash)

						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "Show a stored swap",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "order-hash",
						Usage:    "Order hash of the swap",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						swap, err := db.GetSwap(ctx, cmd.String("order-hash"))
						if err != nil {
							return err
						}

						return printJSON(swap)
					})
				},
			},
		},
	}
}

func readTerms(path string) (*models.SwapTerms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read terms: %w", err)
	}

	var terms models.SwapTerms
	if err := json.Unmarshal(data, &terms); err != nil {
		return nil, fmt.Errorf("failed to parse terms: %w", err)
	}

	return &terms, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func secretCommand() *cli.Command {
	return &cli.Command{
		Name:  "secret",
		Usage: "Secret helpers",
		Commands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Generate a secret and its hashlock",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					secret, err := escrow.NewSecret()
					if err != nil {
						return err
					}

					return printJSON(map[string]string{
						"secret":   secret.String(),
						"hashlock": escrow.ForSingleFill(secret).String(),
					})
				},
			},
		},
	}
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "Resolver key helpers",
		Commands: []*cli.Command{
			{
				Name:  "new",
				Usage: "Generate a mnemonic",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					mnemonic, err := wallet.NewMnemonic()
					if err != nil {
						return err
					}
					fmt.Println(mnemonic)

					return nil
				},
			},
			{
				Name:  "derive",
				Usage: "Print the resolver address of a mnemonic",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "index",
						Usage: "Account index",
					},
					&cli.StringFlag{
						Name:     "mnemonic",
						Usage:    "Mnemonic to derive from",
						Required: true,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					index := cmd.Int("index")
					if index < 0 || index > int64(^uint32(0)>>1) {
						return fmt.Errorf("index %d is out of range", index)
					}
					address, err := wallet.DeriveAddress(cmd.String("mnemonic"), uint32(index))
					if err != nil {
						return err
					}
					fmt.Println(address.String())

					return nil
				},
			},
		},
	}
}
