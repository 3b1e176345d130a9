package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/40acres/htlcswap/database"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	_ "github.com/40acres/htlcswap/logging"
	_ "github.com/lib/pq"
)

func validatePort(port int64) (uint32, error) {
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port number %d is invalid: must be between 0 and 65535", port)
	}

	return uint32(port), nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info("Received signal, shutting down")
		cancel()
	}()

	app := &cli.Command{
		Name:  "htlcswap",
		Usage: "Cross-chain escrow resolver",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db-host",
				Usage: "Database host, 'embedded' runs a local postgres",
				Value: database.EmbeddedHost,
			},
			&cli.StringFlag{
				Name:  "db-user",
				Usage: "Database username",
				Value: "myuser",
			},
			&cli.StringFlag{
				Name:  "db-password",
				Usage: "Database password",
				Value: "mypassword",
			},
			&cli.StringFlag{
				Name:  "db-name",
				Usage: "Database name",
				Value: "postgres",
			},
			&cli.IntFlag{
				Name:  "db-port",
				Usage: "Database port",
				Value: 5433,
			},
			&cli.StringFlag{
				Name:  "db-data-path",
				Usage: "Database path",
				Value: "./.data",
			},
			&configFlag,
		},
		Commands: []*cli.Command{
			startCommand(),
			swapCommand(),
			secretCommand(),
			keysCommand(),
			simulateCommand(),
			databaseCommand(),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

var configFlag = cli.StringFlag{
	Name:  "config",
	Usage: "Path to the chains config file",
	Value: "config.json",
}

var grpcPort = cli.IntFlag{
	Name:  "grpc-port",
	Usage: "Grpc port for health checks",
	Value: 50051,
}

func StartDatabase(cmd *cli.Command) (*database.Database, func() error, error) {
	port, err := validatePort(cmd.Int("db-port"))
	if err != nil {
		return nil, nil, err
	}

	db, closeDb, err := database.New(
		cmd.String("db-user"),
		cmd.String("db-password"),
		cmd.String("db-name"),
		port,
		cmd.String("db-data-path"),
		cmd.String("db-host"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("❌ Could not connect to database: %w", err)
	}

	return db, closeDb, nil
}

// withDatabase runs fn against the database and closes it afterwards.
func withDatabase(cmd *cli.Command, fn func(db *database.Database) error) error {
	db, closeDb, err := StartDatabase(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeDb(); err != nil {
			log.Errorf("❌ Could not close database: %v", err)
		}
	}()

	return fn(db)
}

func databaseCommand() *cli.Command {
	return &cli.Command{
		Name:  "database",
		Usage: "Database operations",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Migrate the database",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						return db.MigrateDatabase()
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "Rollback the latest migration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						return db.Rollback()
					})
				},
			},
			{
				Name:  "reset",
				Usage: "Rollback every migration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withDatabase(cmd, func(db *database.Database) error {
						return db.Reset()
					})
				},
			},
		},
	}
}
