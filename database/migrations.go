package database

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func (d *Database) goose() error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(log.StandardLogger())

	return goose.SetDialect("postgres")
}

// MigrateDatabase applies every pending migration.
func (d *Database) MigrateDatabase() error {
	if err := d.goose(); err != nil {
		return fmt.Errorf("failed to configure migrations: %w", err)
	}
	sqlDB, err := d.orm.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := goose.Up(sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("✅ Database migrated")

	return nil
}

// Rollback reverts the latest migration.
func (d *Database) Rollback() error {
	if err := d.goose(); err != nil {
		return fmt.Errorf("failed to configure migrations: %w", err)
	}
	sqlDB, err := d.orm.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := goose.Down(sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to rollback database: %w", err)
	}
	log.Info("✅ Database rolled back")

	return nil
}

// Reset reverts every migration.
func (d *Database) Reset() error {
	if err := d.goose(); err != nil {
		return fmt.Errorf("failed to configure migrations: %w", err)
	}
	sqlDB, err := d.orm.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := goose.Reset(sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}

	return nil
}
