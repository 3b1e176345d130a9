package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/40acres/htlcswap/database/models"
	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// EmbeddedHost selects a local embedded postgres instead of an external server.
const EmbeddedHost = "embedded"

type Database struct {
	host       string
	username   string
	password   string
	database   string
	port       uint32
	dataPath   string
	connection *embeddedpostgres.EmbeddedPostgres
	orm        *gorm.DB
}

// New connects to the database, starting an embedded postgres when host is
// EmbeddedHost. The returned func stops whatever was started.
func New(username, password, database string, port uint32, dataPath, host string) (*Database, func() error, error) {
	db := &Database{
		host:     host,
		username: username,
		password: password,
		database: database,
		port:     port,
		dataPath: dataPath,
	}

	if db.IsEmbedded() {
		if err := db.startEmbedded(); err != nil {
			return nil, nil, err
		}
	}

	models.RegisterSecretSerializer()

	orm, err := gorm.Open(postgres.Open(db.GetConnectionURL()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = db.stopEmbedded()

		return nil, nil, fmt.Errorf("failed to connect gorm: %w", err)
	}
	db.orm = orm

	return db, db.Close, nil
}

func (d *Database) IsEmbedded() bool {
	return d.host == EmbeddedHost
}

func (d *Database) GetConnectionURL() string {
	host := d.host
	if d.IsEmbedded() {
		host = "localhost"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.username, d.password, host, d.port, d.database)
}

func (d *Database) startEmbedded() error {
	if err := os.MkdirAll(d.dataPath, 0o700); err != nil {
		return fmt.Errorf("failed to create data path: %w", err)
	}

	d.connection = embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Username(d.username).
			Password(d.password).
			Database(d.database).
			Port(d.port).
			DataPath(filepath.Join(d.dataPath, "data")).
			RuntimePath(filepath.Join(d.dataPath, "runtime")),
	)
	if err := d.connection.Start(); err != nil {
		return fmt.Errorf("failed to start embedded database: %w", err)
	}

	conn, err := sql.Open("postgres", d.GetConnectionURL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer conn.Close()
	if err := conn.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("✅ DB started")

	return nil
}

func (d *Database) stopEmbedded() error {
	if d.connection == nil {
		return nil
	}

	return d.connection.Stop()
}

func (d *Database) ORM() *gorm.DB {
	return d.orm
}

func (d *Database) Close() error {
	var errs []error
	if d.orm != nil {
		if sqlDB, err := d.orm.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	errs = append(errs, d.stopEmbedded())

	return errors.Join(errs...)
}
