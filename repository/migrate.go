package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate creates or upgrades cuentas, categorias, deudas and transacciones.
func Migrate(databaseURL string) error {
	dsn, err := ParseDSN(databaseURL)
	if err != nil {
		return err
	}
	// migration files hold several statements each
	dsn = dsn.Clone()
	dsn.MultiStatements = true

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return fmt.Errorf("create migration connector: %w", err)
	}
	// Separate connection so the request pool never runs in multi-statement mode
	migrateDB := sql.OpenDB(connector)
	defer migrateDB.Close()

	driver, err := migratemysql.WithInstance(migrateDB, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("create mysql driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "mysql", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
