package upgrade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/nextlevelbuilder/agdabot/internal/store"
	"github.com/nextlevelbuilder/agdabot/migrations"
)

// NewMigrator builds a migrator on an open database. Migrations come from the
// embedded set for driver unless dir names a directory on disk.
//
// Closing the returned Migrate also closes db.
func NewMigrator(db *sql.DB, driver, dir string) (*migrate.Migrate, error) {
	var (
		dbDriver database.Driver
		err      error
	)
	switch driver {
	case store.DriverPostgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case store.DriverSQLite:
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s migration driver: %w", driver, err)
	}

	if dir != "" {
		m, err := migrate.NewWithDatabaseInstance("file://"+dir, driver, dbDriver)
		if err != nil {
			return nil, fmt.Errorf("create migrator: %w", err)
		}
		return m, nil
	}

	src, err := iofs.New(migrations.FS, driver)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Up applies every pending migration and returns the resulting version.
// Nothing to apply is not an error.
func Up(m *migrate.Migrate) (uint, error) {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}
	v, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return v, ErrSchemaDirty
	}
	return v, nil
}

// EnsureSchema migrates db when autoMigrate is set, otherwise it refuses a
// schema that does not match RequiredSchemaVersion. The migrator is left
// open because closing it would close db.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string, autoMigrate bool) error {
	if autoMigrate {
		m, err := NewMigrator(db, driver, "")
		if err != nil {
			return err
		}
		v, err := Up(m)
		if err != nil {
			return err
		}
		slog.Info("database schema up to date", "driver", driver, "version", v)
		return nil
	}

	status, err := CheckSchema(ctx, db)
	if err != nil {
		return err
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%w\n%s", err, status.Hint())
	}
	return nil
}
