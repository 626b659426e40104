package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agdabot/internal/upgrade"
)

var migrationsDir string

// resolveMigrationsDir returns a directory to read migrations from, or ""
// for the set embedded in the binary.
func resolveMigrationsDir() string {
	if migrationsDir != "" {
		return migrationsDir
	}
	return os.Getenv("AGDABOT_MIGRATIONS_DIR")
}

// newMigrator opens the configured database and wraps it in a migrator.
// Closing the migrator closes the database.
func newMigrator() (*migrate.Migrate, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	stores, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	m, err := upgrade.NewMigrator(stores.DB, stores.Driver, resolveMigrationsDir())
	if err != nil {
		stores.Close()
		return nil, err
	}
	return m, nil
}

// withMigrator runs fn on a fresh migrator and closes it afterwards.
func withMigrator(fn func(m *migrate.Migrate) error) error {
	m, err := newMigrator()
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration management",
	}

	cmd.PersistentFlags().StringVar(&migrationsDir, "migrations-dir", "", "path to migrations directory (default: embedded migrations)")

	cmd.AddCommand(
		migrateUpCmd(),
		migrateDownCmd(),
		migrateVersionCmd(),
		migrateForceCmd(),
		migrateGotoCmd(),
		migrateDropCmd(),
	)
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				v, err := upgrade.Up(m)
				if err != nil {
					return err
				}
				slog.Info("migration complete", "version", v)
				return nil
			})
		},
	}
}

func migrateDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (default: 1 step)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps <= 0 {
				steps = 1
			}
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate down: %w", err)
				}
				v, dirty, _ := m.Version()
				slog.Info("rollback complete", "version", v, "dirty", dirty)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of steps to roll back")
	return cmd
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				v, dirty, err := m.Version()
				switch {
				case errors.Is(err, migrate.ErrNilVersion):
					fmt.Printf("version: none (requires %d)\n", upgrade.RequiredSchemaVersion)
				case err != nil:
					return fmt.Errorf("get version: %w", err)
				default:
					fmt.Printf("version: %d, dirty: %v (requires %d)\n", v, dirty, upgrade.RequiredSchemaVersion)
				}
				return nil
			})
		},
	}
}

func migrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Set the recorded version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Force(version); err != nil {
					return fmt.Errorf("force version: %w", err)
				}
				slog.Info("forced version", "version", version)
				return nil
			})
		},
	}
}

func migrateGotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "goto <version>",
		Short: "Migrate up or down to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return fmt.Errorf("migrate goto: %w", err)
				}
				slog.Info("migrated to version", "version", version)
				return nil
			})
		},
	}
}

func migrateDropCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop all tables, including the event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop the event log without --yes")
			}
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Drop(); err != nil {
					return fmt.Errorf("drop: %w", err)
				}
				slog.Info("all tables dropped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping every table")
	return cmd
}
