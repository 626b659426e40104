package cmd

import (
	"fmt"

	"github.com/nextlevelbuilder/agdabot/internal/config"
	"github.com/nextlevelbuilder/agdabot/internal/store"
	"github.com/nextlevelbuilder/agdabot/internal/store/pg"
	"github.com/nextlevelbuilder/agdabot/internal/store/sqlite"
)

// loadConfig loads and validates the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func storeConfig(cfg *config.Config) store.StoreConfig {
	return store.StoreConfig{
		Driver:      cfg.Database.EffectiveDriver(),
		PostgresDSN: cfg.Database.PostgresDSN,
		Password:    cfg.Database.Password,
		SQLitePath:  cfg.Database.SQLitePath,
	}
}

// openStores opens the configured backend without touching the schema.
func openStores(cfg *config.Config) (*store.Stores, error) {
	sc := storeConfig(cfg)
	switch sc.Driver {
	case store.DriverPostgres:
		return pg.NewPGStores(sc)
	case store.DriverSQLite:
		return sqlite.NewSQLiteStores(sc)
	default:
		return nil, fmt.Errorf("unknown database driver %q", sc.Driver)
	}
}
