package pg

import (
	"fmt"

	"github.com/nextlevelbuilder/agdabot/internal/store"
)

// NewPGStores creates the stores backed by Postgres.
func NewPGStores(cfg store.StoreConfig) (*store.Stores, error) {
	db, err := OpenDB(cfg.PostgresDSN, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	logs := NewPGLogStore(db)
	return &store.Stores{
		Events: logs,
		Stats:  logs,
		DB:     db,
		Driver: store.DriverPostgres,
	}, nil
}
