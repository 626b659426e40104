package sqlite

import (
	"fmt"

	"github.com/nextlevelbuilder/agdabot/internal/store"
)

// NewSQLiteStores creates the stores backed by a SQLite file.
// The schema is not touched; run migrations first.
func NewSQLiteStores(cfg store.StoreConfig) (*store.Stores, error) {
	db, err := OpenDB(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	logs := NewSQLiteLogStore(db)
	return &store.Stores{
		Events: logs,
		Stats:  logs,
		DB:     db,
		Driver: store.DriverSQLite,
	}, nil
}
