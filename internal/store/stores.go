package store

import "database/sql"

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig holds the settings needed to open a backend.
type StoreConfig struct {
	Driver      string
	PostgresDSN string
	Password    string // overrides the password embedded in PostgresDSN
	SQLitePath  string
}

// Stores is the top-level container for the storage backend.
// Events and Stats are usually the same object.
type Stores struct {
	Events EventLog
	Stats  StatsStore
	DB     *sql.DB
	Driver string
}

// Close releases the underlying connection pool.
func (s *Stores) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
