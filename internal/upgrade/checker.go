// Package upgrade applies the embedded schema migrations and checks that a
// database schema matches what this binary expects.
package upgrade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RequiredSchemaVersion is the migration version this binary reads and writes.
const RequiredSchemaVersion uint = 1

var (
	ErrSchemaOutdated = errors.New("database schema is outdated")
	ErrSchemaDirty    = errors.New("database schema is dirty (failed migration)")
	ErrSchemaAhead    = errors.New("database schema is newer than this binary")
)

// SchemaStatus compares the recorded migration version with
// RequiredSchemaVersion.
type SchemaStatus struct {
	CurrentVersion  uint
	RequiredVersion uint
	Dirty           bool
	Compatible      bool
	NeedsMigration  bool
}

// CheckSchema reads the schema_migrations table kept by golang-migrate.
// A missing or empty table is reported as a fresh database needing
// migration, not as an error.
func CheckSchema(ctx context.Context, db *sql.DB) (*SchemaStatus, error) {
	s := &SchemaStatus{RequiredVersion: RequiredSchemaVersion}

	var version int64
	err := db.QueryRowContext(ctx, "SELECT version, dirty FROM schema_migrations LIMIT 1").Scan(&version, &s.Dirty)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.NeedsMigration = true
		return s, nil
	}
	if version < 0 {
		return nil, fmt.Errorf("schema_migrations holds negative version %d", version)
	}
	s.CurrentVersion = uint(version)

	if !s.Dirty {
		s.Compatible = s.CurrentVersion == s.RequiredVersion
		s.NeedsMigration = s.CurrentVersion < s.RequiredVersion
	}
	return s, nil
}

// Err maps a status to one of the schema sentinels, or nil when compatible.
func (s *SchemaStatus) Err() error {
	switch {
	case s.Compatible:
		return nil
	case s.Dirty:
		return ErrSchemaDirty
	case s.CurrentVersion > s.RequiredVersion:
		return ErrSchemaAhead
	default:
		return ErrSchemaOutdated
	}
}

// ForceTarget is the version to force before retrying a dirty migration.
func (s *SchemaStatus) ForceTarget() uint {
	if s.CurrentVersion == 0 {
		return 0
	}
	return s.CurrentVersion - 1
}

// Hint returns operator instructions for an incompatible schema.
func (s *SchemaStatus) Hint() string {
	switch {
	case s.Compatible:
		return ""
	case s.Dirty:
		return fmt.Sprintf("schema v%d is dirty: a migration failed partway.\n"+
			"  fix:  agdabot migrate force %d\n"+
			"  then: agdabot migrate up\n", s.CurrentVersion, s.ForceTarget())
	case s.CurrentVersion > s.RequiredVersion:
		return fmt.Sprintf("schema v%d is newer than this binary (requires v%d).\n"+
			"  fix: upgrade the agdabot binary\n", s.CurrentVersion, s.RequiredVersion)
	default:
		return fmt.Sprintf("schema v%d is behind (requires v%d).\n"+
			"  run: agdabot migrate up\n"+
			"  or start with database.auto_migrate enabled (AGDABOT_DB_AUTO_MIGRATE=true)\n",
			s.CurrentVersion, s.RequiredVersion)
	}
}
