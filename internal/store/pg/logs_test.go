package pg

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/store"
	"github.com/nextlevelbuilder/agdabot/internal/store/storetest"
	"github.com/nextlevelbuilder/agdabot/migrations"
)

// The contract suite runs against a real server only when
// AGDABOT_TEST_POSTGRES_DSN points at a disposable database.
func newTestStore(t *testing.T) storetest.Backend {
	t.Helper()
	dsn := os.Getenv("AGDABOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AGDABOT_TEST_POSTGRES_DSN not set")
	}
	db, err := OpenDB(dsn, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := migrations.FS.ReadFile("postgres/000001_create_logs.up.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE logs`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPGLogStore(db)
}

func backdate(t *testing.T, b storetest.Backend, key store.MessageKey, age time.Duration) {
	t.Helper()
	s := b.(*PGLogStore)
	_, err := s.db.Exec(
		`UPDATE logs SET timestamp = timestamp - CAST($1 AS interval) WHERE msg_id = $2 AND chat_id = $3`,
		fmt.Sprintf("%d seconds", int64(age/time.Second)), key.MessageID, key.ChatID)
	if err != nil {
		t.Fatalf("backdate %v: %v", key, err)
	}
}

func TestPGLogStore(t *testing.T) {
	storetest.Run(t, storetest.Harness{New: newTestStore, Backdate: backdate})
}

func TestOpenDB_InvalidDSN(t *testing.T) {
	if _, err := OpenDB("", ""); err == nil {
		t.Error("expected error for empty DSN")
	}
	if _, err := OpenDB("postgres://user@host:notaport/db", ""); err == nil {
		t.Error("expected error for malformed DSN")
	}
}

func TestIntervalLiteral(t *testing.T) {
	if got := intervalLiteral(24 * time.Hour); got != "86400 seconds" {
		t.Errorf("intervalLiteral(24h) = %q", got)
	}
}
