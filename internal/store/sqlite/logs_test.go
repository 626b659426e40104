package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/store"
	"github.com/nextlevelbuilder/agdabot/internal/store/storetest"
	"github.com/nextlevelbuilder/agdabot/migrations"
)

func newTestStore(t *testing.T) storetest.Backend {
	t.Helper()
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := migrations.FS.ReadFile("sqlite/000001_create_logs.up.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return NewSQLiteLogStore(db)
}

func backdate(t *testing.T, b storetest.Backend, key store.MessageKey, age time.Duration) {
	t.Helper()
	s := b.(*SQLiteLogStore)
	_, err := s.db.Exec(
		`UPDATE logs SET timestamp = datetime(timestamp, ?) WHERE msg_id = ? AND chat_id = ?`,
		fmt.Sprintf("-%d seconds", int64(age/time.Second)), key.MessageID, key.ChatID)
	if err != nil {
		t.Fatalf("backdate %v: %v", key, err)
	}
}

func TestSQLiteLogStore(t *testing.T) {
	storetest.Run(t, storetest.Harness{New: newTestStore, Backdate: backdate})
}

func TestNewSQLiteStores_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStores(store.StoreConfig{Driver: store.DriverSQLite}); err == nil {
		t.Fatal("expected error for empty sqlite path")
	}
}

func TestRecord_MissingSchemaFails(t *testing.T) {
	db, err := OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	s := NewSQLiteLogStore(db)
	err = s.Record(context.Background(), store.MessageKey{MessageID: 1, ChatID: 1}, 1)
	if err == nil {
		t.Fatal("expected error when logs table is missing")
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	for _, in := range []string{"2024-05-01 12:30:00", "2024-05-01T12:30:00Z"} {
		got, err := parseTimestamp(in)
		if err != nil {
			t.Fatalf("parseTimestamp(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Error("expected error for garbage timestamp")
	}
}
