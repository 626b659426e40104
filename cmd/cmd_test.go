package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
	"github.com/nextlevelbuilder/agdabot/internal/config"
	"github.com/nextlevelbuilder/agdabot/internal/store"
	"github.com/nextlevelbuilder/agdabot/internal/upgrade"
)

func newTestStores(t *testing.T) *store.Stores {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "agdabot.db")

	stores, err := openStores(cfg)
	if err != nil {
		t.Fatalf("openStores: %v", err)
	}
	t.Cleanup(func() { stores.Close() })
	if err := upgrade.EnsureSchema(context.Background(), stores.DB, stores.Driver, true); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return stores
}

func TestRenderTableAlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, []string{"名字", "n"}, [][]string{{"ab", "1"}})

	want := "名字  n\n----  -\nab    1\n"
	if buf.String() != want {
		t.Errorf("got\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestPrintChatStats(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	const chat = int64(-100)

	for i, user := range []int64{7, 7, 0} {
		key := store.MessageKey{MessageID: i + 1, ChatID: chat}
		if err := stores.Events.Record(ctx, key, user); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := printChatStats(ctx, &buf, stores.Stats, chat, 24*time.Hour, 5); err != nil {
		t.Fatalf("printChatStats: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "chat -100: 3 total, 3 in the last 24h0m0s") {
		t.Errorf("missing summary line:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-2:]
	if !strings.HasPrefix(last[0], "1") || !strings.Contains(last[0], "7") || !strings.HasSuffix(last[0], "2") {
		t.Errorf("first row = %q", last[0])
	}
	if !strings.Contains(last[1], unknownUserLabel) || !strings.HasSuffix(last[1], "1") {
		t.Errorf("second row = %q", last[1])
	}
}

func TestPrintChatStatsEmpty(t *testing.T) {
	stores := newTestStores(t)

	var buf bytes.Buffer
	if err := printChatStats(context.Background(), &buf, stores.Stats, 1, time.Hour, 5); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(no entries in window)") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintLookup(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	key := store.MessageKey{MessageID: 42, ChatID: 9}

	var buf bytes.Buffer
	if err := printLookup(ctx, &buf, stores.Events, key); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "is not logged") {
		t.Errorf("missing entry output = %q", buf.String())
	}

	if err := stores.Events.Record(ctx, key, 5); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := printLookup(ctx, &buf, stores.Events, key); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "42") || !strings.Contains(buf.String(), "5") {
		t.Errorf("lookup output = %q", buf.String())
	}
}

func TestOnboardAnswersApply(t *testing.T) {
	cfg := config.Default()
	a := answersFromConfig(cfg)
	if a.Driver != config.DriverSQLite || a.Window != "24h" || a.LeaderboardSize != "5" {
		t.Fatalf("answers = %+v", a)
	}

	a.LeaderboardSize = "10"
	a.WebhookURL = "https://bot.example.com/hook"
	if err := a.apply(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Stats.LeaderboardSize != 10 {
		t.Errorf("LeaderboardSize = %d", cfg.Stats.LeaderboardSize)
	}
	if cfg.HTTP.Listen == "" {
		t.Error("webhook without listen address should get a default listener")
	}
}

func TestOnboardValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		in      string
		wantErr bool
	}{
		{"window ok", validateWindow, "168h", false},
		{"window zero", validateWindow, "0s", true},
		{"window junk", validateWindow, "day", true},
		{"board ok", validateBoardSize, "0", false},
		{"board negative", validateBoardSize, "-1", true},
		{"webhook empty", validateWebhookURL, "", false},
		{"webhook https", validateWebhookURL, "https://x.example/hook", false},
		{"webhook http", validateWebhookURL, "http://x.example/hook", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(tt.in); (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "(not configured)" {
		t.Errorf("empty = %q", got)
	}
	if got := maskSecret("123456:ABCDEFGH"); got != "1234*******EFGH" {
		t.Errorf("masked = %q", got)
	}
}

func TestEventAttrs(t *testing.T) {
	tests := []struct {
		ev   bus.Event
		want []any
	}{
		{bus.NewMessage{MessageID: 3, ChatID: -1, AuthorID: 7},
			[]any{"kind", bus.KindNewMessage, "chat_id", int64(-1), "message_id", 3, "user_id", int64(7)}},
		{bus.EditedMessage{MessageID: 4, ChatID: -2},
			[]any{"kind", bus.KindEditedMessage, "chat_id", int64(-2), "message_id", 4, "user_id", int64(0)}},
		{bus.Command{Name: "stats", MessageID: 5, ChatID: -3, UserID: 9},
			[]any{"kind", bus.KindCommand, "chat_id", int64(-3), "message_id", 5, "user_id", int64(9), "command", "stats"}},
		{bus.InlineQuery{ID: "q1", RequesterID: 8},
			[]any{"kind", bus.KindInlineQuery, "query_id", "q1", "user_id", int64(8)}},
	}
	for _, tt := range tests {
		if got := eventAttrs(tt.ev); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("eventAttrs(%#v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}

func TestOnboardSeedIgnoresEnv(t *testing.T) {
	t.Setenv("APP_WEBHOOK_URL", "https://env.example/hook")
	t.Setenv("APP_BIND_ADDR", "0.0.0.0:9000")
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	a := answersFromConfig(cfg)
	if a.WebhookURL != "" || a.Listen != "" {
		t.Errorf("env values seeded into wizard: %+v", a)
	}
	if !strings.HasPrefix(a.SQLitePath, "~") {
		t.Errorf("SQLitePath = %q, want the unexpanded default", a.SQLitePath)
	}

	if err := a.apply(cfg); err != nil {
		t.Fatal(err)
	}
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, leaked := range []string{"env.example", "9000"} {
		if strings.Contains(string(data), leaked) {
			t.Errorf("config.json contains env value %q:\n%s", leaked, data)
		}
	}
}
