// Package storetest is a backend-independent contract suite for
// store.EventLog and store.StatsStore implementations.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/store"
)

// Backend is what the suite needs from an implementation under test.
type Backend interface {
	store.EventLog
	store.StatsStore
}

// Harness creates a fresh, empty backend per subtest and can move an entry's
// timestamp into the past so window queries can be exercised.
type Harness struct {
	New      func(t *testing.T) Backend
	Backdate func(t *testing.T, b Backend, key store.MessageKey, age time.Duration)
}

const day = 24 * time.Hour

// Run executes every contract test against the harness.
func Run(t *testing.T, h Harness) {
	t.Run("RecordIsIdempotent", func(t *testing.T) { testRecordIdempotent(t, h) })
	t.Run("RecordConcurrentDuplicates", func(t *testing.T) { testRecordConcurrent(t, h) })
	t.Run("EraseMissingKey", func(t *testing.T) { testEraseMissing(t, h) })
	t.Run("Lifecycle", func(t *testing.T) { testLifecycle(t, h) })
	t.Run("ZeroCounts", func(t *testing.T) { testZeroCounts(t, h) })
	t.Run("ConversationScenario", func(t *testing.T) { testConversationScenario(t, h) })
	t.Run("UserCounts", func(t *testing.T) { testUserCounts(t, h) })
	t.Run("LeaderboardLimit", func(t *testing.T) { testLeaderboardLimit(t, h) })
	t.Run("KeyIsPerConversation", func(t *testing.T) { testKeyPerConversation(t, h) })
}

func mustRecord(t *testing.T, b Backend, msgID int, chatID, userID int64) store.MessageKey {
	t.Helper()
	key := store.MessageKey{MessageID: msgID, ChatID: chatID}
	if err := b.Record(context.Background(), key, userID); err != nil {
		t.Fatalf("Record(%v, %d): %v", key, userID, err)
	}
	return key
}

func mustCount(t *testing.T, what string, n int64, err error, want int64) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", what, err)
	}
	if n != want {
		t.Errorf("%s = %d, want %d", what, n, want)
	}
}

func testRecordIdempotent(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)

	key := mustRecord(t, b, 1, 7, 42)
	h.Backdate(t, b, key, time.Hour)
	first, err := b.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup after first record: %v", err)
	}

	// Second write with a different author must not overwrite anything.
	mustRecord(t, b, 1, 7, 99)
	second, err := b.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup after second record: %v", err)
	}
	if !second.Timestamp.Equal(first.Timestamp) {
		t.Errorf("timestamp changed: %v -> %v", first.Timestamp, second.Timestamp)
	}
	if second.UserID != 42 {
		t.Errorf("user = %d, want 42", second.UserID)
	}

	n, err := b.TotalByConversation(ctx, 7)
	mustCount(t, "TotalByConversation", n, err, 1)
}

func testRecordConcurrent(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)
	key := store.MessageKey{MessageID: 5, ChatID: 9}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- b.Record(ctx, key, 1)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Record: %v", err)
		}
	}

	n, err := b.TotalByConversation(ctx, 9)
	mustCount(t, "TotalByConversation", n, err, 1)
}

func testEraseMissing(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)
	key := store.MessageKey{MessageID: 404, ChatID: 1}

	if err := b.Erase(ctx, key); err != nil {
		t.Fatalf("Erase missing key: %v", err)
	}
	if _, err := b.Lookup(ctx, key); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Lookup after erase = %v, want ErrNotFound", err)
	}
	n, err := b.TotalByConversation(ctx, 1)
	mustCount(t, "TotalByConversation", n, err, 0)
}

func testLifecycle(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)

	key := mustRecord(t, b, 10, 7, 42)
	h.Backdate(t, b, key, 2*time.Hour)
	old, err := b.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if err := b.Erase(ctx, key); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := b.Lookup(ctx, key); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Lookup after erase = %v, want ErrNotFound", err)
	}

	mustRecord(t, b, 10, 7, 42)
	again, err := b.Lookup(ctx, key)
	if err != nil {
		t.Fatalf("Lookup after re-record: %v", err)
	}
	if !again.Timestamp.After(old.Timestamp) {
		t.Errorf("re-recorded timestamp %v not after original %v", again.Timestamp, old.Timestamp)
	}
}

func testZeroCounts(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)

	n, err := b.TotalByUser(ctx, 12345)
	mustCount(t, "TotalByUser", n, err, 0)
	n, err = b.RecentByUser(ctx, 12345, day)
	mustCount(t, "RecentByUser", n, err, 0)
	n, err = b.TotalByConversation(ctx, 12345)
	mustCount(t, "TotalByConversation", n, err, 0)
	n, err = b.RecentByConversation(ctx, 12345, day)
	mustCount(t, "RecentByConversation", n, err, 0)

	rows, err := b.Leaderboard(ctx, 12345, day, 5)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Leaderboard = %v, want empty", rows)
	}
}

// Three recent and one old entry from A, two recent from B.
func testConversationScenario(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)
	const (
		chat  = int64(-100)
		userA = int64(1)
		userB = int64(2)
	)

	mustRecord(t, b, 1, chat, userA)
	mustRecord(t, b, 2, chat, userA)
	mustRecord(t, b, 3, chat, userA)
	old := mustRecord(t, b, 4, chat, userA)
	h.Backdate(t, b, old, 2*day)
	mustRecord(t, b, 5, chat, userB)
	mustRecord(t, b, 6, chat, userB)
	// Noise from another conversation.
	mustRecord(t, b, 1, chat-1, userB)

	n, err := b.TotalByConversation(ctx, chat)
	mustCount(t, "TotalByConversation", n, err, 6)
	n, err = b.RecentByConversation(ctx, chat, day)
	mustCount(t, "RecentByConversation", n, err, 5)

	rows, err := b.Leaderboard(ctx, chat, day, 5)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	want := map[int64]int64{userA: 3, userB: 2}
	if len(rows) != len(want) {
		t.Fatalf("Leaderboard = %v, want %d rows", rows, len(want))
	}
	for _, r := range rows {
		if want[r.UserID] != r.Count {
			t.Errorf("Leaderboard row %+v, want count %d", r, want[r.UserID])
		}
	}
	if rows[0].UserID != userA {
		t.Errorf("Leaderboard[0] = %+v, want user %d first", rows[0], userA)
	}
}

func testUserCounts(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)

	mustRecord(t, b, 1, 10, 42)
	mustRecord(t, b, 2, 20, 42)
	old := mustRecord(t, b, 3, 30, 42)
	h.Backdate(t, b, old, 3*day)
	mustRecord(t, b, 4, 10, 43)

	n, err := b.TotalByUser(ctx, 42)
	mustCount(t, "TotalByUser", n, err, 3)
	n, err = b.RecentByUser(ctx, 42, day)
	mustCount(t, "RecentByUser", n, err, 2)
	n, err = b.RecentByUser(ctx, 42, 4*day)
	mustCount(t, "RecentByUser(4d)", n, err, 3)
}

func testLeaderboardLimit(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)
	const chat = int64(77)

	msg := 0
	for user := int64(1); user <= 8; user++ {
		for i := int64(0); i < user; i++ {
			msg++
			mustRecord(t, b, msg, chat, user)
		}
	}

	rows, err := b.Leaderboard(ctx, chat, day, 5)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("Leaderboard returned %d rows, want 5", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Count > rows[i-1].Count {
			t.Errorf("rows not non-increasing at %d: %v", i, rows)
		}
	}
	if rows[0].UserID != 8 || rows[0].Count != 8 {
		t.Errorf("top row = %+v, want user 8 with 8", rows[0])
	}

	rows, err = b.Leaderboard(ctx, chat, day, 0)
	if err != nil {
		t.Fatalf("Leaderboard(limit 0): %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Leaderboard(limit 0) = %v, want empty", rows)
	}
}

func testKeyPerConversation(t *testing.T, h Harness) {
	ctx := context.Background()
	b := h.New(t)

	mustRecord(t, b, 1, 100, 5)
	mustRecord(t, b, 1, 200, 5)

	n, err := b.TotalByUser(ctx, 5)
	mustCount(t, "TotalByUser", n, err, 2)

	if err := b.Erase(ctx, store.MessageKey{MessageID: 1, ChatID: 100}); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	n, err = b.TotalByConversation(ctx, 200)
	mustCount(t, "TotalByConversation(200)", n, err, 1)
}
