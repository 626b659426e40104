package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups for a key with no log entry.
var ErrNotFound = errors.New("store: entry not found")

// UnknownUser is recorded when a message author cannot be determined
// (anonymous admins, channel posts).
const UnknownUser int64 = 0

// MessageKey identifies one message. Message IDs are only unique per chat.
type MessageKey struct {
	MessageID int
	ChatID    int64
}

// Entry is one row of the event log: a message classified as a match.
type Entry struct {
	MessageKey
	UserID    int64
	Timestamp time.Time // assigned by the store on insert, never updated
}

// LeaderboardRow is a per-user count inside a conversation.
type LeaderboardRow struct {
	UserID int64
	Count  int64
}

// EventLog is the idempotent, append-only record of matched messages.
// The unique (message, chat) key is its only concurrency mechanism: callers
// never lock, and duplicate concurrent deliveries collapse into one row.
type EventLog interface {
	// Record inserts the entry if the key is absent. An existing key is a
	// silent no-op and keeps its original user and timestamp.
	Record(ctx context.Context, key MessageKey, userID int64) error
	// Erase deletes the entry for key. A missing key is not an error.
	Erase(ctx context.Context, key MessageKey) error
	// Lookup returns the entry for key or ErrNotFound.
	Lookup(ctx context.Context, key MessageKey) (*Entry, error)
}

// StatsStore answers read-only aggregate queries over the event log.
// Windows trail the store clock at query time. Empty sets count as 0.
type StatsStore interface {
	TotalByUser(ctx context.Context, userID int64) (int64, error)
	RecentByUser(ctx context.Context, userID int64, window time.Duration) (int64, error)
	TotalByConversation(ctx context.Context, chatID int64) (int64, error)
	RecentByConversation(ctx context.Context, chatID int64, window time.Duration) (int64, error)
	// Leaderboard groups recent entries by user, ordered by count descending,
	// and returns at most limit rows.
	Leaderboard(ctx context.Context, chatID int64, window time.Duration, limit int) ([]LeaderboardRow, error)
}
