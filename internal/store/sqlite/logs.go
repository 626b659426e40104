// Package sqlite implements the event log and aggregate queries on SQLite
// (modernc.org/sqlite, no cgo). Suited to single-instance deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/store"
)

// SQLiteLogStore implements store.EventLog and store.StatsStore.
type SQLiteLogStore struct {
	db *sql.DB
}

func NewSQLiteLogStore(db *sql.DB) *SQLiteLogStore {
	return &SQLiteLogStore{db: db}
}

func (s *SQLiteLogStore) Record(ctx context.Context, key store.MessageKey, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (msg_id, user_id, chat_id, timestamp)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (msg_id, chat_id) DO NOTHING`,
		key.MessageID, userID, key.ChatID)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

func (s *SQLiteLogStore) Erase(ctx context.Context, key store.MessageKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM logs WHERE msg_id = ? AND chat_id = ?`,
		key.MessageID, key.ChatID)
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	return nil
}

func (s *SQLiteLogStore) Lookup(ctx context.Context, key store.MessageKey) (*store.Entry, error) {
	var (
		userID int64
		ts     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, timestamp FROM logs WHERE msg_id = ? AND chat_id = ?`,
		key.MessageID, key.ChatID).Scan(&userID, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup log: %w", err)
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return nil, err
	}
	return &store.Entry{MessageKey: key, UserID: userID, Timestamp: t}, nil
}

func (s *SQLiteLogStore) TotalByUser(ctx context.Context, userID int64) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM logs WHERE user_id = ?`, userID)
}

func (s *SQLiteLogStore) RecentByUser(ctx context.Context, userID int64, window time.Duration) (int64, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM logs WHERE user_id = ? AND timestamp >= datetime('now', ?)`,
		userID, windowModifier(window))
}

func (s *SQLiteLogStore) TotalByConversation(ctx context.Context, chatID int64) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM logs WHERE chat_id = ?`, chatID)
}

func (s *SQLiteLogStore) RecentByConversation(ctx context.Context, chatID int64, window time.Duration) (int64, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM logs WHERE chat_id = ? AND timestamp >= datetime('now', ?)`,
		chatID, windowModifier(window))
}

func (s *SQLiteLogStore) Leaderboard(ctx context.Context, chatID int64, window time.Duration, limit int) ([]store.LeaderboardRow, error) {
	if limit <= 0 {
		return []store.LeaderboardRow{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, COUNT(*) AS count FROM logs
		 WHERE chat_id = ? AND timestamp >= datetime('now', ?)
		 GROUP BY user_id
		 ORDER BY count DESC, user_id
		 LIMIT ?`,
		chatID, windowModifier(window), limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	board := []store.LeaderboardRow{}
	for rows.Next() {
		var r store.LeaderboardRow
		if err := rows.Scan(&r.UserID, &r.Count); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		board = append(board, r)
	}
	return board, rows.Err()
}

func (s *SQLiteLogStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n.Int64, nil
}

// windowModifier renders a trailing window as a datetime() modifier.
func windowModifier(window time.Duration) string {
	return fmt.Sprintf("-%d seconds", int64(window/time.Second))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse log timestamp %q", s)
}
