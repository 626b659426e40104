package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/store"
)

// PGLogStore implements store.EventLog and store.StatsStore backed by Postgres.
// Timestamps come from the server clock so several bot instances agree on windows.
type PGLogStore struct {
	db *sql.DB
}

func NewPGLogStore(db *sql.DB) *PGLogStore {
	return &PGLogStore{db: db}
}

func (s *PGLogStore) Record(ctx context.Context, key store.MessageKey, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (msg_id, user_id, chat_id, timestamp)
		 VALUES ($1, $2, $3, current_timestamp)
		 ON CONFLICT (msg_id, chat_id) DO NOTHING`,
		key.MessageID, userID, key.ChatID)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

func (s *PGLogStore) Erase(ctx context.Context, key store.MessageKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM logs WHERE msg_id = $1 AND chat_id = $2`,
		key.MessageID, key.ChatID)
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	return nil
}

func (s *PGLogStore) Lookup(ctx context.Context, key store.MessageKey) (*store.Entry, error) {
	e := &store.Entry{MessageKey: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, timestamp FROM logs WHERE msg_id = $1 AND chat_id = $2`,
		key.MessageID, key.ChatID).Scan(&e.UserID, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup log: %w", err)
	}
	return e, nil
}

func (s *PGLogStore) TotalByUser(ctx context.Context, userID int64) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM logs WHERE user_id = $1`, userID)
}

func (s *PGLogStore) RecentByUser(ctx context.Context, userID int64, window time.Duration) (int64, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM logs
		 WHERE user_id = $1 AND timestamp >= current_timestamp - CAST($2 AS interval)`,
		userID, intervalLiteral(window))
}

func (s *PGLogStore) TotalByConversation(ctx context.Context, chatID int64) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM logs WHERE chat_id = $1`, chatID)
}

func (s *PGLogStore) RecentByConversation(ctx context.Context, chatID int64, window time.Duration) (int64, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM logs
		 WHERE chat_id = $1 AND timestamp >= current_timestamp - CAST($2 AS interval)`,
		chatID, intervalLiteral(window))
}

func (s *PGLogStore) Leaderboard(ctx context.Context, chatID int64, window time.Duration, limit int) ([]store.LeaderboardRow, error) {
	if limit <= 0 {
		return []store.LeaderboardRow{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, COUNT(*) AS count FROM logs
		 WHERE chat_id = $1 AND timestamp >= current_timestamp - CAST($2 AS interval)
		 GROUP BY user_id
		 ORDER BY count DESC, user_id
		 LIMIT $3`,
		chatID, intervalLiteral(window), limit)
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

func (s *PGLogStore) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n.Int64, nil
}

// intervalLiteral renders a window as a Postgres interval string.
func intervalLiteral(window time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(window/time.Second))
}
