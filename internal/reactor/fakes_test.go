package reactor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
	"github.com/nextlevelbuilder/agdabot/internal/store"
)

// memLog is an in-memory event log with a settable clock.
type memLog struct {
	mu      sync.Mutex
	now     time.Time
	entries map[store.MessageKey]store.Entry
	err     error // returned by every call when set
}

func newMemLog() *memLog {
	return &memLog{
		now:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		entries: make(map[store.MessageKey]store.Entry),
	}
}

func (m *memLog) advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *memLog) Record(_ context.Context, key store.MessageKey, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.entries[key]; !ok {
		m.entries[key] = store.Entry{MessageKey: key, UserID: userID, Timestamp: m.now}
	}
	return nil
}

func (m *memLog) Erase(_ context.Context, key store.MessageKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.entries, key)
	return nil
}

func (m *memLog) entry(key store.MessageKey) (store.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok
}

func (m *memLog) count(match func(store.Entry) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, e := range m.entries {
		if match(e) {
			n++
		}
	}
	return n, nil
}

func (m *memLog) recent(e store.Entry, window time.Duration) bool {
	return !e.Timestamp.Before(m.now.Add(-window))
}

func (m *memLog) TotalByUser(_ context.Context, userID int64) (int64, error) {
	return m.count(func(e store.Entry) bool { return e.UserID == userID })
}

func (m *memLog) RecentByUser(_ context.Context, userID int64, window time.Duration) (int64, error) {
	return m.count(func(e store.Entry) bool { return e.UserID == userID && m.recent(e, window) })
}

func (m *memLog) TotalByConversation(_ context.Context, chatID int64) (int64, error) {
	return m.count(func(e store.Entry) bool { return e.ChatID == chatID })
}

func (m *memLog) RecentByConversation(_ context.Context, chatID int64, window time.Duration) (int64, error) {
	return m.count(func(e store.Entry) bool { return e.ChatID == chatID && m.recent(e, window) })
}

func (m *memLog) Leaderboard(_ context.Context, chatID int64, window time.Duration, limit int) ([]store.LeaderboardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	counts := make(map[int64]int64)
	for _, e := range m.entries {
		if e.ChatID == chatID && m.recent(e, window) {
			counts[e.UserID]++
		}
	}
	rows := make([]store.LeaderboardRow, 0, len(counts))
	for u, c := range counts {
		rows = append(rows, store.LeaderboardRow{UserID: u, Count: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].UserID < rows[j].UserID
	})
	if limit < 0 {
		limit = 0
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type reaction struct {
	ChatID    int64
	MessageID int
	Symbols   []string
}

type sentText struct {
	ChatID int64
	Text   string
}

type inlineAnswer struct {
	QueryID string
	Results []bus.InlineResult
}

// recordingSink captures every outbound call.
type recordingSink struct {
	mu        sync.Mutex
	reactions []reaction
	texts     []sentText
	answers   []inlineAnswer
	names     map[int64]string
	resolved  []int64
	failNames bool
	failSend  error
}

var errTransport = errors.New("transport down")

func (s *recordingSink) AttachReaction(_ context.Context, chatID int64, messageID int, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend != nil {
		return s.failSend
	}
	s.reactions = append(s.reactions, reaction{chatID, messageID, append([]string{}, symbols...)})
	return nil
}

func (s *recordingSink) SendText(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend != nil {
		return s.failSend
	}
	s.texts = append(s.texts, sentText{chatID, text})
	return nil
}

func (s *recordingSink) ResolveDisplayName(_ context.Context, _ int64, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, userID)
	if s.failNames {
		return "", errTransport
	}
	return s.names[userID], nil
}

func (s *recordingSink) AnswerInlineQuery(_ context.Context, queryID string, results []bus.InlineResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend != nil {
		return s.failSend
	}
	s.answers = append(s.answers, inlineAnswer{queryID, results})
	return nil
}
