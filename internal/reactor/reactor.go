// Package reactor turns inbound chat events into event log writes, message
// reactions and stats replies.
package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
	"github.com/nextlevelbuilder/agdabot/internal/detect"
	"github.com/nextlevelbuilder/agdabot/internal/metrics"
	"github.com/nextlevelbuilder/agdabot/internal/store"
	"github.com/nextlevelbuilder/agdabot/internal/tracing"
)

// Sink is the outbound side of the chat transport.
type Sink interface {
	// AttachReaction replaces the bot's reactions on a message. An empty
	// symbols slice clears them.
	AttachReaction(ctx context.Context, chatID int64, messageID int, symbols []string) error
	SendText(ctx context.Context, chatID int64, text string) error
	ResolveDisplayName(ctx context.Context, chatID, userID int64) (string, error)
	AnswerInlineQuery(ctx context.Context, queryID string, results []bus.InlineResult) error
}

// Config configures a Service.
type Config struct {
	Events EventLog
	Stats  store.StatsStore
	Sink   Sink

	Window          time.Duration    // rolling window for "recent" counts (default 24h)
	LeaderboardSize int              // rows in /stats (default 5)
	Metrics         *metrics.Manager // nil = no metrics
}

// EventLog is the subset of store.EventLog the service writes through.
type EventLog interface {
	Record(ctx context.Context, key store.MessageKey, userID int64) error
	Erase(ctx context.Context, key store.MessageKey) error
}

// Service handles bus events. It holds no mutable state of its own and is
// safe for concurrent use.
type Service struct {
	events  EventLog
	stats   store.StatsStore
	sink    Sink
	window  time.Duration
	board   int
	metrics *metrics.Manager
	tracer  trace.Tracer
}

var _ bus.Handler = (*Service)(nil)

func New(cfg Config) *Service {
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 5
	}
	return &Service{
		events:  cfg.Events,
		stats:   cfg.Stats,
		sink:    cfg.Sink,
		window:  cfg.Window,
		board:   cfg.LeaderboardSize,
		metrics: cfg.Metrics,
		tracer:  otel.Tracer(tracing.TracerName),
	}
}

// Handle processes one event. Store and transport failures abort only this
// event and are returned to the caller; nothing is retried.
func (s *Service) Handle(ctx context.Context, ev bus.Event) error {
	start := time.Now()
	eventID := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "reactor."+ev.Kind(),
		trace.WithAttributes(
			attribute.String("agdabot.event_id", eventID),
			attribute.String("agdabot.event_kind", ev.Kind()),
		))
	defer span.End()

	var err error
	switch e := ev.(type) {
	case bus.NewMessage:
		err = s.handleNewMessage(ctx, e)
	case bus.EditedMessage:
		err = s.handleEditedMessage(ctx, e)
	case bus.Command:
		err = s.handleCommand(ctx, e)
	case bus.InlineQuery:
		err = s.handleInlineQuery(ctx, e)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveEvent(ev.Kind(), err, elapsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s %s: %w", ev.Kind(), eventID, err)
	}
	slog.Debug("event handled", "event_id", eventID, "kind", ev.Kind(), "elapsed", elapsed)
	return nil
}

func (s *Service) classify(text string, hasText bool) detect.Result {
	res := detect.Classify(text, hasText)
	s.metrics.ObserveClassification(res.Kind.String())
	return res
}

func (s *Service) handleNewMessage(ctx context.Context, m bus.NewMessage) error {
	res := s.classify(m.Text, m.HasText)
	if !res.IsMatch() {
		return nil
	}
	key := store.MessageKey{MessageID: m.MessageID, ChatID: m.ChatID}
	if err := s.record(ctx, key, m.AuthorID); err != nil {
		return err
	}
	return s.react(ctx, key, res.Reactions())
}

func (s *Service) handleEditedMessage(ctx context.Context, m bus.EditedMessage) error {
	res := s.classify(m.Text, m.HasText)
	key := store.MessageKey{MessageID: m.MessageID, ChatID: m.ChatID}

	switch res.Kind {
	case detect.NoOpinion:
		return nil
	case detect.EmptyMatch:
		if err := s.erase(ctx, key); err != nil {
			return err
		}
	case detect.Match:
		// Insert-if-absent: an entry that already exists keeps its
		// original timestamp.
		if err := s.record(ctx, key, m.AuthorID); err != nil {
			return err
		}
	}
	return s.react(ctx, key, res.Reactions())
}

func (s *Service) record(ctx context.Context, key store.MessageKey, userID int64) error {
	s.metrics.ObserveLogWrite("record")
	if err := s.events.Record(ctx, key, userID); err != nil {
		return fmt.Errorf("record message %d in chat %d: %w", key.MessageID, key.ChatID, err)
	}
	return nil
}

func (s *Service) erase(ctx context.Context, key store.MessageKey) error {
	s.metrics.ObserveLogWrite("erase")
	if err := s.events.Erase(ctx, key); err != nil {
		return fmt.Errorf("erase message %d in chat %d: %w", key.MessageID, key.ChatID, err)
	}
	return nil
}

func (s *Service) react(ctx context.Context, key store.MessageKey, symbols []string) error {
	if err := s.sink.AttachReaction(ctx, key.ChatID, key.MessageID, symbols); err != nil {
		return fmt.Errorf("attach reaction: %w", err)
	}
	return nil
}

func (s *Service) handleCommand(ctx context.Context, c bus.Command) error {
	cmd, ok := LookupCommand(c.Name)
	if !ok {
		slog.Debug("ignoring unknown command", "command", c.Name, "chat_id", c.ChatID)
		return nil
	}
	switch cmd {
	case CommandHelp:
		return s.send(ctx, c.ChatID, CommandDescriptions())
	case CommandStats:
		if !c.IsGroup {
			return s.send(ctx, c.ChatID, textStatsRefusal)
		}
		return s.groupStats(ctx, c.ChatID)
	}
	return nil
}

func (s *Service) send(ctx context.Context, chatID int64, text string) error {
	if err := s.sink.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

func (s *Service) groupStats(ctx context.Context, chatID int64) error {
	total, err := s.stats.TotalByConversation(ctx, chatID)
	if err != nil {
		return fmt.Errorf("total for chat %d: %w", chatID, err)
	}
	recent, err := s.stats.RecentByConversation(ctx, chatID, s.window)
	if err != nil {
		return fmt.Errorf("recent for chat %d: %w", chatID, err)
	}
	rows, err := s.stats.Leaderboard(ctx, chatID, s.window, s.board)
	if err != nil {
		return fmt.Errorf("leaderboard for chat %d: %w", chatID, err)
	}

	names, err := s.displayNames(ctx, chatID, rows)
	if err != nil {
		return err
	}
	counts := make([]int64, len(rows))
	for i, r := range rows {
		counts[i] = r.Count
	}
	return s.send(ctx, chatID, formatStats(total, recent, names, counts))
}

// displayNames resolves every row concurrently; the result keeps row order.
func (s *Service) displayNames(ctx context.Context, chatID int64, rows []store.LeaderboardRow) ([]string, error) {
	names := make([]string, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	for i, row := range rows {
		if row.UserID == store.UnknownUser {
			names[i] = textUnknownUser
			continue
		}
		g.Go(func() error {
			name, err := s.sink.ResolveDisplayName(gctx, chatID, row.UserID)
			if err != nil {
				return fmt.Errorf("resolve user %d: %w", row.UserID, err)
			}
			if name == "" {
				name = strconv.FormatInt(row.UserID, 10)
			}
			names[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *Service) handleInlineQuery(ctx context.Context, q bus.InlineQuery) error {
	total, err := s.stats.TotalByUser(ctx, q.RequesterID)
	if err != nil {
		return fmt.Errorf("total for user %d: %w", q.RequesterID, err)
	}
	recent, err := s.stats.RecentByUser(ctx, q.RequesterID, s.window)
	if err != nil {
		return fmt.Errorf("recent for user %d: %w", q.RequesterID, err)
	}
	if err := s.sink.AnswerInlineQuery(ctx, q.ID, inlineResults(total, recent)); err != nil {
		return fmt.Errorf("answer inline query: %w", err)
	}
	return nil
}
