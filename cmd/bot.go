package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
	"github.com/nextlevelbuilder/agdabot/internal/channels"
	"github.com/nextlevelbuilder/agdabot/internal/channels/telegram"
	"github.com/nextlevelbuilder/agdabot/internal/gateway"
	"github.com/nextlevelbuilder/agdabot/internal/metrics"
	"github.com/nextlevelbuilder/agdabot/internal/reactor"
	"github.com/nextlevelbuilder/agdabot/internal/tracing"
	"github.com/nextlevelbuilder/agdabot/internal/upgrade"
)

const stopTimeout = 30 * time.Second

func runBot() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "path", resolveConfigPath(), "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open database", "driver", cfg.Database.EffectiveDriver(), "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	if err := upgrade.EnsureSchema(ctx, stores.DB, stores.Driver, cfg.Database.AutoMigrateEnabled()); err != nil {
		slog.Error("database schema check failed", "error", err)
		os.Exit(1)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Telemetry, Version)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	m := metrics.NewManager()

	tg, err := telegram.New(cfg.Telegram, m)
	if err != nil {
		slog.Error("failed to create telegram channel", "error", err)
		os.Exit(1)
	}

	svc := reactor.New(reactor.Config{
		Events:          stores.Events,
		Stats:           stores.Stats,
		Sink:            tg,
		Window:          cfg.StatsWindow(),
		LeaderboardSize: cfg.Stats.LeaderboardSize,
		Metrics:         m,
	})

	tg.OnError(func(ev bus.Event, err error) {
		slog.Warn("event dropped", append(eventAttrs(ev), "error", err)...)
	})

	channelMgr := channels.NewManager()
	channelMgr.RegisterChannel(tg)

	// The listener is bound before the webhook is registered so Telegram
	// never delivers to a port we failed to take.
	var server *gateway.Server
	serverDone := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		server = gateway.NewServer(cfg.HTTP.Listen, Version, channelMgr.Status)
		server.Handle("/metrics", m.Handler())
		if cfg.WebhookEnabled() {
			server.Handle(tg.WebhookPath(), tg.WebhookHandler())
		}
		if err := server.Listen(); err != nil {
			slog.Error("failed to bind http listener", "error", err)
			os.Exit(1)
		}
		go func() { serverDone <- server.Start(ctx) }()
	}

	if err := channelMgr.StartAll(ctx, svc); err != nil {
		slog.Error("failed to start channels", "error", err)
		cancel()
		os.Exit(1)
	}

	mode := "polling"
	if cfg.WebhookEnabled() {
		mode = "webhook"
	}
	slog.Info("agdabot started",
		"version", Version,
		"bot", tg.Username(),
		"mode", mode,
		"driver", stores.Driver,
		"window", cfg.StatsWindow(),
		"http", cfg.HTTP.Listen,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("graceful shutdown initiated", "signal", sig)
	case err := <-serverDone:
		slog.Error("http server stopped", "error", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	if err := channelMgr.StopAll(stopCtx); err != nil {
		slog.Warn("channels did not stop cleanly", "error", err)
	}
	cancel()

	if err := shutdownTracing(stopCtx); err != nil {
		slog.Warn("tracing shutdown failed", "error", err)
	}
	slog.Info("agdabot stopped")
}

// eventAttrs identifies the message or query behind a failed event.
func eventAttrs(ev bus.Event) []any {
	attrs := []any{"kind", ev.Kind()}
	switch e := ev.(type) {
	case bus.NewMessage:
		attrs = append(attrs, "chat_id", e.ChatID, "message_id", e.MessageID, "user_id", e.AuthorID)
	case bus.EditedMessage:
		attrs = append(attrs, "chat_id", e.ChatID, "message_id", e.MessageID, "user_id", e.AuthorID)
	case bus.Command:
		attrs = append(attrs, "chat_id", e.ChatID, "message_id", e.MessageID, "user_id", e.UserID, "command", e.Name)
	case bus.InlineQuery:
		attrs = append(attrs, "query_id", e.ID, "user_id", e.RequesterID)
	}
	return attrs
}
