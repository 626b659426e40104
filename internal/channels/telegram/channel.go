package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
	"github.com/nextlevelbuilder/agdabot/internal/channels"
	"github.com/nextlevelbuilder/agdabot/internal/config"
	"github.com/nextlevelbuilder/agdabot/internal/metrics"
)

const (
	defaultWebhookPath = "/telegram/webhook"
	pollTimeoutSec     = 30
)

// allowedUpdates are the update types the bot subscribes to.
var allowedUpdates = []string{"message", "edited_message", "inline_query"}

// Channel connects to Telegram via the Bot API, using long polling or a
// webhook, and implements the outbound sink for the reactor.
type Channel struct {
	*channels.BaseChannel
	bot     *telego.Bot
	config  config.TelegramConfig
	limiter *rate.Limiter
	metrics *metrics.Manager

	username       string // bot username, resolved on Start
	webhookPath    string
	webhookSecret  string
	webhookLimiter *channels.WebhookRateLimiter

	pollCancel context.CancelFunc // cancels the long polling context
	pollDone   chan struct{}      // closed when polling goroutine exits
}

// New creates a new Telegram channel from config. m may be nil.
func New(cfg config.TelegramConfig, m *metrics.Manager) (*Channel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is not set (AGDABOT_TELEGRAM_TOKEN or TELOXIDE_TOKEN)")
	}

	var opts []telego.BotOption
	if cfg.APIURL != "" {
		opts = append(opts, telego.WithAPIServer(strings.TrimSuffix(cfg.APIURL, "/")))
	}
	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	secret := cfg.Webhook.Secret
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	return &Channel{
		BaseChannel:    channels.NewBaseChannel("telegram", cfg.MaxConcurrent),
		bot:            bot,
		config:         cfg,
		limiter:        newLimiter(cfg.RateLimitPerSec),
		metrics:        m,
		webhookPath:    resolveWebhookPath(cfg.Webhook),
		webhookSecret:  secret,
		webhookLimiter: channels.NewWebhookRateLimiter(0, 0),
	}, nil
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// resolveWebhookPath picks the local path: explicit path, then the path of
// the public URL, then a fixed default.
func resolveWebhookPath(wh config.WebhookConfig) string {
	p := wh.Path
	if p == "" && wh.URL != "" {
		if u, err := url.Parse(wh.URL); err == nil {
			p = u.Path
		}
	}
	if p == "" || p == "/" {
		return defaultWebhookPath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Username returns the bot username once Start has resolved it.
func (c *Channel) Username() string { return c.username }

// Probe checks the token against the Bot API and returns the bot username.
func (c *Channel) Probe(ctx context.Context) (string, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("get bot identity: %w", err)
	}
	return me.Username, nil
}

// Start resolves the bot identity, then either registers the webhook or
// begins long polling. Updates are dispatched to h.
func (c *Channel) Start(ctx context.Context, h bus.Handler) error {
	c.SetHandler(h)

	username, err := c.Probe(ctx)
	if err != nil {
		return err
	}
	c.username = username

	if c.config.Webhook.URL != "" {
		if err := c.startWebhook(ctx); err != nil {
			return err
		}
	} else if err := c.startPolling(ctx); err != nil {
		return err
	}

	go c.syncMenuWithRetry(ctx)
	return nil
}

func (c *Channel) startWebhook(ctx context.Context) error {
	slog.Info("starting telegram bot (webhook mode)", "url", c.config.Webhook.URL, "path", c.webhookPath)
	err := c.bot.SetWebhook(ctx, &telego.SetWebhookParams{
		URL:            c.config.Webhook.URL,
		SecretToken:    c.webhookSecret,
		AllowedUpdates: allowedUpdates,
	})
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.username)
	return nil
}

func (c *Channel) startPolling(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	// A webhook left over from an earlier deployment blocks getUpdates.
	if err := c.bot.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		slog.Debug("deleteWebhook failed", "error", err)
	}

	// Stop() cancels this context to cleanly shut down long polling.
	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        pollTimeoutSec,
		AllowedUpdates: allowedUpdates,
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.username)

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				c.handleUpdate(pollCtx, update)
			}
		}
	}()
	return nil
}

// handleUpdate converts one update and dispatches it. It reports false only
// when the channel is closed and the update must be redelivered.
func (c *Channel) handleUpdate(ctx context.Context, update telego.Update) bool {
	ev, ok := toEvent(update, c.username)
	if !ok {
		slog.Debug("telegram update skipped", "update_id", update.UpdateID)
		return true
	}
	return c.Dispatch(ctx, ev)
}

// Stop ends polling, then waits for in-flight events until ctx is done.
// In webhook mode the registration is left in place so Telegram keeps
// queueing updates across restarts.
func (c *Channel) Stop(ctx context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}

	// Wait for the polling goroutine to fully exit so that
	// Telegram releases the getUpdates lock before a new instance starts.
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}

	// Webhook requests arriving from here on get 503 and are retried by
	// Telegram after the restart.
	c.Close()
	if !c.Wait(ctx) {
		slog.Warn("telegram bot stopped with events still in flight")
		return ctx.Err()
	}
	slog.Info("telegram bot stopped")
	return nil
}
