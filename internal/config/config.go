package config

import (
	"fmt"
	"time"
)

// Database drivers accepted by database.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the root configuration for the bot.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Database  DatabaseConfig  `json:"database"`
	Stats     StatsConfig     `json:"stats"`
	HTTP      HTTPConfig      `json:"http,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// TelegramConfig configures the Bot API connection.
// Token is NEVER read from config.json (secret), only from env.
type TelegramConfig struct {
	Token           string        `json:"-"`                            // from env AGDABOT_TELEGRAM_TOKEN / TELOXIDE_TOKEN only
	APIURL          string        `json:"api_url,omitempty"`            // custom Bot API server (default api.telegram.org)
	Proxy           string        `json:"proxy,omitempty"`              // HTTP proxy URL for outbound API calls
	Webhook         WebhookConfig `json:"webhook,omitempty"`            // long polling is used when webhook.url is empty
	RateLimitPerSec float64       `json:"rate_limit_per_sec,omitempty"` // outbound API calls per second (default 25, 0 = default)
	MaxConcurrent   int           `json:"max_concurrent,omitempty"`     // in-flight events (default 64)
}

type WebhookConfig struct {
	URL    string `json:"url,omitempty"`  // public URL registered with Telegram
	Path   string `json:"path,omitempty"` // local path served on http.listen (default: path of url)
	Secret string `json:"-"`              // from env AGDABOT_WEBHOOK_SECRET only; generated when empty
}

// DatabaseConfig selects the event log backend.
// PostgresDSN and Password are NEVER read from config.json, only from env.
type DatabaseConfig struct {
	Driver      string `json:"driver,omitempty"`       // "postgres" or "sqlite"; empty picks postgres when a DSN is set
	PostgresDSN string `json:"-"`                      // from env AGDABOT_POSTGRES_DSN / DATABASE_URL only
	Password    string `json:"-"`                      // from env AGDABOT_DB_PASSWORD / DATABASE_PASSWORD only
	SQLitePath  string `json:"sqlite_path,omitempty"`  // default ~/.agdabot/agdabot.db
	AutoMigrate *bool  `json:"auto_migrate,omitempty"` // apply migrations on start (default true)
}

type StatsConfig struct {
	Window          string `json:"window,omitempty"`           // rolling window, Go duration (default "24h")
	LeaderboardSize int    `json:"leaderboard_size,omitempty"` // rows in /stats (default 5)
}

// HTTPConfig configures the listener for /healthz, /metrics and the webhook.
type HTTPConfig struct {
	Listen string `json:"listen,omitempty"` // e.g. "0.0.0.0:8080"; empty disables the listener
}

// TelemetryConfig configures OpenTelemetry export for per-event spans.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`      // enable OTLP export (default false)
	Endpoint    string            `json:"endpoint,omitempty"`     // OTLP endpoint (e.g. "localhost:4317", "https://otel.example.com:4318")
	Protocol    string            `json:"protocol,omitempty"`     // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`     // plaintext connection (set true for local dev)
	ServiceName string            `json:"service_name,omitempty"` // OTEL service name (default "agdabot")
	Headers     map[string]string `json:"headers,omitempty"`      // extra headers (e.g. auth tokens for cloud backends)
}

// EffectiveDriver resolves an empty driver from the available credentials.
func (d DatabaseConfig) EffectiveDriver() string {
	if d.Driver != "" {
		return d.Driver
	}
	if d.PostgresDSN != "" {
		return DriverPostgres
	}
	return DriverSQLite
}

// AutoMigrateEnabled reports whether migrations run on bot start.
func (d DatabaseConfig) AutoMigrateEnabled() bool {
	return d.AutoMigrate == nil || *d.AutoMigrate
}

// WebhookEnabled reports whether updates arrive via webhook instead of polling.
func (c *Config) WebhookEnabled() bool {
	return c.Telegram.Webhook.URL != ""
}

// StatsWindow returns the parsed rolling window.
func (c *Config) StatsWindow() time.Duration {
	d, err := time.ParseDuration(c.Stats.Window)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Validate checks the fields every command depends on.
// The Telegram token is checked by the channel itself.
func (c *Config) Validate() error {

	switch c.Database.EffectiveDriver() {
	case DriverPostgres:
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.driver is postgres but AGDABOT_POSTGRES_DSN is not set")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q (want %q or %q)", c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if d, err := time.ParseDuration(c.Stats.Window); err != nil || d <= 0 {
		return fmt.Errorf("invalid stats.window %q: want a positive Go duration", c.Stats.Window)
	}
	if c.Stats.LeaderboardSize < 0 {
		return fmt.Errorf("stats.leaderboard_size must not be negative")
	}
	if c.Telegram.RateLimitPerSec < 0 {
		return fmt.Errorf("telegram.rate_limit_per_sec must not be negative")
	}
	if c.Telegram.Webhook.URL != "" && c.HTTP.Listen == "" {
		return fmt.Errorf("telegram.webhook.url requires http.listen")
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("unknown telemetry.protocol %q", c.Telemetry.Protocol)
	}
	return nil
}
