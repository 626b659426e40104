package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			RateLimitPerSec: 25,
			MaxConcurrent:   64,
		},
		Database: DatabaseConfig{
			SQLitePath: "~/.agdabot/agdabot.db",
		},
		Stats: StatsConfig{
			Window:          "24h",
			LeaderboardSize: 5,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return cfg.Effective(), nil
}

// LoadFile reads config from a JSON5 file over Default without env
// overlays or path expansion. It is what Save should write back.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg, nil
}

// Effective returns a copy of c with env overlays and defaults applied.
// c itself is left untouched.
func (c Config) Effective() *Config {
	if c.Telemetry.Headers != nil {
		headers := make(map[string]string, len(c.Telemetry.Headers))
		for k, v := range c.Telemetry.Headers {
			headers[k] = v
		}
		c.Telemetry.Headers = headers
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	return &c
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values. Where several keys are listed
// the first non-empty one wins.
func (c *Config) applyEnvOverrides() {
	envStr := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				*dst = v
				return
			}
		}
	}
	envBool := func(dst *bool, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v == "true" || v == "1"
		}
	}

	// Telegram
	envStr(&c.Telegram.Token, "AGDABOT_TELEGRAM_TOKEN", "TELOXIDE_TOKEN")
	envStr(&c.Telegram.APIURL, "AGDABOT_TELEGRAM_API_URL", "BOT_SERVER")
	envStr(&c.Telegram.Proxy, "AGDABOT_TELEGRAM_PROXY")
	envStr(&c.Telegram.Webhook.URL, "AGDABOT_WEBHOOK_URL", "APP_WEBHOOK_URL")
	envStr(&c.Telegram.Webhook.Path, "AGDABOT_WEBHOOK_PATH", "APP_WEBHOOK_PATH")
	envStr(&c.Telegram.Webhook.Secret, "AGDABOT_WEBHOOK_SECRET")
	if v := os.Getenv("AGDABOT_TELEGRAM_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil && rps >= 0 {
			c.Telegram.RateLimitPerSec = rps
		}
	}
	if v := os.Getenv("AGDABOT_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Telegram.MaxConcurrent = n
		}
	}

	// HTTP listener
	envStr(&c.HTTP.Listen, "AGDABOT_HTTP_LISTEN", "APP_BIND_ADDR")

	// Database
	envStr(&c.Database.Driver, "AGDABOT_DB_DRIVER")
	envStr(&c.Database.PostgresDSN, "AGDABOT_POSTGRES_DSN", "DATABASE_URL")
	envStr(&c.Database.Password, "AGDABOT_DB_PASSWORD", "DATABASE_PASSWORD")
	envStr(&c.Database.SQLitePath, "AGDABOT_SQLITE_PATH")
	if v := os.Getenv("AGDABOT_DB_AUTO_MIGRATE"); v != "" {
		on := v == "true" || v == "1"
		c.Database.AutoMigrate = &on
	}

	// Stats
	envStr(&c.Stats.Window, "AGDABOT_STATS_WINDOW")
	if v := os.Getenv("AGDABOT_LEADERBOARD_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Stats.LeaderboardSize = n
		}
	}

	// Telemetry
	envStr(&c.Telemetry.Endpoint, "AGDABOT_TELEMETRY_ENDPOINT")
	envStr(&c.Telemetry.Protocol, "AGDABOT_TELEMETRY_PROTOCOL")
	envStr(&c.Telemetry.ServiceName, "AGDABOT_TELEMETRY_SERVICE_NAME")
	envBool(&c.Telemetry.Enabled, "AGDABOT_TELEMETRY_ENABLED")
	envBool(&c.Telemetry.Insecure, "AGDABOT_TELEMETRY_INSECURE")
}

// applyDefaults fills zero values a config file may have cleared.
func (c *Config) applyDefaults() {
	if c.Telegram.RateLimitPerSec == 0 {
		c.Telegram.RateLimitPerSec = 25
	}
	if c.Telegram.MaxConcurrent <= 0 {
		c.Telegram.MaxConcurrent = 64
	}
	if c.Stats.Window == "" {
		c.Stats.Window = "24h"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "agdabot"
	}
	c.Database.SQLitePath = ExpandHome(c.Database.SQLitePath)
}

// Save writes the config to a JSON file. Secret fields are tagged json:"-"
// and never reach disk.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
