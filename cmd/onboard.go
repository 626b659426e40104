package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agdabot/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactively write config.json",
		Long:  "Walks through the non-secret settings and writes them to the config file.\nSecrets (bot token, Postgres DSN) are read from the environment only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(resolveConfigPath())
		},
	}
}

// onboardAnswers holds the wizard fields as strings so huh inputs can bind
// to them directly.
type onboardAnswers struct {
	Driver          string
	SQLitePath      string
	Window          string
	LeaderboardSize string
	WebhookURL      string
	Listen          string
}

func runOnboard(cfgPath string) error {
	// Seed from the file only: env values must not be persisted.
	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); err == nil {
		overwrite := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("%s exists. Overwrite?", cfgPath)).
			Value(&overwrite)
		if err := confirm.Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("Onboarding cancelled.")
			return nil
		}
	}

	a := answersFromConfig(cfg)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database driver").
				Description("Postgres needs AGDABOT_POSTGRES_DSN in the environment.").
				Options(
					huh.NewOption("SQLite (single file)", config.DriverSQLite),
					huh.NewOption("Postgres", config.DriverPostgres),
				).
				Value(&a.Driver),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SQLite file").
				Value(&a.SQLitePath).
				Validate(notEmpty("path")),
		).WithHideFunc(func() bool { return a.Driver != config.DriverSQLite }),
		huh.NewGroup(
			huh.NewInput().
				Title("Stats window").
				Description("Go duration, e.g. 24h or 168h").
				Value(&a.Window).
				Validate(validateWindow),
			huh.NewInput().
				Title("Leaderboard size").
				Value(&a.LeaderboardSize).
				Validate(validateBoardSize),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Webhook URL").
				Description("Leave empty for long polling.").
				Value(&a.WebhookURL).
				Validate(validateWebhookURL),
			huh.NewInput().
				Title("HTTP listen address").
				Description("Serves /healthz, /metrics and the webhook. Empty disables it.").
				Value(&a.Listen),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("Onboarding cancelled.")
			return nil
		}
		return err
	}

	if err := a.apply(cfg); err != nil {
		return err
	}
	effective := cfg.Effective()
	if err := effective.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Config written to %s\n", cfgPath)
	if effective.Telegram.Token == "" {
		fmt.Println("Set AGDABOT_TELEGRAM_TOKEN before starting the bot.")
	}
	fmt.Println("Next: agdabot doctor")
	return nil
}

func answersFromConfig(cfg *config.Config) *onboardAnswers {
	return &onboardAnswers{
		Driver:          cfg.Database.EffectiveDriver(),
		SQLitePath:      cfg.Database.SQLitePath,
		Window:          cfg.Stats.Window,
		LeaderboardSize: strconv.Itoa(cfg.Stats.LeaderboardSize),
		WebhookURL:      cfg.Telegram.Webhook.URL,
		Listen:          cfg.HTTP.Listen,
	}
}

func (a *onboardAnswers) apply(cfg *config.Config) error {
	size, err := strconv.Atoi(a.LeaderboardSize)
	if err != nil {
		return fmt.Errorf("leaderboard size: %w", err)
	}
	cfg.Database.Driver = a.Driver
	cfg.Database.SQLitePath = a.SQLitePath
	cfg.Stats.Window = a.Window
	cfg.Stats.LeaderboardSize = size
	cfg.Telegram.Webhook.URL = a.WebhookURL
	cfg.HTTP.Listen = a.Listen
	if a.WebhookURL != "" && a.Listen == "" {
		cfg.HTTP.Listen = "0.0.0.0:8080"
	}
	return nil
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateWindow(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fmt.Errorf("want a positive duration like 24h")
	}
	return nil
}

func validateBoardSize(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("want a non-negative number")
	}
	return nil
}

func validateWebhookURL(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("want an https:// URL")
	}
	return nil
}
