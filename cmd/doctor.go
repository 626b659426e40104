package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agdabot/internal/channels/telegram"
	"github.com/nextlevelbuilder/agdabot/internal/config"
	"github.com/nextlevelbuilder/agdabot/internal/upgrade"
)

const doctorTimeout = 10 * time.Second

func doctorCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, database and bot health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the Telegram API check")
	return cmd
}

func runDoctor(offline bool) {
	fmt.Println("agdabot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	// Config
	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Config invalid: %s\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
	defer cancel()

	checkDatabase(ctx, cfg)
	checkTelegram(ctx, cfg, offline)

	fmt.Println()
	fmt.Println("  Stats:")
	fmt.Printf("    %-12s %s\n", "Window:", cfg.StatsWindow())
	fmt.Printf("    %-12s %d\n", "Board size:", cfg.Stats.LeaderboardSize)

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkDatabase(ctx context.Context, cfg *config.Config) {
	fmt.Println()
	fmt.Println("  Database:")
	fmt.Printf("    %-12s %s\n", "Driver:", cfg.Database.EffectiveDriver())
	if cfg.Database.EffectiveDriver() == config.DriverSQLite {
		fmt.Printf("    %-12s %s\n", "Path:", cfg.Database.SQLitePath)
	}

	stores, err := openStores(cfg)
	if err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
		return
	}
	defer stores.Close()

	if err := stores.DB.PingContext(ctx); err != nil {
		fmt.Printf("    %-12s CONNECT FAILED (%s)\n", "Status:", err)
		return
	}
	fmt.Printf("    %-12s connected\n", "Status:")

	s, err := upgrade.CheckSchema(ctx, stores.DB)
	switch {
	case err != nil:
		fmt.Printf("    %-12s CHECK FAILED (%s)\n", "Schema:", err)
	case s.Dirty:
		fmt.Printf("    %-12s v%d (DIRTY, run: agdabot migrate force %d)\n", "Schema:", s.CurrentVersion, s.ForceTarget())
	case s.Compatible:
		fmt.Printf("    %-12s v%d (up to date)\n", "Schema:", s.CurrentVersion)
	case s.CurrentVersion > s.RequiredVersion:
		fmt.Printf("    %-12s v%d (binary too old, requires v%d)\n", "Schema:", s.CurrentVersion, s.RequiredVersion)
	default:
		fmt.Printf("    %-12s v%d (migration needed, run: agdabot migrate up)\n", "Schema:", s.CurrentVersion)
	}
	fmt.Printf("    %-12s %v\n", "Automigrate:", cfg.Database.AutoMigrateEnabled())
}

func checkTelegram(ctx context.Context, cfg *config.Config, offline bool) {
	fmt.Println()
	fmt.Println("  Telegram:")
	fmt.Printf("    %-12s %s\n", "Token:", maskSecret(cfg.Telegram.Token))
	if cfg.Telegram.APIURL != "" {
		fmt.Printf("    %-12s %s\n", "API server:", cfg.Telegram.APIURL)
	}
	if cfg.WebhookEnabled() {
		fmt.Printf("    %-12s webhook %s (listen %s)\n", "Mode:", cfg.Telegram.Webhook.URL, cfg.HTTP.Listen)
	} else {
		fmt.Printf("    %-12s long polling\n", "Mode:")
	}

	if cfg.Telegram.Token == "" || offline {
		return
	}
	tg, err := telegram.New(cfg.Telegram, nil)
	if err != nil {
		fmt.Printf("    %-12s FAILED (%s)\n", "Bot:", err)
		return
	}
	username, err := tg.Probe(ctx)
	if err != nil {
		fmt.Printf("    %-12s FAILED (%s)\n", "Bot:", err)
		return
	}
	fmt.Printf("    %-12s @%s\n", "Bot:", username)
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "(not configured)"
	case len(s) <= 8:
		return strings.Repeat("*", len(s))
	default:
		return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
	}
}
