package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/agdabot/internal/store"
)

const unknownUserLabel = "未知用户"

func statsCmd() *cobra.Command {
	var (
		chatID    int64
		userID    int64
		messageID int
		window    time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print event log statistics for a chat or user",
		Long: "Reads the event log directly, without contacting Telegram.\n" +
			"Use --chat for conversation totals and the leaderboard, --user for one user,\n" +
			"or --chat with --message to look up a single logged message.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("chat") && !cmd.Flags().Changed("user") {
				return fmt.Errorf("one of --chat or --user is required")
			}
			if cmd.Flags().Changed("message") && !cmd.Flags().Changed("chat") {
				return fmt.Errorf("--message requires --chat")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if window <= 0 {
				window = cfg.StatsWindow()
			}
			if limit <= 0 {
				limit = cfg.Stats.LeaderboardSize
			}

			stores, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer stores.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			switch {
			case cmd.Flags().Changed("message"):
				return printLookup(ctx, out, stores.Events, store.MessageKey{MessageID: messageID, ChatID: chatID})
			case cmd.Flags().Changed("chat"):
				return printChatStats(ctx, out, stores.Stats, chatID, window, limit)
			default:
				return printUserStats(ctx, out, stores.Stats, userID, window)
			}
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "chat ID")
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	cmd.Flags().IntVar(&messageID, "message", 0, "message ID (with --chat)")
	cmd.Flags().DurationVar(&window, "window", 0, "recent window (default: stats.window)")
	cmd.Flags().IntVar(&limit, "limit", 0, "leaderboard rows (default: stats.leaderboard_size)")
	return cmd
}

func printChatStats(ctx context.Context, w io.Writer, stats store.StatsStore, chatID int64, window time.Duration, limit int) error {
	total, err := stats.TotalByConversation(ctx, chatID)
	if err != nil {
		return err
	}
	recent, err := stats.RecentByConversation(ctx, chatID, window)
	if err != nil {
		return err
	}
	rows, err := stats.Leaderboard(ctx, chatID, window, limit)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "chat %d: %d total, %d in the last %s\n\n", chatID, total, recent, window)
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no entries in window)")
		return nil
	}

	table := make([][]string, 0, len(rows))
	for i, r := range rows {
		table = append(table, []string{strconv.Itoa(i + 1), userLabel(r.UserID), strconv.FormatInt(r.Count, 10)})
	}
	renderTable(w, []string{"#", "用户", "次数"}, table)
	return nil
}

func printUserStats(ctx context.Context, w io.Writer, stats store.StatsStore, userID int64, window time.Duration) error {
	total, err := stats.TotalByUser(ctx, userID)
	if err != nil {
		return err
	}
	recent, err := stats.RecentByUser(ctx, userID, window)
	if err != nil {
		return err
	}
	renderTable(w, []string{"用户", "总计", "最近 " + window.String()}, [][]string{
		{userLabel(userID), strconv.FormatInt(total, 10), strconv.FormatInt(recent, 10)},
	})
	return nil
}

func printLookup(ctx context.Context, w io.Writer, events store.EventLog, key store.MessageKey) error {
	e, err := events.Lookup(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(w, "message %d in chat %d is not logged\n", key.MessageID, key.ChatID)
		return nil
	}
	if err != nil {
		return err
	}
	renderTable(w, []string{"消息", "用户", "时间"}, [][]string{
		{strconv.Itoa(e.MessageID), userLabel(e.UserID), e.Timestamp.Local().Format(time.DateTime)},
	})
	return nil
}

func userLabel(userID int64) string {
	if userID == store.UnknownUser {
		return unknownUserLabel
	}
	return strconv.FormatInt(userID, 10)
}

// renderTable writes rows in columns padded by display width, so CJK cells
// line up in a terminal.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if i == len(cells)-1 {
				parts[i] = cell
				continue
			}
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	fmt.Fprintln(w, strings.Join(sep, "  "))
	for _, row := range rows {
		writeRow(row)
	}
}

