package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/agdabot/internal/reactor"
)

const menuSyncAttempts = 3

// SyncMenuCommands registers bot commands with Telegram via setMyCommands.
func (c *Channel) SyncMenuCommands(ctx context.Context, commands []telego.BotCommand) error {
	if err := c.bot.DeleteMyCommands(ctx, nil); err != nil {
		slog.Debug("deleteMyCommands failed (may not exist)", "error", err)
	}

	if len(commands) == 0 {
		return nil
	}

	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: commands,
	})
}

// MenuCommands returns the bot menu, one entry per recognized command.
func MenuCommands() []telego.BotCommand {
	cmds := reactor.Commands()
	out := make([]telego.BotCommand, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, telego.BotCommand{Command: cmd.Name(), Description: cmd.Description()})
	}
	return out
}

func (c *Channel) syncMenuWithRetry(ctx context.Context) {
	commands := MenuCommands()
	for attempt := 1; attempt <= menuSyncAttempts; attempt++ {
		err := c.SyncMenuCommands(ctx, commands)
		if err == nil {
			slog.Info("telegram menu commands synced")
			return
		}
		slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
		if attempt < menuSyncAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt*5) * time.Second):
			}
		}
	}
}
