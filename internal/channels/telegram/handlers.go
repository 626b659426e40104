package telegram

import (
	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
	"github.com/nextlevelbuilder/agdabot/internal/reactor"
	"github.com/nextlevelbuilder/agdabot/internal/store"
)

// toEvent maps a Telegram update to a bus event. Updates the bot does not
// consume yield false.
func toEvent(update telego.Update, botUsername string) (bus.Event, bool) {
	switch {
	case update.Message != nil:
		m := update.Message
		if cmd, ok := reactor.ParseCommand(m.Text, botUsername); ok {
			return bus.Command{
				Name:      cmd.Name(),
				MessageID: m.MessageID,
				ChatID:    m.Chat.ID,
				UserID:    authorID(m),
				IsGroup:   isGroupChat(m.Chat),
			}, true
		}
		return bus.NewMessage{
			MessageID: m.MessageID,
			ChatID:    m.Chat.ID,
			AuthorID:  authorID(m),
			Text:      m.Text,
			HasText:   m.Text != "",
		}, true

	case update.EditedMessage != nil:
		m := update.EditedMessage
		return bus.EditedMessage{
			MessageID: m.MessageID,
			ChatID:    m.Chat.ID,
			AuthorID:  authorID(m),
			Text:      m.Text,
			HasText:   m.Text != "",
		}, true

	case update.InlineQuery != nil:
		q := update.InlineQuery
		return bus.InlineQuery{
			ID:          q.ID,
			RequesterID: q.From.ID,
			Query:       q.Query,
		}, true
	}
	return nil, false
}

// authorID returns the sender, or store.UnknownUser for channel posts.
func authorID(m *telego.Message) int64 {
	if m.From == nil {
		return store.UnknownUser
	}
	return m.From.ID
}

func isGroupChat(chat telego.Chat) bool {
	return chat.Type == "group" || chat.Type == "supergroup"
}
