package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
	"github.com/nextlevelbuilder/agdabot/internal/reactor"
)

var _ reactor.Sink = (*Channel)(nil)

// call waits for the outbound limiter, runs fn and counts the outcome.
func (c *Channel) call(ctx context.Context, method string, fn func() error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait: %w", method, err)
		}
	}
	err := fn()
	c.metrics.ObserveOutbound(method, err)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// AttachReaction sets the bot's emoji reactions on a message; an empty
// list clears them.
func (c *Channel) AttachReaction(ctx context.Context, chatID int64, messageID int, symbols []string) error {
	return c.call(ctx, "set_message_reaction", func() error {
		return c.bot.SetMessageReaction(ctx, &telego.SetMessageReactionParams{
			ChatID:    tu.ID(chatID),
			MessageID: messageID,
			Reaction:  reactionTypes(symbols),
		})
	})
}

func reactionTypes(symbols []string) []telego.ReactionType {
	out := make([]telego.ReactionType, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, &telego.ReactionTypeEmoji{Type: "emoji", Emoji: s})
	}
	return out
}

func (c *Channel) SendText(ctx context.Context, chatID int64, text string) error {
	return c.call(ctx, "send_message", func() error {
		_, err := c.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
		return err
	})
}

// ResolveDisplayName looks the user up as a member of the chat.
func (c *Channel) ResolveDisplayName(ctx context.Context, chatID, userID int64) (string, error) {
	var name string
	err := c.call(ctx, "get_chat_member", func() error {
		member, err := c.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
			ChatID: tu.ID(chatID),
			UserID: userID,
		})
		if err != nil {
			return err
		}
		name = displayName(member.MemberUser())
		return nil
	})
	return name, err
}

// displayName renders "first last", omitting an empty last name.
func displayName(u telego.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// AnswerInlineQuery replies with article results. Answers are personal
// counts, so Telegram must not share its cache across users.
func (c *Channel) AnswerInlineQuery(ctx context.Context, queryID string, results []bus.InlineResult) error {
	return c.call(ctx, "answer_inline_query", func() error {
		return c.bot.AnswerInlineQuery(ctx, &telego.AnswerInlineQueryParams{
			InlineQueryID: queryID,
			Results:       inlineArticles(results),
			IsPersonal:    true,
		})
	})
}

func inlineArticles(results []bus.InlineResult) []telego.InlineQueryResult {
	out := make([]telego.InlineQueryResult, 0, len(results))
	for _, r := range results {
		out = append(out, &telego.InlineQueryResultArticle{
			Type:                "article",
			ID:                  r.ID,
			Title:               r.Title,
			Description:         r.Description,
			InputMessageContent: &telego.InputTextMessageContent{MessageText: r.Body},
		})
	}
	return out
}
