// Package bus defines the inbound events a chat transport delivers to the
// classifier, and the handler contract that consumes them.
package bus

import "context"

// Event kinds.
const (
	KindNewMessage    = "new_message"
	KindEditedMessage = "edited_message"
	KindInlineQuery   = "inline_query"
	KindCommand       = "command"
)

// Event is one inbound transport event. The set of implementations is
// closed: NewMessage, EditedMessage, InlineQuery and Command.
type Event interface {
	Kind() string
	isEvent()
}

// NewMessage is a freshly posted chat message.
// HasText is false for messages without text (stickers, photos, ...).
type NewMessage struct {
	MessageID int    `json:"message_id"`
	ChatID    int64  `json:"chat_id"`
	AuthorID  int64  `json:"author_id"` // 0 when the author is unknown
	Text      string `json:"text,omitempty"`
	HasText   bool   `json:"has_text"`
}

// EditedMessage carries the new content of a previously posted message.
type EditedMessage struct {
	MessageID int    `json:"message_id"`
	ChatID    int64  `json:"chat_id"`
	AuthorID  int64  `json:"author_id"`
	Text      string `json:"text,omitempty"`
	HasText   bool   `json:"has_text"`
}

// InlineQuery is a user typing "@bot ..." in any chat.
type InlineQuery struct {
	ID          string `json:"id"`
	RequesterID int64  `json:"requester_id"`
	Query       string `json:"query,omitempty"`
}

// Command is a recognized bot command. Name is the lowercase command name
// without the leading slash; the consumer maps it to its own command set.
type Command struct {
	Name      string `json:"name"`
	MessageID int    `json:"message_id"`
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	IsGroup   bool   `json:"is_group"` // group or supergroup
}

func (NewMessage) Kind() string    { return KindNewMessage }
func (EditedMessage) Kind() string { return KindEditedMessage }
func (InlineQuery) Kind() string   { return KindInlineQuery }
func (Command) Kind() string       { return KindCommand }

func (NewMessage) isEvent()    {}
func (EditedMessage) isEvent() {}
func (InlineQuery) isEvent()   {}
func (Command) isEvent()       {}

// InlineResult is one selectable answer to an inline query.
type InlineResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Body        string `json:"body"` // text sent to the chat when the result is picked
}

// Handler consumes inbound events. Implementations must be safe for
// concurrent use: transports call Handle from one goroutine per event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }
