// Package tgplat is the boundary to the remote Telegram platform. The
// interfaces carry exactly what the indexing engine and the realtime
// dispatcher need; the production implementation wraps a gotgproto client
// and routes every RPC through the flood adapter.
package tgplat

import (
	"context"

	"github.com/gotd/td/tg"
)

// Platform is the message side of the remote API, bound to one
// authenticated session.
type Platform interface {
	// LastMessageID returns the id of the newest message in the channel.
	LastMessageID(ctx context.Context, chatID int64) (int, error)
	// FetchRange returns the messages with id in (afterID, afterID+limit],
	// newest first. Ids deleted from the channel simply do not appear.
	FetchRange(ctx context.Context, chatID int64, afterID int, limit int) ([]Message, error)
	// ListTopics returns the forum topics of a group as title -> topic id.
	ListTopics(ctx context.Context, groupID int64) (map[string]int, error)
	// CreateTopic creates a forum topic and returns its id.
	CreateTopic(ctx context.Context, groupID int64, title string) (int, error)
	// CopyMessage copies a message into a topic thread of the destination
	// group and returns the id of the copy.
	CopyMessage(ctx context.Context, msg Message, groupID int64, topicID int) (int, error)
	// ChatProtected reports whether the chat forbids forwarding its content.
	ChatProtected(ctx context.Context, chatID int64) (bool, error)
	// ChatTitle returns the display title of a channel or supergroup.
	ChatTitle(ctx context.Context, chatID int64) (string, error)
}

// Notifier delivers user-facing status messages through the bot account.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup tg.ReplyMarkupClass) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, markup tg.ReplyMarkupClass) error
}
