package tgplat

import (
	"github.com/gotd/td/tg"
)

// Message is the slice of a Telegram message the routing pipeline cares
// about. Text holds the media caption when HasMedia is set.
type Message struct {
	ID       int
	ChatID   int64
	Text     string
	HasMedia bool
}

// FromTG converts a raw message. Only document and photo media count as
// media here; service messages and webpage previews do not.
func FromTG(chatID int64, m *tg.Message) Message {
	return Message{
		ID:       m.ID,
		ChatID:   chatID,
		Text:     m.Message,
		HasMedia: hasCopyableMedia(m),
	}
}

func hasCopyableMedia(m *tg.Message) bool {
	media, ok := m.GetMedia()
	if !ok || media == nil {
		return false
	}
	switch media.(type) {
	case *tg.MessageMediaDocument, *tg.MessageMediaPhoto:
		return true
	default:
		return false
	}
}
