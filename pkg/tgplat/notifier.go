package tgplat

import (
	"context"

	"github.com/celestix/gotgproto/ext"
	"github.com/gotd/td/tg"
	"github.com/krau/TopicDex-Bot/pkg/flood"
)

// notifier delivers status messages through the bot session.
type notifier struct {
	ectx *ext.Context
}

func NewNotifier(ectx *ext.Context) Notifier {
	return &notifier{ectx: ectx}
}

func (n *notifier) SendMessage(ctx context.Context, chatID int64, text string, markup tg.ReplyMarkupClass) (int, error) {
	req := &tg.MessagesSendMessageRequest{Message: text}
	if markup != nil {
		req.SetReplyMarkup(markup)
	}
	return flood.RunResult(ctx, func(ctx context.Context) (int, error) {
		msg, err := n.ectx.SendMessage(chatID, req)
		if err != nil {
			return 0, err
		}
		return msg.ID, nil
	})
}

func (n *notifier) EditMessage(ctx context.Context, chatID int64, messageID int, text string, markup tg.ReplyMarkupClass) error {
	req := &tg.MessagesEditMessageRequest{ID: messageID}
	req.SetMessage(text)
	if markup != nil {
		req.SetReplyMarkup(markup)
	}
	return flood.Run(ctx, func(ctx context.Context) error {
		_, err := n.ectx.EditMessage(chatID, req)
		return err
	})
}
