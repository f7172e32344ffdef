package tgplat

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/celestix/gotgproto/ext"
	"github.com/gotd/td/tg"
	"github.com/krau/TopicDex-Bot/pkg/flood"
)

const searchPageLimit = 100

// client implements Platform over a gotgproto session.
type client struct {
	ectx *ext.Context
}

func NewClient(ectx *ext.Context) Platform {
	return &client{ectx: ectx}
}

func (c *client) inputPeer(chatID int64) (tg.InputPeerClass, error) {
	peer := c.ectx.PeerStorage.GetInputPeerById(chatID)
	if _, empty := peer.(*tg.InputPeerEmpty); empty || peer == nil {
		return nil, fmt.Errorf("peer %d is not known to this session", chatID)
	}
	return peer, nil
}

func (c *client) inputChannel(chatID int64) (*tg.InputChannel, error) {
	peer, err := c.inputPeer(chatID)
	if err != nil {
		return nil, err
	}
	ch, ok := peer.(*tg.InputPeerChannel)
	if !ok {
		return nil, fmt.Errorf("chat %d is not a channel or supergroup", chatID)
	}
	return &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash}, nil
}

func (c *client) searchPage(ctx context.Context, peer tg.InputPeerClass, offsetID, minID, limit int) ([]*tg.Message, error) {
	res, err := flood.RunResult(ctx, func(ctx context.Context) (tg.MessagesMessagesClass, error) {
		return c.ectx.Raw.MessagesSearch(ctx, &tg.MessagesSearchRequest{
			Peer:     peer,
			Q:        "",
			Filter:   &tg.InputMessagesFilterEmpty{},
			OffsetID: offsetID,
			MinID:    minID,
			Limit:    limit,
		})
	})
	if err != nil {
		return nil, err
	}
	return messagesOf(res), nil
}

func messagesOf(res tg.MessagesMessagesClass) []*tg.Message {
	var raw []tg.MessageClass
	switch v := res.(type) {
	case *tg.MessagesMessages:
		raw = v.Messages
	case *tg.MessagesMessagesSlice:
		raw = v.Messages
	case *tg.MessagesChannelMessages:
		raw = v.Messages
	default:
		return nil
	}
	msgs := make([]*tg.Message, 0, len(raw))
	for _, m := range raw {
		if msg, ok := m.(*tg.Message); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

func (c *client) LastMessageID(ctx context.Context, chatID int64) (int, error) {
	peer, err := c.inputPeer(chatID)
	if err != nil {
		return 0, err
	}
	msgs, err := c.searchPage(ctx, peer, 0, 0, 1)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	return msgs[0].ID, nil
}

func (c *client) FetchRange(ctx context.Context, chatID int64, afterID int, limit int) ([]Message, error) {
	peer, err := c.inputPeer(chatID)
	if err != nil {
		return nil, err
	}
	collected := make([]Message, 0, limit)
	// Page from the top of the window, not from the channel's newest
	// message: posts that arrived after the window was computed must not
	// consume the limit budget.
	offsetID := afterID + limit + 1
	for len(collected) < limit {
		page := searchPageLimit
		if rest := limit - len(collected); rest < page {
			page = rest
		}
		msgs, err := c.searchPage(ctx, peer, offsetID, afterID, page)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			collected = append(collected, FromTG(chatID, m))
		}
		offsetID = msgs[len(msgs)-1].ID
		if offsetID <= afterID+1 {
			break
		}
	}
	return collected, nil
}

func (c *client) ListTopics(ctx context.Context, groupID int64) (map[string]int, error) {
	peer, err := c.inputPeer(groupID)
	if err != nil {
		return nil, err
	}
	topics := make(map[string]int)
	offsetTopic := 0
	for {
		res, err := flood.RunResult(ctx, func(ctx context.Context) (*tg.MessagesForumTopics, error) {
			return c.ectx.Raw.MessagesGetForumTopics(ctx, &tg.MessagesGetForumTopicsRequest{
				Peer:        peer,
				OffsetTopic: offsetTopic,
				Limit:       searchPageLimit,
			})
		})
		if err != nil {
			return nil, err
		}
		got := 0
		for _, t := range res.Topics {
			topic, ok := t.(*tg.ForumTopic)
			if !ok {
				continue
			}
			topics[topic.Title] = topic.ID
			offsetTopic = topic.ID
			got++
		}
		if got == 0 || len(res.Topics) < searchPageLimit {
			break
		}
	}
	return topics, nil
}

func (c *client) CreateTopic(ctx context.Context, groupID int64, title string) (int, error) {
	peer, err := c.inputPeer(groupID)
	if err != nil {
		return 0, err
	}
	updates, err := flood.RunResult(ctx, func(ctx context.Context) (tg.UpdatesClass, error) {
		return c.ectx.Raw.MessagesCreateForumTopic(ctx, &tg.MessagesCreateForumTopicRequest{
			Peer:     peer,
			Title:    title,
			RandomID: rand.Int63(),
		})
	})
	if err != nil {
		return 0, err
	}
	// The topic id is the id of the service message announcing it.
	id := newMessageIDOf(updates)
	if id == 0 {
		return 0, fmt.Errorf("no topic id in createForumTopic response for %q", title)
	}
	return id, nil
}

func (c *client) CopyMessage(ctx context.Context, msg Message, groupID int64, topicID int) (int, error) {
	from, err := c.inputPeer(msg.ChatID)
	if err != nil {
		return 0, err
	}
	to, err := c.inputPeer(groupID)
	if err != nil {
		return 0, err
	}
	req := &tg.MessagesForwardMessagesRequest{
		FromPeer: from,
		ToPeer:   to,
		ID:       []int{msg.ID},
		RandomID: []int64{rand.Int63()},
	}
	// DropAuthor turns the forward into a copy without the origin header.
	req.SetDropAuthor(true)
	req.SetTopMsgID(topicID)
	updates, err := flood.RunResult(ctx, func(ctx context.Context) (tg.UpdatesClass, error) {
		return c.ectx.Raw.MessagesForwardMessages(ctx, req)
	})
	if err != nil {
		return 0, err
	}
	id := newMessageIDOf(updates)
	if id == 0 {
		return 0, fmt.Errorf("no message id in forward response for %d -> %d", msg.ID, groupID)
	}
	return id, nil
}

func newMessageIDOf(updates tg.UpdatesClass) int {
	u, ok := updates.(*tg.Updates)
	if !ok {
		return 0
	}
	for _, upd := range u.Updates {
		switch v := upd.(type) {
		case *tg.UpdateNewChannelMessage:
			if m, ok := v.Message.(*tg.Message); ok {
				return m.ID
			}
			if m, ok := v.Message.(*tg.MessageService); ok {
				return m.ID
			}
		case *tg.UpdateNewMessage:
			if m, ok := v.Message.(*tg.Message); ok {
				return m.ID
			}
		case *tg.UpdateMessageID:
			return v.ID
		}
	}
	return 0
}

func (c *client) channelOf(ctx context.Context, chatID int64) (*tg.Channel, error) {
	ch, err := c.inputChannel(chatID)
	if err != nil {
		return nil, err
	}
	chats, err := flood.RunResult(ctx, func(ctx context.Context) (tg.MessagesChatsClass, error) {
		return c.ectx.Raw.ChannelsGetChannels(ctx, []tg.InputChannelClass{ch})
	})
	if err != nil {
		return nil, err
	}
	for _, chat := range chats.GetChats() {
		channel, ok := chat.(*tg.Channel)
		if ok && channel.ID == ch.ChannelID {
			return channel, nil
		}
	}
	return nil, fmt.Errorf("channel %d not found", chatID)
}

func (c *client) ChatProtected(ctx context.Context, chatID int64) (bool, error) {
	channel, err := c.channelOf(ctx, chatID)
	if err != nil {
		return false, err
	}
	return channel.Noforwards, nil
}

func (c *client) ChatTitle(ctx context.Context, chatID int64) (string, error) {
	channel, err := c.channelOf(ctx, chatID)
	if err != nil {
		return "", err
	}
	return channel.Title, nil
}
