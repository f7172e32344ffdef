package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/tgplat"
	"github.com/stretchr/testify/require"

	"github.com/gotd/td/tg"
)

type fakeStore struct {
	forwards map[int64][]database.Forward
	files    []*database.File
}

func (s *fakeStore) ActiveForwardsBySource(ctx context.Context, sourceChannelID int64) ([]database.Forward, error) {
	return s.forwards[sourceChannelID], nil
}

func (s *fakeStore) CreateFile(ctx context.Context, file *database.File) error {
	s.files = append(s.files, file)
	return nil
}

type copyCall struct {
	msgID   int
	groupID int64
	topicID int
}

type fakePlatform struct {
	topics    map[string]int
	nextTopic int
	copies    []copyCall
	copyErr   error
}

func (p *fakePlatform) LastMessageID(ctx context.Context, chatID int64) (int, error) {
	return 0, errors.New("not used")
}

func (p *fakePlatform) FetchRange(ctx context.Context, chatID int64, afterID, limit int) ([]tgplat.Message, error) {
	return nil, errors.New("not used")
}

func (p *fakePlatform) ListTopics(ctx context.Context, groupID int64) (map[string]int, error) {
	out := make(map[string]int, len(p.topics))
	for k, v := range p.topics {
		out[k] = v
	}
	return out, nil
}

func (p *fakePlatform) CreateTopic(ctx context.Context, groupID int64, title string) (int, error) {
	p.nextTopic++
	p.topics[title] = p.nextTopic
	return p.nextTopic, nil
}

func (p *fakePlatform) CopyMessage(ctx context.Context, msg tgplat.Message, groupID int64, topicID int) (int, error) {
	if p.copyErr != nil {
		return 0, p.copyErr
	}
	p.copies = append(p.copies, copyCall{msgID: msg.ID, groupID: groupID, topicID: topicID})
	return 9000 + msg.ID, nil
}

func (p *fakePlatform) ChatProtected(ctx context.Context, chatID int64) (bool, error) {
	return false, nil
}

func (p *fakePlatform) ChatTitle(ctx context.Context, chatID int64) (string, error) {
	return "", nil
}

type fakeSessions struct {
	plats map[int64]tgplat.Platform
}

func (s fakeSessions) Platform(ownerID int64) (tgplat.Platform, bool) {
	p, ok := s.plats[ownerID]
	return p, ok
}

type fakeNotifier struct {
	sent []string
}

func (n *fakeNotifier) SendMessage(ctx context.Context, chatID int64, text string, markup tg.ReplyMarkupClass) (int, error) {
	n.sent = append(n.sent, text)
	return len(n.sent), nil
}

func (n *fakeNotifier) EditMessage(ctx context.Context, chatID int64, messageID int, text string, markup tg.ReplyMarkupClass) error {
	return nil
}

func forward(id uint, owner, source, target int64) database.Forward {
	f := database.Forward{
		UserChatID:      owner,
		SourceChannelID: source,
		TargetGroupID:   target,
		Active:          true,
	}
	f.ID = id
	return f
}

func TestDispatchCopiesToEveryActiveForward(t *testing.T) {
	store := &fakeStore{forwards: map[int64][]database.Forward{
		1: {forward(1, 42, 1, 2), forward(2, 43, 1, 3)},
	}}
	platA := &fakePlatform{topics: map[string]int{"Alpha": 5}}
	platB := &fakePlatform{topics: map[string]int{}}
	d := NewDispatcher(store, fakeSessions{plats: map[int64]tgplat.Platform{42: platA, 43: platB}}, &fakeNotifier{})

	d.dispatch(context.Background(), tgplat.Message{ID: 10, ChatID: 1, Text: "Topic: Alpha", HasMedia: true})

	require.Len(t, platA.copies, 1)
	require.Equal(t, 5, platA.copies[0].topicID)
	require.Len(t, platB.copies, 1)
	// Owner B had no such topic, so one was created for them.
	require.Equal(t, platB.topics["Alpha"], platB.copies[0].topicID)
	require.Len(t, store.files, 2)
}

func TestDispatchIgnoresUnroutableMessages(t *testing.T) {
	store := &fakeStore{forwards: map[int64][]database.Forward{
		1: {forward(1, 42, 1, 2)},
	}}
	plat := &fakePlatform{topics: map[string]int{}}
	d := NewDispatcher(store, fakeSessions{plats: map[int64]tgplat.Platform{42: plat}}, &fakeNotifier{})

	// No media, no marker, marker without media: none should copy.
	d.dispatch(context.Background(), tgplat.Message{ID: 1, ChatID: 1, Text: "Topic: Alpha"})
	d.dispatch(context.Background(), tgplat.Message{ID: 2, ChatID: 1, Text: "hello", HasMedia: true})
	d.dispatch(context.Background(), tgplat.Message{ID: 3, ChatID: 1, Text: ""})

	require.Empty(t, plat.copies)
	require.Empty(t, store.files)
}

func TestDispatchNotifiesOwnerOnFailure(t *testing.T) {
	store := &fakeStore{forwards: map[int64][]database.Forward{
		1: {forward(1, 42, 1, 2), forward(2, 43, 1, 3)},
	}}
	broken := &fakePlatform{topics: map[string]int{"Alpha": 5}, copyErr: errors.New("TOPIC_CLOSED")}
	healthy := &fakePlatform{topics: map[string]int{"Alpha": 6}}
	notifier := &fakeNotifier{}
	d := NewDispatcher(store, fakeSessions{plats: map[int64]tgplat.Platform{42: broken, 43: healthy}}, notifier)

	d.dispatch(context.Background(), tgplat.Message{ID: 10, ChatID: 1, Text: "Topic: Alpha", HasMedia: true})

	// The broken forward reported, the healthy one still delivered.
	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0], "TOPIC_CLOSED")
	require.Len(t, healthy.copies, 1)
	require.Len(t, store.files, 1)
}

func TestDispatchSkipsOwnerWithoutSession(t *testing.T) {
	store := &fakeStore{forwards: map[int64][]database.Forward{
		1: {forward(1, 42, 1, 2)},
	}}
	notifier := &fakeNotifier{}
	d := NewDispatcher(store, fakeSessions{plats: map[int64]tgplat.Platform{}}, notifier)

	d.dispatch(context.Background(), tgplat.Message{ID: 10, ChatID: 1, Text: "Topic: Alpha", HasMedia: true})

	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0], "no session")
}

func TestEnqueueNeverBlocks(t *testing.T) {
	d := NewDispatcher(&fakeStore{}, fakeSessions{}, &fakeNotifier{})
	for i := 0; i < defaultQueueSize+10; i++ {
		d.Enqueue(context.Background(), tgplat.Message{ID: i, ChatID: 1})
	}
	require.Equal(t, defaultQueueSize, d.incoming.Len())
	require.EqualValues(t, 10, d.incoming.Dropped())
}
