package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/tgplat"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gotd/td/tg"
)

type fakeStore struct {
	batch   *database.Batch
	forward *database.Forward
	files   []*database.File
	copied  map[int]bool

	getBatchCalls int
	// pauseOnCall flips the batch inactive on the Nth GetBatch call.
	pauseOnCall int
	// deleteOnCall makes GetBatch fail from the Nth call on.
	deleteOnCall int
	// failPollOnCall makes the Nth GetBatch call fail with a transient
	// error, as a busy sqlite file would.
	failPollOnCall int
	// vanished simulates the record being deleted out from under the run:
	// reads and writes both report not-found.
	vanished bool
}

func newFakeStore(b *database.Batch, f *database.Forward) *fakeStore {
	return &fakeStore{batch: b, forward: f, copied: map[int]bool{}}
}

func (s *fakeStore) GetBatch(ctx context.Context, id uint) (*database.Batch, error) {
	s.getBatchCalls++
	if s.vanished {
		return nil, gorm.ErrRecordNotFound
	}
	if s.deleteOnCall > 0 && s.getBatchCalls >= s.deleteOnCall {
		return nil, gorm.ErrRecordNotFound
	}
	if s.failPollOnCall > 0 && s.getBatchCalls == s.failPollOnCall {
		return nil, errors.New("database is locked")
	}
	if s.pauseOnCall > 0 && s.getBatchCalls >= s.pauseOnCall {
		s.batch.Active = false
	}
	cp := *s.batch
	return &cp, nil
}

func (s *fakeStore) UpdateBatch(ctx context.Context, batch *database.Batch) error {
	if s.vanished {
		return gorm.ErrRecordNotFound
	}
	cp := *batch
	s.batch = &cp
	return nil
}

func (s *fakeStore) GetForward(ctx context.Context, id uint) (*database.Forward, error) {
	if s.forward == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.forward, nil
}

func (s *fakeStore) IsFileCopied(ctx context.Context, sourceMessageID int, sourceChannelID, targetGroupID, userChatID int64) (bool, error) {
	return s.copied[sourceMessageID], nil
}

func (s *fakeStore) CreateFile(ctx context.Context, file *database.File) error {
	s.files = append(s.files, file)
	s.copied[file.SourceMessageID] = true
	return nil
}

func (s *fakeStore) IncompleteBatches(ctx context.Context) ([]database.Batch, error) {
	if s.batch != nil && !s.batch.Completed {
		return []database.Batch{*s.batch}, nil
	}
	return nil, nil
}

type copyCall struct {
	msgID   int
	topicID int
}

type fakePlatform struct {
	messages  []tgplat.Message
	topics    map[string]int
	nextTopic int
	nextDest  int
	created   []string
	copies    []copyCall
	fetches   []fetchCall
	protected bool
	copyErr   error
	// appendedAfterSnapshot lands in the channel right after the run reads
	// the last message id, like posts arriving mid-run.
	appendedAfterSnapshot []tgplat.Message
	// onCopy runs after every successful copy.
	onCopy func(msgID int)
}

type fetchCall struct {
	afterID int
	limit   int
}

func newFakePlatform(msgs []tgplat.Message) *fakePlatform {
	return &fakePlatform{messages: msgs, topics: map[string]int{}, nextTopic: 100, nextDest: 1000}
}

func (p *fakePlatform) LastMessageID(ctx context.Context, chatID int64) (int, error) {
	last := 0
	for _, m := range p.messages {
		if m.ID > last {
			last = m.ID
		}
	}
	if last == 0 {
		return 0, errors.New("empty channel")
	}
	if len(p.appendedAfterSnapshot) > 0 {
		p.messages = append(p.messages, p.appendedAfterSnapshot...)
		p.appendedAfterSnapshot = nil
	}
	return last, nil
}

func (p *fakePlatform) FetchRange(ctx context.Context, chatID int64, afterID, limit int) ([]tgplat.Message, error) {
	p.fetches = append(p.fetches, fetchCall{afterID: afterID, limit: limit})
	var out []tgplat.Message
	for _, m := range p.messages {
		if m.ID > afterID && m.ID <= afterID+limit {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
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
	p.created = append(p.created, title)
	return p.nextTopic, nil
}

func (p *fakePlatform) CopyMessage(ctx context.Context, msg tgplat.Message, groupID int64, topicID int) (int, error) {
	if p.copyErr != nil {
		return 0, p.copyErr
	}
	p.copies = append(p.copies, copyCall{msgID: msg.ID, topicID: topicID})
	p.nextDest++
	if p.onCopy != nil {
		p.onCopy(msg.ID)
	}
	return p.nextDest, nil
}

func (p *fakePlatform) ChatProtected(ctx context.Context, chatID int64) (bool, error) {
	return p.protected, nil
}

func (p *fakePlatform) ChatTitle(ctx context.Context, chatID int64) (string, error) {
	return "Source", nil
}

type fakeSessions struct {
	plat tgplat.Platform
}

func (s fakeSessions) Platform(ownerID int64) (tgplat.Platform, bool) {
	if s.plat == nil {
		return nil, false
	}
	return s.plat, true
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent   []sentMessage
	edits  []sentMessage
	nextID int
}

func (n *fakeNotifier) SendMessage(ctx context.Context, chatID int64, text string, markup tg.ReplyMarkupClass) (int, error) {
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	n.nextID++
	return n.nextID + 500, nil
}

func (n *fakeNotifier) EditMessage(ctx context.Context, chatID int64, messageID int, text string, markup tg.ReplyMarkupClass) error {
	n.edits = append(n.edits, sentMessage{chatID: chatID, text: text})
	return nil
}

func taggedMessage(id int, topicName string) tgplat.Message {
	return tgplat.Message{ID: id, ChatID: 1, Text: "Topic: " + topicName, HasMedia: true}
}

func plainMessage(id int) tgplat.Message {
	return tgplat.Message{ID: id, ChatID: 1, Text: "just text"}
}

func testBatch() (*database.Batch, *database.Forward) {
	fwd := &database.Forward{
		UserChatID:         42,
		SourceChannelID:    1,
		SourceChannelTitle: "Source",
		TargetGroupID:      2,
		TargetGroupTitle:   "Target",
		Active:             true,
	}
	fwd.ID = 7
	b := &database.Batch{
		UserChatID:        42,
		ForwardID:         7,
		Active:            true,
		ProgressMessageID: 9,
		StartMessageID:    1,
	}
	b.ID = 3
	return b, fwd
}

func TestRunProcessesFullRangeAscending(t *testing.T) {
	b, fwd := testBatch()
	b.StartMessageID = 100
	var msgs []tgplat.Message
	for id := 100; id <= 150; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}
	// Older history below the start must stay untouched.
	msgs = append(msgs, taggedMessage(99, "Alpha"), taggedMessage(50, "Alpha"))

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	e := NewEngine(store, fakeSessions{plat}, &fakeNotifier{}, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Len(t, plat.copies, 51)
	for i, c := range plat.copies {
		require.Equal(t, 100+i, c.msgID)
	}
	require.True(t, store.batch.Completed)
	require.False(t, store.batch.Active)
	require.Equal(t, 150, store.batch.LastMessageID)
	require.Len(t, store.files, 51)
}

func TestRunStopsAtPausePoll(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 30; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	// First GetBatch is the run's initial load; the second is the first
	// in-flight poll, after 10 messages.
	store.pauseOnCall = 2
	plat := newFakePlatform(msgs)
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{plat}, notifier, Options{CheckInterval: 10})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Len(t, plat.copies, 10)
	require.Equal(t, 10, store.batch.LastMessageID)
	require.False(t, store.batch.Completed)
	require.NotEmpty(t, notifier.edits)
	require.Contains(t, notifier.edits[len(notifier.edits)-1].text, "paused")
}

func TestRunNotifiesWhenBatchDeleted(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 30; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	store.deleteOnCall = 2
	plat := newFakePlatform(msgs)
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{plat}, notifier, Options{CheckInterval: 10})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Len(t, plat.copies, 10)
	require.Contains(t, notifier.edits[len(notifier.edits)-1].text, "deleted")
}

func TestRunSurvivesTransientPollError(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 30; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	// The second GetBatch call is the first in-flight poll; a busy store
	// there must not read as a deletion.
	store.failPollOnCall = 2
	plat := newFakePlatform(msgs)
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{plat}, notifier, Options{CheckInterval: 10})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Len(t, plat.copies, 30)
	require.True(t, store.batch.Completed)
	for _, ed := range notifier.edits {
		require.NotContains(t, ed.text, "deleted")
	}
}

func TestRunIgnoresPostsArrivingMidRun(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 20; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	// These land right after the run snapshots the channel's last id. They
	// belong to the realtime path, and must not push any of the snapshot
	// range out of the fetch window.
	plat.appendedAfterSnapshot = []tgplat.Message{
		taggedMessage(21, "Alpha"),
		taggedMessage(22, "Alpha"),
		taggedMessage(23, "Alpha"),
	}
	e := NewEngine(store, fakeSessions{plat}, &fakeNotifier{}, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Len(t, plat.copies, 20)
	for i, c := range plat.copies {
		require.Equal(t, 1+i, c.msgID)
	}
	require.True(t, store.batch.Completed)
	require.Equal(t, 20, store.batch.LastMessageID)
}

func TestRunWalksLargeRangeInWindows(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 250; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	e := NewEngine(store, fakeSessions{plat}, &fakeNotifier{}, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Equal(t, []fetchCall{
		{afterID: 0, limit: 100},
		{afterID: 100, limit: 100},
		{afterID: 200, limit: 50},
	}, plat.fetches)
	require.Len(t, plat.copies, 250)
	for i, c := range plat.copies {
		require.Equal(t, 1+i, c.msgID)
	}
	require.True(t, store.batch.Completed)
	require.Equal(t, 250, store.batch.LastMessageID)
}

func TestRunDoesNotResurrectBatchDeletedLate(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 5; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	// The deletion lands after the last poll point, so the run only learns
	// about it from the final checkpoint write.
	plat.onCopy = func(msgID int) {
		if msgID == 3 {
			store.vanished = true
		}
	}
	e := NewEngine(store, fakeSessions{plat}, &fakeNotifier{}, Options{CheckInterval: 100})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Len(t, plat.copies, 5)
	require.False(t, store.batch.Completed)
}

func TestRunSkipsAlreadyCopiedMessages(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 10; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	store.copied[3] = true
	store.copied[7] = true
	plat := newFakePlatform(msgs)
	e := NewEngine(store, fakeSessions{plat}, &fakeNotifier{}, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Len(t, plat.copies, 8)
	for _, c := range plat.copies {
		require.NotEqual(t, 3, c.msgID)
		require.NotEqual(t, 7, c.msgID)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	b, fwd := testBatch()
	b.StartMessageID = 100
	b.LastMessageID = 110
	var msgs []tgplat.Message
	for id := 100; id <= 120; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{plat}, notifier, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, true))

	// Only the ids past the checkpoint are touched again.
	require.Len(t, plat.copies, 10)
	require.Equal(t, 111, plat.copies[0].msgID)
	require.Equal(t, 120, plat.copies[len(plat.copies)-1].msgID)

	// A fresh progress message replaced the stale one.
	require.NotEmpty(t, notifier.sent)
	require.NotEqual(t, 9, store.batch.ProgressMessageID)

	// The report counts the whole window, checkpointed part included.
	require.NotEmpty(t, notifier.edits)
	require.Contains(t, notifier.edits[0].text, "21/21")
	require.True(t, store.batch.Completed)
}

func TestRunEndToEnd(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 20; id++ {
		switch {
		case id%2 == 1 && id <= 10:
			msgs = append(msgs, taggedMessage(id, "Alpha"))
		case id%2 == 1:
			msgs = append(msgs, taggedMessage(id, "Beta"))
		case id%4 == 0:
			msgs = append(msgs, plainMessage(id))
		default:
			// Media with no routing marker.
			msgs = append(msgs, tgplat.Message{ID: id, ChatID: 1, Text: "no marker here", HasMedia: true})
		}
	}

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{plat}, notifier, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.ElementsMatch(t, []string{"Alpha", "Beta"}, plat.created)
	require.Len(t, plat.copies, 10)
	require.Len(t, store.files, 10)

	alpha := plat.topics["Alpha"]
	beta := plat.topics["Beta"]
	for _, c := range plat.copies {
		if c.msgID <= 10 {
			require.Equal(t, alpha, c.topicID)
		} else {
			require.Equal(t, beta, c.topicID)
		}
	}

	require.GreaterOrEqual(t, len(notifier.edits), 2)
	final := notifier.edits[len(notifier.edits)-2]
	require.Contains(t, final.text, "20/20")
	require.Contains(t, final.text, "100.0%")
	require.Contains(t, notifier.edits[len(notifier.edits)-1].text, "complete")
	require.True(t, store.batch.Completed)
}

func TestRunRejectsProtectedChannel(t *testing.T) {
	b, fwd := testBatch()
	store := newFakeStore(b, fwd)
	plat := newFakePlatform([]tgplat.Message{taggedMessage(1, "Alpha")})
	plat.protected = true
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{plat}, notifier, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Empty(t, plat.copies)
	require.Contains(t, notifier.edits[0].text, "protected content")
	require.False(t, store.batch.Completed)
}

func TestRunFailsWithoutSession(t *testing.T) {
	b, fwd := testBatch()
	store := newFakeStore(b, fwd)
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{}, notifier, Options{})

	err := e.Run(context.Background(), b.ID, false)
	require.Error(t, err)
	require.Contains(t, notifier.edits[0].text, "log in")
}

func TestRunContinuesPastCopyErrors(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 5; id++ {
		msgs = append(msgs, taggedMessage(id, fmt.Sprintf("T%d", id)))
	}

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	plat.copyErr = errors.New("CHAT_WRITE_FORBIDDEN")
	e := NewEngine(store, fakeSessions{plat}, &fakeNotifier{}, Options{})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	require.Empty(t, plat.copies)
	require.Empty(t, store.files)
	require.True(t, store.batch.Completed)
	require.Equal(t, 5, store.batch.LastMessageID)
}

func TestReportCadencePersistsCheckpoint(t *testing.T) {
	b, fwd := testBatch()
	var msgs []tgplat.Message
	for id := 1; id <= 12; id++ {
		msgs = append(msgs, taggedMessage(id, "Alpha"))
	}

	store := newFakeStore(b, fwd)
	plat := newFakePlatform(msgs)
	notifier := &fakeNotifier{}
	e := NewEngine(store, fakeSessions{plat}, notifier, Options{CheckInterval: 100, ReportInterval: 5})

	require.NoError(t, e.Run(context.Background(), b.ID, false))

	var progressEdits int
	for _, ed := range notifier.edits {
		if strings.Contains(ed.text, "Processing messages") {
			progressEdits++
		}
	}
	// Two in-flight reports (after 5 and 10) plus the final one.
	require.Equal(t, 3, progressEdits)
	require.True(t, store.batch.Completed)
}
