// Package dispatch drives the realtime path: channel posts observed by the
// userbot sessions are queued and copied into the forum topics of every
// active forward watching that channel.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/krau/TopicDex-Bot/core/topic"
	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/queue"
	"github.com/krau/TopicDex-Bot/pkg/tgplat"
)

// Store is the persistence slice the dispatcher needs.
type Store interface {
	ActiveForwardsBySource(ctx context.Context, sourceChannelID int64) ([]database.Forward, error)
	CreateFile(ctx context.Context, file *database.File) error
}

// Sessions resolves a forward owner to their authenticated session.
type Sessions interface {
	Platform(ownerID int64) (tgplat.Platform, bool)
}

const defaultQueueSize = 1024

type Dispatcher struct {
	store    Store
	sessions Sessions
	notifier tgplat.Notifier
	incoming *queue.Queue[tgplat.Message]
	// idle is the sleep between polls of an empty queue.
	idle time.Duration
}

func NewDispatcher(store Store, sessions Sessions, notifier tgplat.Notifier) *Dispatcher {
	return &Dispatcher{
		store:    store,
		sessions: sessions,
		notifier: notifier,
		incoming: queue.New[tgplat.Message](defaultQueueSize),
		idle:     time.Second,
	}
}

// Enqueue hands a freshly observed channel post to the dispatch loop.
// Called from update handlers; never blocks.
func (d *Dispatcher) Enqueue(ctx context.Context, msg tgplat.Message) {
	if d.incoming.Push(msg) {
		log.FromContext(ctx).Warnf("Dispatch queue full, dropped oldest message (%d dropped so far)", d.incoming.Dropped())
	}
}

// Run drains the queue until the context is canceled. Messages are
// processed one at a time; per-forward failures are reported to the owner
// and never stop the loop.
func (d *Dispatcher) Run(ctx context.Context) {
	logger := log.FromContext(ctx).WithPrefix("dispatch")
	ctx = log.WithContext(ctx, logger)
	logger.Info("Dispatcher started")
	for {
		msg, ok := d.incoming.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				logger.Info("Dispatcher stopped")
				return
			case <-time.After(d.idle):
			}
			continue
		}
		d.dispatch(ctx, msg)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg tgplat.Message) {
	logger := log.FromContext(ctx)
	if !topic.Eligible(msg) {
		return
	}
	name := topic.ExtractName(msg.Text)
	if name == "" {
		return
	}

	forwards, err := d.store.ActiveForwardsBySource(ctx, msg.ChatID)
	if err != nil {
		logger.Errorf("Failed to load forwards for channel %d: %s", msg.ChatID, err)
		return
	}
	for _, fwd := range forwards {
		if err := d.copyForForward(ctx, msg, &fwd, name); err != nil {
			logger.Errorf("Forward %d failed for message %d: %s", fwd.ID, msg.ID, err)
			d.notifyOwner(ctx, &fwd, name, err)
		}
	}
}

func (d *Dispatcher) copyForForward(ctx context.Context, msg tgplat.Message, fwd *database.Forward, name string) error {
	plat, ok := d.sessions.Platform(fwd.UserChatID)
	if !ok {
		return fmt.Errorf("no session for user %d", fwd.UserChatID)
	}

	topics, err := topic.LoadMap(ctx, plat, fwd.TargetGroupID)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	topicID, err := topic.Resolve(ctx, plat, fwd.TargetGroupID, topics, name)
	if err != nil {
		return fmt.Errorf("resolve topic %q: %w", name, err)
	}

	destID, err := plat.CopyMessage(ctx, msg, fwd.TargetGroupID, topicID)
	if err != nil {
		return fmt.Errorf("copy message: %w", err)
	}

	if err := d.store.CreateFile(ctx, &database.File{
		SourceChannelID: fwd.SourceChannelID,
		SourceMessageID: msg.ID,
		TargetGroupID:   fwd.TargetGroupID,
		TargetMessageID: destID,
		UserChatID:      fwd.UserChatID,
		ForwardID:       fwd.ID,
	}); err != nil {
		log.FromContext(ctx).Errorf("Failed to record copy of message %d: %s", msg.ID, err)
	}
	return nil
}

func (d *Dispatcher) notifyOwner(ctx context.Context, fwd *database.Forward, name string, cause error) {
	text := fmt.Sprintf(
		"Could not forward to group %d.\nTopic: %s\nError: %s\n\nMake sure the destination group has topics enabled.",
		fwd.TargetGroupID, name, cause,
	)
	if _, err := d.notifier.SendMessage(ctx, fwd.UserChatID, text, nil); err != nil {
		log.FromContext(ctx).Errorf("Failed to notify user %d: %s", fwd.UserChatID, err)
	}
}
