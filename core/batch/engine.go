// Package batch implements the resumable indexing engine: it walks a
// historical message range of a source channel, routes classified
// messages into forum topics of the destination group, records completed
// copies for dedup and checkpoints its cursor so a run survives restarts.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/krau/TopicDex-Bot/core/topic"
	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/tgplat"
	"github.com/rs/xid"
	"gorm.io/gorm"
)

// fetchWindow is how many message ids a single history fetch covers. The
// run walks the range one window at a time so a large channel never sits
// in memory whole.
const fetchWindow = 100

type Options struct {
	// MessageDelay is the fixed pause after every copied message. It is a
	// deliberate throughput cap, not a reaction to an observed limit.
	MessageDelay time.Duration
	// CheckInterval is how many messages pass between re-reads of the
	// authoritative batch record (pause/delete detection).
	CheckInterval int
	// ReportInterval is how many messages pass between progress reports
	// and checkpoint writes.
	ReportInterval int
}

func (o Options) withDefaults() Options {
	if o.CheckInterval <= 0 {
		o.CheckInterval = 10
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = 50
	}
	return o
}

type Engine struct {
	store    Store
	sessions Sessions
	notifier tgplat.Notifier
	opts     Options
}

func NewEngine(store Store, sessions Sessions, notifier tgplat.Notifier, opts Options) *Engine {
	return &Engine{
		store:    store,
		sessions: sessions,
		notifier: notifier,
		opts:     opts.withDefaults(),
	}
}

// Launch starts a run in its own goroutine.
func (e *Engine) Launch(ctx context.Context, batchID uint, resendProgress bool) {
	go func() {
		if err := e.Run(ctx, batchID, resendProgress); err != nil {
			log.FromContext(ctx).Errorf("Batch %d run failed: %s", batchID, err)
		}
	}()
}

// Run executes one batch from its checkpoint to the end of the source
// channel. Precondition failures are reported to the owner once and end
// the run; a pause or delete observed at a poll point stops it
// cooperatively. Per-message failures are logged and never abort the run.
func (e *Engine) Run(ctx context.Context, batchID uint, resendProgress bool) error {
	logger := log.FromContext(ctx).WithPrefix(fmt.Sprintf("batch[%d]", batchID)).With("run", xid.New().String())
	ctx = log.WithContext(ctx, logger)

	b, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch %d: %w", batchID, err)
	}
	if !b.Active {
		logger.Info("Batch is not active, skipping")
		return nil
	}

	fwd, err := e.store.GetForward(ctx, b.ForwardID)
	if err != nil {
		e.editProgress(ctx, b, "The forward linked to this batch no longer exists.", nil)
		return fmt.Errorf("load forward %d: %w", b.ForwardID, err)
	}

	plat, ok := e.sessions.Platform(b.UserChatID)
	if !ok {
		e.editProgress(ctx, b, "No account session found. Please log in again.", nil)
		return fmt.Errorf("no session for user %d", b.UserChatID)
	}

	protected, err := plat.ChatProtected(ctx, fwd.SourceChannelID)
	if err != nil {
		e.editProgress(ctx, b, "Source channel has restricted access. Please check your forward settings.", nil)
		return fmt.Errorf("check source channel %d: %w", fwd.SourceChannelID, err)
	}
	if protected {
		logger.Warnf("Source channel %d has protected content", fwd.SourceChannelID)
		e.editProgress(ctx, b, "Source channel has protected content and cannot be indexed.", nil)
		return nil
	}

	if resendProgress {
		id, err := e.notifier.SendMessage(ctx, b.UserChatID,
			"Resuming batch\n\nProcessing will continue from the checkpoint.", RunningMarkup(b.ID))
		if err != nil {
			logger.Errorf("Failed to send progress message: %s", err)
		} else {
			b.ProgressMessageID = id
			if err := e.store.UpdateBatch(ctx, b); err != nil {
				logger.Errorf("Failed to save progress message id: %s", err)
			}
		}
	}

	// The topic map is rebuilt from the live topic list on every run,
	// fresh or resumed.
	topics, err := topic.LoadMap(ctx, plat, fwd.TargetGroupID)
	if err != nil {
		e.editProgress(ctx, b, fmt.Sprintf("Failed to list topics of group %d: %s", fwd.TargetGroupID, err), nil)
		return fmt.Errorf("load topic map: %w", err)
	}

	lastID, err := plat.LastMessageID(ctx, fwd.SourceChannelID)
	if err != nil {
		e.editProgress(ctx, b, "Failed to read the source channel.", nil)
		return fmt.Errorf("get last message id: %w", err)
	}

	// The checkpoint is the last id already advanced past: a resumed run
	// continues at checkpoint+1 and the full range keeps counting toward
	// the reported total.
	end := lastID
	begin := b.StartMessageID
	if b.LastMessageID != 0 {
		begin = b.LastMessageID + 1
	}
	total := end - b.StartMessageID + 1
	if total < 0 {
		total = 0
	}
	processed := begin - b.StartMessageID
	if processed < 0 {
		processed = 0
	}

	started := time.Now()
	logger.Infof("Indexing %q: range %d..%d (%d messages), starting at %d",
		fwd.SourceChannelTitle, b.StartMessageID, end, total, begin)

	count := 0
	lastDone := b.LastMessageID
	for next := begin; next <= end; next += fetchWindow {
		window := fetchWindow
		if rest := end - next + 1; rest < window {
			window = rest
		}
		msgs, err := plat.FetchRange(ctx, fwd.SourceChannelID, next-1, window)
		if err != nil {
			e.editProgress(ctx, b, "Failed to fetch messages from the source channel.", nil)
			return fmt.Errorf("fetch range: %w", err)
		}
		// The platform returns newest first. Topic creation must be visible
		// to later messages of the same run, so process ascending.
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

		for _, msg := range msgs {
			if msg.ID < begin || msg.ID > end {
				continue
			}

			if count != 0 && count%e.opts.CheckInterval == 0 {
				fresh, err := e.store.GetBatch(ctx, batchID)
				switch {
				case errors.Is(err, gorm.ErrRecordNotFound):
					logger.Info("Batch record is gone, stopping")
					e.notifyDeleted(ctx, b)
					return nil
				case err != nil:
					// A transient store error is not a deletion. Keep going
					// on the stale record, the next poll will catch up.
					logger.Errorf("Failed to poll batch record: %s", err)
				default:
					b = fresh
					if !b.Active {
						logger.Info("Batch paused, stopping")
						b.LastMessageID = lastDone
						if err := e.store.UpdateBatch(ctx, b); err != nil {
							logger.Errorf("Failed to persist checkpoint: %s", err)
						}
						e.notifyPaused(ctx, b)
						return nil
					}
				}
			}

			if count != 0 && count%e.opts.ReportInterval == 0 {
				e.editProgress(ctx, b, progressText(fwd.SourceChannelTitle, processed, total, time.Since(started)), RunningMarkup(b.ID))
				b.LastMessageID = lastDone
				if err := e.store.UpdateBatch(ctx, b); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						logger.Info("Batch record is gone, stopping")
						e.notifyDeleted(ctx, b)
						return nil
					}
					logger.Errorf("Failed to persist checkpoint: %s", err)
				}
			}

			count++

			if !topic.Eligible(msg) {
				processed++
				lastDone = msg.ID
				continue
			}

			copied, err := e.store.IsFileCopied(ctx, msg.ID, fwd.SourceChannelID, fwd.TargetGroupID, b.UserChatID)
			if err != nil {
				logger.Errorf("Dedup check failed for message %d: %s", msg.ID, err)
			}
			if copied {
				processed++
				lastDone = msg.ID
				continue
			}

			name := topic.ExtractName(msg.Text)
			if name == "" {
				processed++
				lastDone = msg.ID
				continue
			}

			topicID, err := topic.Resolve(ctx, plat, fwd.TargetGroupID, topics, name)
			if err != nil {
				logger.Errorf("Failed to resolve topic %q: %s", name, err)
				e.notifyForwardError(ctx, b, fwd, name, err)
				processed++
				lastDone = msg.ID
				continue
			}

			destID, err := plat.CopyMessage(ctx, msg, fwd.TargetGroupID, topicID)
			if err != nil {
				logger.Errorf("Failed to copy message %d: %s", msg.ID, err)
				processed++
				lastDone = msg.ID
				continue
			}

			if err := e.store.CreateFile(ctx, &database.File{
				SourceChannelID: fwd.SourceChannelID,
				SourceMessageID: msg.ID,
				TargetGroupID:   fwd.TargetGroupID,
				TargetMessageID: destID,
				UserChatID:      b.UserChatID,
				ForwardID:       fwd.ID,
			}); err != nil {
				logger.Errorf("Failed to record copy of message %d: %s", msg.ID, err)
			}

			processed++
			lastDone = msg.ID

			if e.opts.MessageDelay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(e.opts.MessageDelay):
				}
			}
		}
	}

	elapsed := time.Since(started)
	e.editProgress(ctx, b, progressText(fwd.SourceChannelTitle, processed, total, elapsed), RunningMarkup(b.ID))
	e.editProgress(ctx, b, completionText(fwd.SourceChannelTitle, fwd.TargetGroupTitle, processed, elapsed), nil)

	b.LastMessageID = lastDone
	b.Active = false
	b.Completed = true
	if err := e.store.UpdateBatch(ctx, b); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("Batch record is gone, skipping completion mark")
			return nil
		}
		return fmt.Errorf("mark batch completed: %w", err)
	}
	logger.Infof("Batch completed: %d messages in %s", processed, formatDuration(elapsed))
	return nil
}
