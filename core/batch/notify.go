package batch

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/gotd/td/tg"
	"github.com/krau/TopicDex-Bot/database"
)

const (
	CallbackPause  = "batchpause"
	CallbackResume = "batchresume"
	CallbackDelete = "batchdelete"
)

func callbackButton(text, action string, batchID uint) tg.KeyboardButtonRow {
	return tg.KeyboardButtonRow{
		Buttons: []tg.KeyboardButtonClass{
			&tg.KeyboardButtonCallback{
				Text: text,
				Data: fmt.Appendf(nil, "%s %d", action, batchID),
			},
		},
	}
}

// RunningMarkup is the inline keyboard attached to the progress message of
// a running batch.
func RunningMarkup(batchID uint) tg.ReplyMarkupClass {
	return &tg.ReplyInlineMarkup{Rows: []tg.KeyboardButtonRow{
		callbackButton("⏸ Pause", CallbackPause, batchID),
		callbackButton("🗑 Delete", CallbackDelete, batchID),
	}}
}

// PausedMarkup replaces it once the run stops at a pause.
func PausedMarkup(batchID uint) tg.ReplyMarkupClass {
	return &tg.ReplyInlineMarkup{Rows: []tg.KeyboardButtonRow{
		callbackButton("▶ Resume", CallbackResume, batchID),
		callbackButton("🗑 Delete", CallbackDelete, batchID),
	}}
}

// editProgress rewrites the batch's single persistent status message.
// Report delivery is best effort; a failed edit never fails the run.
func (e *Engine) editProgress(ctx context.Context, b *database.Batch, text string, markup tg.ReplyMarkupClass) {
	if b.ProgressMessageID == 0 {
		return
	}
	if err := e.notifier.EditMessage(ctx, b.UserChatID, b.ProgressMessageID, text, markup); err != nil {
		log.FromContext(ctx).Errorf("Failed to edit progress message %d: %s", b.ProgressMessageID, err)
	}
}

func (e *Engine) notifyPaused(ctx context.Context, b *database.Batch) {
	e.editProgress(ctx, b,
		"Batch paused.\n\nProcessing stopped and will continue from the checkpoint when resumed.",
		PausedMarkup(b.ID))
}

func (e *Engine) notifyDeleted(ctx context.Context, b *database.Batch) {
	e.editProgress(ctx, b, "Batch deleted.\n\nProcessing stopped.", nil)
}

func (e *Engine) notifyForwardError(ctx context.Context, b *database.Batch, fwd *database.Forward, topicName string, cause error) {
	text := fmt.Sprintf(
		"Could not forward to group %d.\nTopic: %s\nError: %s\n\nMake sure the destination group has topics enabled.",
		fwd.TargetGroupID, topicName, cause,
	)
	if _, err := e.notifier.SendMessage(ctx, b.UserChatID, text, nil); err != nil {
		log.FromContext(ctx).Errorf("Failed to notify forward error: %s", err)
	}
}
