package handlers

import (
	"strconv"
	"strings"

	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/ext"
	"github.com/charmbracelet/log"
	"github.com/gotd/td/tg"
	"github.com/krau/TopicDex-Bot/database"
)

func answerToast(ctx *ext.Context, queryID int64, text string) {
	req := &tg.MessagesSetBotCallbackAnswerRequest{QueryID: queryID}
	req.SetMessage(text)
	ctx.AnswerCallback(req)
}

func answerAlert(ctx *ext.Context, queryID int64, text string) {
	req := &tg.MessagesSetBotCallbackAnswerRequest{QueryID: queryID, Alert: true}
	req.SetMessage(text)
	ctx.AnswerCallback(req)
}

// callbackBatch loads the batch named in the callback data and verifies
// the pressing user owns it.
func callbackBatch(ctx *ext.Context, update *ext.Update) (*database.Batch, bool) {
	queryID := update.CallbackQuery.GetQueryID()
	parts := strings.Fields(string(update.CallbackQuery.Data))
	if len(parts) != 2 {
		answerAlert(ctx, queryID, "Malformed callback data.")
		return nil, false
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		answerAlert(ctx, queryID, "Malformed callback data.")
		return nil, false
	}
	b, err := database.GetBatchByID(ctx, uint(id))
	if err != nil {
		answerAlert(ctx, queryID, "Batch not found.")
		return nil, false
	}
	if b.UserChatID != update.CallbackQuery.GetUserID() {
		answerAlert(ctx, queryID, "This batch is not yours.")
		return nil, false
	}
	return b, true
}

func handleBatchPauseCallback(ctx *ext.Context, update *ext.Update) error {
	b, ok := callbackBatch(ctx, update)
	if !ok {
		return dispatcher.EndGroups
	}
	queryID := update.CallbackQuery.GetQueryID()
	if !b.Active {
		answerToast(ctx, queryID, "Batch is already paused.")
		return dispatcher.EndGroups
	}
	if err := database.SetBatchActive(ctx, b.ID, false); err != nil {
		log.FromContext(ctx).Errorf("Failed to pause batch %d: %s", b.ID, err)
		answerAlert(ctx, queryID, "Failed to pause batch.")
		return dispatcher.EndGroups
	}
	// The running engine observes the flag at its next poll point and
	// checkpoints before stopping.
	answerToast(ctx, queryID, "Pausing, the run stops at the next poll point.")
	return dispatcher.EndGroups
}

func handleBatchResumeCallback(ctx *ext.Context, update *ext.Update) error {
	b, ok := callbackBatch(ctx, update)
	if !ok {
		return dispatcher.EndGroups
	}
	queryID := update.CallbackQuery.GetQueryID()
	if b.Completed {
		answerToast(ctx, queryID, "Batch is already completed.")
		return dispatcher.EndGroups
	}
	if b.Active {
		answerToast(ctx, queryID, "Batch is already running.")
		return dispatcher.EndGroups
	}
	if err := database.SetBatchActive(ctx, b.ID, true); err != nil {
		log.FromContext(ctx).Errorf("Failed to resume batch %d: %s", b.ID, err)
		answerAlert(ctx, queryID, "Failed to resume batch.")
		return dispatcher.EndGroups
	}
	eng.Launch(appCtx, b.ID, false)
	answerToast(ctx, queryID, "Resuming from the checkpoint.")
	return dispatcher.EndGroups
}

func handleBatchDeleteCallback(ctx *ext.Context, update *ext.Update) error {
	b, ok := callbackBatch(ctx, update)
	if !ok {
		return dispatcher.EndGroups
	}
	queryID := update.CallbackQuery.GetQueryID()
	wasRunning := b.Active && !b.Completed
	if err := database.DeleteBatch(ctx, b.ID); err != nil {
		log.FromContext(ctx).Errorf("Failed to delete batch %d: %s", b.ID, err)
		answerAlert(ctx, queryID, "Failed to delete batch.")
		return dispatcher.EndGroups
	}
	// A running engine notices the missing record itself; otherwise
	// rewrite the status message here.
	if !wasRunning && b.ProgressMessageID != 0 {
		req := &tg.MessagesEditMessageRequest{ID: b.ProgressMessageID}
		req.SetMessage("Batch deleted.\n\nProcessing stopped.")
		ctx.EditMessage(b.UserChatID, req)
	}
	answerToast(ctx, queryID, "Batch deleted.")
	return dispatcher.EndGroups
}
