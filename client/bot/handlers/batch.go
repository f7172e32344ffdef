package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/ext"
	"github.com/charmbracelet/log"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/krau/TopicDex-Bot/core/batch"
	"github.com/krau/TopicDex-Bot/database"
)

func handleBatchCmd(ctx *ext.Context, update *ext.Update) error {
	logger := log.FromContext(ctx)
	userID := update.GetUserChat().GetID()
	args := strings.Fields(update.EffectiveMessage.Text)
	if len(args) < 2 || len(args) > 3 {
		ctx.Reply(update, ext.ReplyTextString("Usage: /batch <forward id> [start message id]\nSee /forwards for your forward ids."), nil)
		return dispatcher.EndGroups
	}

	fwdID, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		ctx.Reply(update, ext.ReplyTextString("Forward id must be a number."), nil)
		return dispatcher.EndGroups
	}
	startID := 1
	if len(args) == 3 {
		startID, err = strconv.Atoi(args[2])
		if err != nil || startID < 1 {
			ctx.Reply(update, ext.ReplyTextString("Start message id must be a positive number."), nil)
			return dispatcher.EndGroups
		}
	}

	fwd, err := database.GetForwardByID(ctx, uint(fwdID))
	if err != nil || fwd.UserChatID != userID || !fwd.Active {
		ctx.Reply(update, ext.ReplyTextString("No such forward. See /forwards for your forward ids."), nil)
		return dispatcher.EndGroups
	}

	b := &database.Batch{
		UserChatID:     userID,
		ForwardID:      fwd.ID,
		StartMessageID: startID,
	}
	if err := database.CreateBatch(ctx, b); err != nil {
		if errors.Is(err, database.ErrBatchRunning) {
			ctx.Reply(update, ext.ReplyTextString("You already have an incomplete batch. Finish or delete it first, see /batches."), nil)
			return dispatcher.EndGroups
		}
		logger.Errorf("Failed to create batch: %s", err)
		ctx.Reply(update, ext.ReplyTextString("Failed to create batch."), nil)
		return dispatcher.EndGroups
	}

	progress, err := ctx.Reply(update,
		ext.ReplyTextString(fmt.Sprintf("Starting batch %d: %s → %s", b.ID, fwd.SourceChannelTitle, fwd.TargetGroupTitle)),
		&ext.ReplyOpts{Markup: batch.RunningMarkup(b.ID)})
	if err != nil {
		logger.Errorf("Failed to send progress message: %s", err)
	} else {
		b.ProgressMessageID = progress.ID
		if err := database.UpdateBatch(ctx, b); err != nil {
			logger.Errorf("Failed to save progress message id: %s", err)
		}
	}

	eng.Launch(appCtx, b.ID, false)
	return dispatcher.EndGroups
}

func handleBatchesCmd(ctx *ext.Context, update *ext.Update) error {
	userID := update.GetUserChat().GetID()
	batches, err := database.GetIncompleteBatchesByUser(ctx, userID)
	if err != nil {
		log.FromContext(ctx).Errorf("Failed to list batches: %s", err)
		ctx.Reply(update, ext.ReplyTextString("Failed to list batches."), nil)
		return dispatcher.EndGroups
	}
	if len(batches) == 0 {
		ctx.Reply(update, ext.ReplyTextString("You have no incomplete batches."), nil)
		return dispatcher.EndGroups
	}
	opts := make([]styling.StyledTextOption, 0, 1+len(batches)*3)
	opts = append(opts, styling.Bold("Your incomplete batches:"))
	for _, b := range batches {
		state := "paused"
		if b.Active {
			state = "running"
		}
		opts = append(opts,
			styling.Plain("\n\nBatch "),
			styling.Code(strconv.FormatUint(uint64(b.ID), 10)),
			styling.Plain(fmt.Sprintf("\nforward %d, %s, checkpoint at message %d",
				b.ForwardID, state, b.LastMessageID)),
		)
	}
	ctx.Reply(update, ext.ReplyTextStyledTextArray(opts), nil)
	return dispatcher.EndGroups
}
