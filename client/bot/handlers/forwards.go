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
	userclient "github.com/krau/TopicDex-Bot/client/user"
	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/tgutil"
	"gorm.io/gorm"
)

func handleForwardsCmd(ctx *ext.Context, update *ext.Update) error {
	userID := update.GetUserChat().GetID()
	forwards, err := database.GetActiveForwardsByUser(ctx, userID)
	if err != nil {
		log.FromContext(ctx).Errorf("Failed to list forwards: %s", err)
		ctx.Reply(update, ext.ReplyTextString("Failed to list forwards."), nil)
		return dispatcher.EndGroups
	}
	if len(forwards) == 0 {
		ctx.Reply(update, ext.ReplyTextString("You have no forwards. Add one with /addforward <source> <destination>."), nil)
		return dispatcher.EndGroups
	}
	opts := make([]styling.StyledTextOption, 0, 1+len(forwards)*4)
	opts = append(opts, styling.Bold("Your forwards:"))
	for _, f := range forwards {
		opts = append(opts,
			styling.Plain("\n\nID "),
			styling.Code(strconv.FormatUint(uint64(f.ID), 10)),
			styling.Plain(fmt.Sprintf("\n%s (%d)\n→ %s (%d)",
				f.SourceChannelTitle, f.SourceChannelID,
				f.TargetGroupTitle, f.TargetGroupID)),
		)
	}
	ctx.Reply(update, ext.ReplyTextStyledTextArray(opts), nil)
	return dispatcher.EndGroups
}

func handleAddForwardCmd(ctx *ext.Context, update *ext.Update) error {
	logger := log.FromContext(ctx)
	userID := update.GetUserChat().GetID()
	args := strings.Fields(update.EffectiveMessage.Text)
	if len(args) != 3 {
		ctx.Reply(update, ext.ReplyTextString("Usage: /addforward <source channel> <destination group>"), nil)
		return dispatcher.EndGroups
	}

	plat, ok := userclient.Platform(userID)
	if !ok {
		ctx.Reply(update, ext.ReplyTextString("No account session found. Please log in again."), nil)
		return dispatcher.EndGroups
	}

	sourceID, err := tgutil.ParseChatID(ctx, args[1])
	if err != nil {
		ctx.Reply(update, ext.ReplyTextString(fmt.Sprintf("Cannot resolve source %q: %s", args[1], err)), nil)
		return dispatcher.EndGroups
	}
	targetID, err := tgutil.ParseChatID(ctx, args[2])
	if err != nil {
		ctx.Reply(update, ext.ReplyTextString(fmt.Sprintf("Cannot resolve destination %q: %s", args[2], err)), nil)
		return dispatcher.EndGroups
	}

	sourceTitle, err := plat.ChatTitle(ctx, sourceID)
	if err != nil {
		ctx.Reply(update, ext.ReplyTextString(fmt.Sprintf("Your account cannot access the source channel: %s", err)), nil)
		return dispatcher.EndGroups
	}
	targetTitle, err := plat.ChatTitle(ctx, targetID)
	if err != nil {
		ctx.Reply(update, ext.ReplyTextString(fmt.Sprintf("Your account cannot access the destination group: %s", err)), nil)
		return dispatcher.EndGroups
	}
	protected, err := plat.ChatProtected(ctx, sourceID)
	if err == nil && protected {
		ctx.Reply(update, ext.ReplyTextString("The source channel has protected content and cannot be copied from."), nil)
		return dispatcher.EndGroups
	}

	fwd := &database.Forward{
		UserChatID:         userID,
		SourceChannelID:    sourceID,
		SourceChannelTitle: sourceTitle,
		TargetGroupID:      targetID,
		TargetGroupTitle:   targetTitle,
	}
	if err := database.CreateForward(ctx, fwd); err != nil {
		if errors.Is(err, database.ErrForwardExists) {
			ctx.Reply(update, ext.ReplyTextString("A forward between these chats already exists."), nil)
			return dispatcher.EndGroups
		}
		logger.Errorf("Failed to create forward: %s", err)
		ctx.Reply(update, ext.ReplyTextString("Failed to create forward."), nil)
		return dispatcher.EndGroups
	}
	ctx.Reply(update, ext.ReplyTextString(fmt.Sprintf(
		"Forward %d created: %s → %s\nNew channel posts will be copied from now on. Use /batch %d to index existing history.",
		fwd.ID, sourceTitle, targetTitle, fwd.ID)), nil)
	return dispatcher.EndGroups
}

func handleDelForwardCmd(ctx *ext.Context, update *ext.Update) error {
	userID := update.GetUserChat().GetID()
	args := strings.Fields(update.EffectiveMessage.Text)
	if len(args) != 2 {
		ctx.Reply(update, ext.ReplyTextString("Usage: /delforward <id>"), nil)
		return dispatcher.EndGroups
	}
	id, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		ctx.Reply(update, ext.ReplyTextString("Forward id must be a number."), nil)
		return dispatcher.EndGroups
	}
	if err := database.DeactivateForward(ctx, uint(id), userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.Reply(update, ext.ReplyTextString("No such forward."), nil)
			return dispatcher.EndGroups
		}
		log.FromContext(ctx).Errorf("Failed to remove forward %d: %s", id, err)
		ctx.Reply(update, ext.ReplyTextString("Failed to remove forward."), nil)
		return dispatcher.EndGroups
	}
	ctx.Reply(update, ext.ReplyTextString(fmt.Sprintf("Forward %d removed.", id)), nil)
	return dispatcher.EndGroups
}
