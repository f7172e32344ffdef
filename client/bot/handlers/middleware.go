package handlers

import (
	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/ext"
	"github.com/duke-git/lancet/v2/slice"
	"github.com/krau/TopicDex-Bot/config"
)

func checkPermission(ctx *ext.Context, update *ext.Update) error {
	userID := update.GetUserChat().GetID()
	if !slice.Contain(config.C().UserIDs(), userID) {
		ctx.Reply(update, ext.ReplyTextString("You are not in the allow list of this bot."), nil)
		return dispatcher.EndGroups
	}
	return dispatcher.ContinueGroups
}
