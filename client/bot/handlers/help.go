package handlers

import (
	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/ext"
)

const helpText = `TopicDex Bot

Copies messages from channels into topic-organized forum groups. A message
is routed by the "Topic: <name>" line in its caption; the matching forum
topic is created on demand.

Commands:
/forwards - list your forwards
/addforward <source> <destination> - watch a channel, copy into a group
/delforward <id> - remove a forward
/batch <forward id> [start message id] - index existing channel history
/batches - list your incomplete batches
/help - this message

Your user account must be a member of the source channel and an admin of
the destination group with permission to manage topics.`

func handleHelpCmd(ctx *ext.Context, update *ext.Update) error {
	ctx.Reply(update, ext.ReplyTextString(helpText), nil)
	return dispatcher.EndGroups
}
