package handlers

import (
	"context"

	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/ext"
	"github.com/krau/TopicDex-Bot/core/batch"
)

type DescCommandHandler struct {
	Cmd     string
	Desc    string
	handler func(ctx *ext.Context, u *ext.Update) error
}

var CommandHandlers = []DescCommandHandler{
	{"start", "Show the welcome message", handleHelpCmd},
	{"help", "Show usage help", handleHelpCmd},
	{"forwards", "List your forwards", handleForwardsCmd},
	{"addforward", "Add a forward: /addforward <source> <destination>", handleAddForwardCmd},
	{"delforward", "Remove a forward: /delforward <id>", handleDelForwardCmd},
	{"batch", "Index channel history: /batch <forward id> [start message id]", handleBatchCmd},
	{"batches", "List your incomplete batches", handleBatchesCmd},
}

var (
	eng *batch.Engine
	// appCtx outlives the update that launched a batch, so runs keep going
	// after the command handler returns.
	appCtx context.Context
)

func Register(ctx context.Context, disp dispatcher.Dispatcher, engine *batch.Engine) {
	appCtx = ctx
	eng = engine
	disp.AddHandler(handlers.NewMessage(filters.Message.ChatType(filters.ChatTypeChannel), func(ctx *ext.Context, u *ext.Update) error {
		return dispatcher.EndGroups
	}))
	disp.AddHandler(handlers.NewMessage(filters.Message.All, checkPermission))
	for _, info := range CommandHandlers {
		disp.AddHandler(handlers.NewCommand(info.Cmd, info.handler))
	}
	disp.AddHandler(handlers.NewCallbackQuery(filters.CallbackQuery.Prefix(batch.CallbackPause), handleBatchPauseCallback))
	disp.AddHandler(handlers.NewCallbackQuery(filters.CallbackQuery.Prefix(batch.CallbackResume), handleBatchResumeCallback))
	disp.AddHandler(handlers.NewCallbackQuery(filters.CallbackQuery.Prefix(batch.CallbackDelete), handleBatchDeleteCallback))
}
