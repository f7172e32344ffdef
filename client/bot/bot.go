// Package bot runs the bot account: the command surface and the status
// message channel back to owners.
package bot

import (
	"context"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/ext"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/charmbracelet/log"
	"github.com/gotd/td/tg"
	"github.com/krau/TopicDex-Bot/client/bot/handlers"
	"github.com/krau/TopicDex-Bot/client/middleware"
	"github.com/krau/TopicDex-Bot/config"
	"github.com/krau/TopicDex-Bot/core/batch"
	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/tgplat"
	"github.com/krau/TopicDex-Bot/pkg/tgutil"
)

var ectx *ext.Context

func ExtContext() *ext.Context {
	return ectx
}

// lazyNotifier resolves the bot session at call time, so the engine can be
// built before the bot finishes logging in.
type lazyNotifier struct{}

func (lazyNotifier) SendMessage(ctx context.Context, chatID int64, text string, markup tg.ReplyMarkupClass) (int, error) {
	return tgplat.NewNotifier(ectx).SendMessage(ctx, chatID, text, markup)
}

func (lazyNotifier) EditMessage(ctx context.Context, chatID int64, messageID int, text string, markup tg.ReplyMarkupClass) error {
	return tgplat.NewNotifier(ectx).EditMessage(ctx, chatID, messageID, text, markup)
}

// Notifier returns the status message sender bound to the bot session.
func Notifier() tgplat.Notifier {
	return lazyNotifier{}
}

func Init(ctx context.Context, engine *batch.Engine) error {
	log.FromContext(ctx).Info("Initializing bot client")
	resolver, err := tgutil.NewConfigProxyResolver()
	if err != nil {
		return err
	}
	client, err := gotgproto.NewClient(
		config.C().Telegram.AppID,
		config.C().Telegram.AppHash,
		gotgproto.ClientTypeBot(config.C().Telegram.Token),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(database.GetDialect(config.C().DB.Session)),
			DisableCopyright: true,
			Middlewares:      middleware.NewDefaultMiddlewares(),
			Resolver:         resolver,
			Context:          ctx,
			MaxRetries:       config.C().Telegram.RpcRetry,
			AutoFetchReply:   true,
			ErrorHandler: func(ctx *ext.Context, u *ext.Update, s string) error {
				log.FromContext(ctx).Errorf("Unhandled error: %s", s)
				return dispatcher.EndGroups
			},
		},
	)
	if err != nil {
		return err
	}

	commands := make([]tg.BotCommand, 0, len(handlers.CommandHandlers))
	for _, info := range handlers.CommandHandlers {
		commands = append(commands, tg.BotCommand{Command: info.Cmd, Description: info.Desc})
	}
	if _, err := client.API().BotsSetBotCommands(ctx, &tg.BotsSetBotCommandsRequest{
		Scope:    &tg.BotCommandScopeDefault{},
		Commands: commands,
	}); err != nil {
		log.FromContext(ctx).Warnf("Failed to set bot commands: %s", err)
	}

	handlers.Register(ctx, client.Dispatcher, engine)
	ectx = client.CreateContext()
	log.FromContext(ctx).Infof("Bot logged in: @%s", client.Self.Username)
	return nil
}
