// Package user manages the long-lived MTProto sessions of the configured
// account owners. Every session watches the channels it is a member of and
// performs the actual copying, since bot accounts cannot read channel
// history.
package user

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/dispatcher"
	"github.com/celestix/gotgproto/dispatcher/handlers"
	"github.com/celestix/gotgproto/dispatcher/handlers/filters"
	"github.com/celestix/gotgproto/ext"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/gotd/td/tg"
	"github.com/krau/TopicDex-Bot/client/middleware"
	"github.com/krau/TopicDex-Bot/config"
	"github.com/krau/TopicDex-Bot/database"
	"github.com/krau/TopicDex-Bot/pkg/tgplat"
	"github.com/krau/TopicDex-Bot/pkg/tgutil"
)

var (
	mu    sync.RWMutex
	ectxs = make(map[int64]*ext.Context)
)

// PostHandler receives channel posts observed by any logged-in session.
type PostHandler func(ctx context.Context, msg tgplat.Message)

// Init logs in every configured user account. Sessions without stored
// credentials prompt interactively on the terminal.
func Init(ctx context.Context, onPost PostHandler) error {
	users := config.C().Users
	if len(users) == 0 {
		return errors.New("no users configured")
	}
	if err := os.MkdirAll(config.C().DB.SessionDir, 0755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	for _, u := range users {
		client, err := login(ctx, u, onPost)
		if err != nil {
			return fmt.Errorf("login user %d: %w", u.ID, err)
		}
		mu.Lock()
		ectxs[u.ID] = client.CreateContext()
		mu.Unlock()
	}
	return nil
}

// Platform returns the session bound to an owner's account.
func Platform(ownerID int64) (tgplat.Platform, bool) {
	mu.RLock()
	defer mu.RUnlock()
	ectx, ok := ectxs[ownerID]
	if !ok {
		return nil, false
	}
	return tgplat.NewClient(ectx), true
}

// Sessions adapts the package to the session interfaces the core
// packages consume.
type Sessions struct{}

func (Sessions) Platform(ownerID int64) (tgplat.Platform, bool) {
	return Platform(ownerID)
}

func login(ctx context.Context, u config.UserConfig, onPost PostHandler) (*gotgproto.Client, error) {
	logger := log.FromContext(ctx)
	logger.Infof("Logging in user %d", u.ID)
	resolver, err := tgutil.NewConfigProxyResolver()
	if err != nil {
		return nil, err
	}
	sessionPath := filepath.Join(config.C().DB.SessionDir, fmt.Sprintf("user_%d.db", u.ID))

	var client *gotgproto.Client
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 5 * time.Minute
	err = backoff.Retry(func() error {
		c, err := gotgproto.NewClient(
			config.C().Telegram.AppID,
			config.C().Telegram.AppHash,
			gotgproto.ClientTypePhone(u.Phone),
			&gotgproto.ClientOpts{
				Session:          sessionMaker.SqlSession(database.GetDialect(sessionPath)),
				AuthConversator:  &terminalAuthConversator{phone: u.Phone},
				Context:          ctx,
				DisableCopyright: true,
				Resolver:         resolver,
				MaxRetries:       config.C().Telegram.RpcRetry,
				AutoFetchReply:   true,
				Middlewares:      middleware.NewDefaultMiddlewares(),
				ErrorHandler: func(ectx *ext.Context, upd *ext.Update, s string) error {
					log.FromContext(ectx).Errorf("Unhandled error: %s", s)
					return dispatcher.EndGroups
				},
			},
		)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}

	client.Dispatcher.AddHandler(handlers.NewMessage(filters.Message.All, func(ectx *ext.Context, upd *ext.Update) error {
		switch upd.UpdateClass.(type) {
		case *tg.UpdateEditChannelMessage, *tg.UpdateEditMessage, *tg.UpdateDeleteChannelMessages, *tg.UpdateDeleteMessages:
			return dispatcher.EndGroups
		}
		msg := upd.EffectiveMessage
		if msg == nil || msg.Message == nil || !msg.Message.Post {
			return dispatcher.EndGroups
		}
		onPost(ectx, tgplat.FromTG(upd.EffectiveChat().GetID(), msg.Message))
		return dispatcher.EndGroups
	}))

	logger.Infof("User client logged in: %s %s", client.Self.FirstName, client.Self.LastName)
	return client, nil
}
