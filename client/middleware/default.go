package middleware

import (
	"time"

	"github.com/gotd/contrib/middleware/floodwait"
	"github.com/gotd/contrib/middleware/ratelimit"
	"github.com/gotd/td/telegram"
	"github.com/krau/TopicDex-Bot/client/middleware/retry"
	"github.com/krau/TopicDex-Bot/config"
	"golang.org/x/time/rate"
)

// https://github.com/iyear/tdl/blob/master/core/tclient/tclient.go
func NewDefaultMiddlewares() []telegram.Middleware {
	mws := []telegram.Middleware{
		retry.New(config.C().Telegram.RpcRetry),
	}
	return append(mws, NewFloodWaitMiddlewares(uint(config.C().Telegram.FloodRetry))...)
}

// NewFloodWaitMiddlewares waits out FLOOD_WAIT answers at the transport
// level and throttles outgoing RPCs so most flood waits never happen.
func NewFloodWaitMiddlewares(maxRetries uint) []telegram.Middleware {
	waiter := floodwait.NewSimpleWaiter().WithMaxRetries(maxRetries)
	ratelimiter := ratelimit.New(rate.Every(time.Millisecond*100), 5)
	return []telegram.Middleware{
		waiter,
		ratelimiter,
	}
}
