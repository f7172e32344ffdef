// Package flood wraps remote calls with FLOOD_WAIT handling: when Telegram
// answers with a mandated wait duration, the caller is suspended for that
// long and the identical call is retried. This is the only automatic retry
// in the bot; every other error propagates unchanged.
package flood

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gotd/td/tgerr"
)

// Run invokes fn, sleeping and retrying for as long as the error is a
// flood wait. Retries are unbounded; the remote side bounds them in
// practice. Safe to nest: an inner Run absorbs the wait before the outer
// one ever sees the error.
func Run(ctx context.Context, fn func(ctx context.Context) error) error {
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		wait, ok := tgerr.AsFloodWait(err)
		if !ok {
			return err
		}
		log.FromContext(ctx).Warnf("Flood wait: sleeping %s before retry", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait + time.Second):
		}
	}
}

// RunResult is Run for calls that return a value.
func RunResult[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Run(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}
