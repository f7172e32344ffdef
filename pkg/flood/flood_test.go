package flood

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/require"
)

func TestRunRetriesOnFloodWait(t *testing.T) {
	calls := 0
	err := Run(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return tgerr.New(420, "FLOOD_WAIT_0")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRunPropagatesOtherErrors(t *testing.T) {
	sentinel := errors.New("CHAT_WRITE_FORBIDDEN")
	calls := 0
	err := Run(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, func(ctx context.Context) error {
			return tgerr.New(420, "FLOOD_WAIT_3600")
		})
	}()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunResult(t *testing.T) {
	calls := 0
	got, err := RunResult(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, tgerr.New(420, "FLOOD_WAIT_0")
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)
	require.Equal(t, 2, calls)
}
