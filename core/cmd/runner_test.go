package cmd

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jpillora/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func fastPolicy() *backoff.Backoff {
	return &backoff.Backoff{Min: time.Millisecond, Max: 2 * time.Millisecond, Factor: 2}
}

func TestKeepAliveRestartsOnTransportFailure(t *testing.T) {
	calls := 0
	err := keepAlive(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestKeepAliveStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := keepAlive(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return tele.ErrUnauthorized
	})
	require.ErrorIs(t, err, tele.ErrUnauthorized)
	assert.Equal(t, 1, calls)
}

func TestKeepAliveHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := keepAlive(ctx, &backoff.Backoff{Min: time.Hour, Max: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("poller stopped")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunRequiresLoaders(t *testing.T) {
	assert.EqualError(t, Run(Options{}), "cmd: LoadConfig is required")
}
