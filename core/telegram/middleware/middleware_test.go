package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/fanrelay/core/metrics"
	tghelpers "github.com/m3rciful/fanrelay/core/telegram/helpers"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func messageUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		},
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	b := offlineBot(t)
	limited := 0
	served := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { served++; return nil })

	require.NoError(t, h(b.NewContext(messageUpdate(1, 7, "hi"))))
	require.NoError(t, h(b.NewContext(messageUpdate(2, 7, "again"))))
	require.NoError(t, h(b.NewContext(messageUpdate(3, 8, "other user"))))
	assert.Equal(t, 2, served)
	assert.Equal(t, 1, limited)

	cb := tele.Update{ID: 4, Callback: &tele.Callback{Sender: &tele.User{ID: 7}, Data: "\fchat|1"}}
	require.NoError(t, h(b.NewContext(cb)))
	assert.Equal(t, 3, served, "callbacks are excluded")
}

func TestRateLimitExemptUsers(t *testing.T) {
	b := offlineBot(t)
	limited := 0
	served := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exempt:    func(id int64) bool { return id == 1 },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { served++; return nil })

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, h(b.NewContext(messageUpdate(i+1, 1, text))))
	}
	assert.Equal(t, 3, served, "exempt users are never throttled")
	assert.Zero(t, limited)

	require.NoError(t, h(b.NewContext(messageUpdate(4, 7, "hi"))))
	require.NoError(t, h(b.NewContext(messageUpdate(5, 7, "again"))))
	assert.Equal(t, 4, served)
	assert.Equal(t, 1, limited)
}

func TestRecoverMiddleware(t *testing.T) {
	b := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(b.NewContext(messageUpdate(1, 7, "x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestMetricsMiddlewareUsesRoutedHandler(t *testing.T) {
	b := offlineBot(t)
	before := testutil.ToFloat64(metrics.HandledCounter("command.broadcast", "fail"))

	h := MetricsMiddleware(LoggerMiddleware(func(c tele.Context) error {
		tghelpers.WithHandler(c, "command.broadcast")
		return errors.New("send failed")
	}))
	require.Error(t, h(b.NewContext(messageUpdate(10, 7, "/broadcast hi"))))

	after := testutil.ToFloat64(metrics.HandledCounter("command.broadcast", "fail"))
	assert.Equal(t, before+1, after)
}
