package sender

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func dialErr() error {
	return &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	err := d.Do(context.Background(), "send", "sendMessage", func() error {
		calls++
		if calls < 3 {
			return dialErr()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Zero(t, d.ErrorCount())
}

func TestDoStopsOnPermanentFailure(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	calls := 0
	err := d.Do(context.Background(), "send", "sendMessage", func() error {
		calls++
		return tele.ErrBlockedByUser
	})
	require.ErrorIs(t, err, tele.ErrBlockedByUser)
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDoAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	err := d.Do(context.Background(), "send", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDoHonoursCancelledContextWhenSaturated(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.slots <- struct{}{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Do(ctx, "send", "", func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, KindTimeout},
		{context.Canceled, KindCanceled},
		{dialErr(), KindDial},
		{&net.DNSError{Err: "no such host", Name: "api.telegram.org"}, KindDNS},
		{tele.ErrBlockedByUser, KindForbidden},
		{errors.New("telegram: too many requests (429)"), KindFlood},
		{errors.New("telegram: internal error (502)"), Kind5xx},
		{errors.New("telegram: message is too long (400)"), Kind4xx},
		{errors.New("broken pipe (eof)"), KindUnknown},
		{errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), "error %v", tc.err)
	}
	assert.Empty(t, Classify(nil))
}

func TestRedactHidesToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:ABC-def_ghi/sendMessage": EOF`)
	got := redact(err)
	assert.NotContains(t, got, "ABC-def_ghi")
	assert.Contains(t, got, "bot<redacted>")
}
