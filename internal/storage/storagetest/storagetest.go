// Package storagetest holds the contract suite every storage driver must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/fanrelay/internal/model"
	"github.com/m3rciful/fanrelay/internal/storage"
)

// Run executes the contract suite. open must return an empty store; it is
// called once per subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("UpsertUserOverwrites", func(t *testing.T) { testUpsertUser(t, open(t)) })
	t.Run("GetUserNotFound", func(t *testing.T) { testGetUserNotFound(t, open(t)) })
	t.Run("LogInteraction", func(t *testing.T) { testLogInteraction(t, open(t)) })
	t.Run("SubscriptionReset", func(t *testing.T) { testSubscriptionReset(t, open(t)) })
	t.Run("PaymentGate", func(t *testing.T) { testPaymentGate(t, open(t)) })
	t.Run("PendingPayments", func(t *testing.T) { testPendingPayments(t, open(t)) })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedUsers(t *testing.T, s storage.Store, users ...model.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, s.UpsertUser(context.Background(), u))
	}
}

func testUpsertUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUsers(t, s,
		model.User{TelegramID: 1001, Username: "alice", ChatID: 5001},
		model.User{TelegramID: 1001, Username: "alice_new", ChatID: 5002},
	)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, model.User{TelegramID: 1001, Username: "alice_new", ChatID: 5002}, users[0])

	exists, err := s.UserExists(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, exists)
}

func testGetUserNotFound(t *testing.T, s storage.Store) {
	ctx := context.Background()
	exists, err := s.UserExists(ctx, 42)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.GetUser(ctx, 42)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	seedUsers(t, s, model.User{TelegramID: 42, Username: "bobby", ChatID: 420})
	u, err := s.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(420), u.ChatID)
}

func testLogInteraction(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUsers(t, s, model.User{TelegramID: 7, Username: "carol", ChatID: 70})
	require.NoError(t, s.LogInteraction(ctx, 7, "handshake"))
	require.NoError(t, s.LogInteraction(ctx, 7, "hello"))
}

func testSubscriptionReset(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUsers(t, s, model.User{TelegramID: 1001, Username: "alice", ChatID: 5001})

	first := day(2026, 9, 1)
	require.NoError(t, s.UpsertSubscription(ctx, 1001, first, first.AddDate(0, 0, 30)))
	require.NoError(t, s.ConfirmPayment(ctx, 1001))

	second := day(2026, 10, 19)
	require.NoError(t, s.UpsertSubscription(ctx, 1001, second, second.AddDate(0, 0, 30)))

	subs, err := s.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(1001), subs[0].TelegramID)
	assert.False(t, subs[0].PaymentConfirmed)
	assert.True(t, second.Equal(subs[0].StartDate), "start %v", subs[0].StartDate)
	assert.True(t, day(2026, 11, 18).Equal(subs[0].EndDate), "end %v", subs[0].EndDate)
}

func testPaymentGate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUsers(t, s, model.User{TelegramID: 1002, Username: "bobby", ChatID: 5002})

	paid, err := s.HasPaid(ctx, 1002)
	require.NoError(t, err)
	assert.False(t, paid, "no subscription yet")

	require.NoError(t, s.ConfirmPayment(ctx, 1002), "confirming without a subscription is a no-op")
	paid, err = s.HasPaid(ctx, 1002)
	require.NoError(t, err)
	assert.False(t, paid)

	start := day(2026, 10, 19)
	require.NoError(t, s.UpsertSubscription(ctx, 1002, start, start.AddDate(0, 0, 30)))
	paid, err = s.HasPaid(ctx, 1002)
	require.NoError(t, err)
	assert.False(t, paid, "unconfirmed subscription")

	require.NoError(t, s.ConfirmPayment(ctx, 1002))
	paid, err = s.HasPaid(ctx, 1002)
	require.NoError(t, err)
	assert.True(t, paid)
}

func testPendingPayments(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUsers(t, s,
		model.User{TelegramID: 1001, Username: "alice", ChatID: 5001},
		model.User{TelegramID: 1002, Username: "bobby", ChatID: 5002},
		model.User{TelegramID: 2003, Username: "carol", ChatID: 5003},
	)
	start := day(2026, 10, 19)
	for _, id := range []int64{1001, 1002} {
		require.NoError(t, s.UpsertSubscription(ctx, id, start, start.AddDate(0, 0, 30)))
	}

	pending, err := s.ListPendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.PendingPayment{
		{TelegramID: 1001, Username: "alice"},
		{TelegramID: 1002, Username: "bobby"},
	}, pending)

	require.NoError(t, s.ConfirmPayment(ctx, 1001))
	pending, err = s.ListPendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.PendingPayment{{TelegramID: 1002, Username: "bobby"}}, pending)
}
