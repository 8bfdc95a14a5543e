// Package storage defines the persistence contract of the bot. Drivers live in
// the postgres, sqlite and memory subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/m3rciful/fanrelay/internal/model"
)

// Driver names accepted by configuration.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is the persistence gateway. Every call is its own transaction.
type Store interface {
	// UpsertUser inserts the user or overwrites its username and chat id.
	UpsertUser(ctx context.Context, u model.User) error
	UserExists(ctx context.Context, telegramID int64) (bool, error)
	// GetUser returns ErrNotFound for unknown ids.
	GetUser(ctx context.Context, telegramID int64) (model.User, error)
	LogInteraction(ctx context.Context, telegramID int64, message string) error
	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]model.User, error)

	// UpsertSubscription writes the term and resets the confirmation flag.
	UpsertSubscription(ctx context.Context, telegramID int64, start, end time.Time) error
	// ConfirmPayment sets the confirmation flag. Unknown ids are a no-op.
	ConfirmPayment(ctx context.Context, telegramID int64) error
	HasPaid(ctx context.Context, telegramID int64) (bool, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	// ListPendingPayments joins users with their unconfirmed subscriptions.
	ListPendingPayments(ctx context.Context) ([]model.PendingPayment, error)

	Close() error
}
