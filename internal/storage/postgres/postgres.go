// Package postgres implements storage.Store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/fanrelay/internal/model"
	"github.com/m3rciful/fanrelay/internal/storage"
)

// Store is a storage.Store backed by a sqlx connection pool.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New wraps an open pool. The schema is expected to be migrated already.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	const op = "storage.postgres.UpsertUser"
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO users (telegram_id, username, chat_id)
		VALUES (:telegram_id, :username, :chat_id)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username, chat_id = EXCLUDED.chat_id`, u)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) UserExists(ctx context.Context, telegramID int64) (bool, error) {
	const op = "storage.postgres.UserExists"
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE telegram_id = $1)`, telegramID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

func (s *Store) GetUser(ctx context.Context, telegramID int64) (model.User, error) {
	const op = "storage.postgres.GetUser"
	var u model.User
	err := s.db.GetContext(ctx, &u,
		`SELECT telegram_id, username, chat_id FROM users WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *Store) LogInteraction(ctx context.Context, telegramID int64, message string) error {
	const op = "storage.postgres.LogInteraction"
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions (telegram_id, message) VALUES ($1, $2)`, telegramID, message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	const op = "storage.postgres.ListUsers"
	var users []model.User
	if err := s.db.SelectContext(ctx, &users,
		`SELECT telegram_id, username, chat_id FROM users ORDER BY telegram_id`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *Store) UpsertSubscription(ctx context.Context, telegramID int64, start, end time.Time) error {
	const op = "storage.postgres.UpsertSubscription"
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (telegram_id, start_date, end_date, payment_confirmed)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (telegram_id) DO UPDATE
		SET start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, payment_confirmed = FALSE`,
		telegramID, model.FormatDate(start), model.FormatDate(end))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) ConfirmPayment(ctx context.Context, telegramID int64) error {
	const op = "storage.postgres.ConfirmPayment"
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions SET payment_confirmed = TRUE WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) HasPaid(ctx context.Context, telegramID int64) (bool, error) {
	const op = "storage.postgres.HasPaid"
	var paid bool
	err := s.db.GetContext(ctx, &paid,
		`SELECT payment_confirmed FROM subscriptions WHERE telegram_id = $1`, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return paid, nil
}

func (s *Store) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	const op = "storage.postgres.ListSubscriptions"
	var subs []model.Subscription
	if err := s.db.SelectContext(ctx, &subs, `
		SELECT telegram_id, start_date, end_date, payment_confirmed
		FROM subscriptions ORDER BY telegram_id`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range subs {
		subs[i].StartDate = model.DateOf(subs[i].StartDate)
		subs[i].EndDate = model.DateOf(subs[i].EndDate)
	}
	return subs, nil
}

func (s *Store) ListPendingPayments(ctx context.Context) ([]model.PendingPayment, error) {
	const op = "storage.postgres.ListPendingPayments"
	var pending []model.PendingPayment
	if err := s.db.SelectContext(ctx, &pending, `
		SELECT s.telegram_id, u.username
		FROM subscriptions s
		JOIN users u ON u.telegram_id = s.telegram_id
		WHERE NOT s.payment_confirmed
		ORDER BY s.telegram_id`); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pending, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
