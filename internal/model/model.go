// Package model holds the records shared by the relay engine and the storage drivers.
package model

import "time"

// PlaceholderName is stored when a participant has no public username.
const PlaceholderName = "NoUsername"

// User is a registered chat participant.
type User struct {
	TelegramID int64  `db:"telegram_id"`
	Username   string `db:"username"`
	// ChatID is the delivery address for outbound messages.
	ChatID int64 `db:"chat_id"`
}

// Interaction is one append-only log entry.
type Interaction struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Message    string    `db:"message"`
	CreatedAt  time.Time `db:"created_at"`
}

// Subscription is the single subscription row of a user. Dates are civil
// dates stored as UTC midnight.
type Subscription struct {
	TelegramID       int64     `db:"telegram_id"`
	StartDate        time.Time `db:"start_date"`
	EndDate          time.Time `db:"end_date"`
	PaymentConfirmed bool      `db:"payment_confirmed"`
}

// PendingPayment is a subscriber whose payment has not been confirmed yet.
type PendingPayment struct {
	TelegramID int64  `db:"telegram_id"`
	Username   string `db:"username"`
}
