// Package sqlite implements storage.Store on an embedded SQLite file through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/internal/model"
	"github.com/m3rciful/fanrelay/internal/storage"
)

type userRow struct {
	TelegramID int64  `gorm:"primaryKey;autoIncrement:false"`
	Username   string `gorm:"not null;default:''"`
	ChatID     int64  `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type interactionRow struct {
	ID         int64  `gorm:"primaryKey"`
	TelegramID int64  `gorm:"not null;index"`
	Message    string `gorm:"not null"`
	CreatedAt  time.Time
}

func (interactionRow) TableName() string { return "interactions" }

type subscriptionRow struct {
	TelegramID       int64     `gorm:"primaryKey;autoIncrement:false"`
	StartDate        time.Time `gorm:"not null"`
	EndDate          time.Time `gorm:"not null"`
	PaymentConfirmed bool      `gorm:"not null"`
}

func (subscriptionRow) TableName() string { return "subscriptions" }

// Store is a storage.Store backed by gorm over SQLite.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at dsn and migrates the schema.
// ":memory:" gives a private in-process database.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "fanrelay.db"
	}
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userRow{}, &interactionRow{}, &subscriptionRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	logger.Info(context.Background(), "store", "store.open",
		slog.String("driver", storage.DriverSQLite),
		slog.String("path", dsn),
	)
	return &Store{db: db}, nil
}

// ensureDirForSQLite creates the parent directory of a file DSN.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logger.Warn(context.Background(), "store", "gorm",
		slog.String("driver", storage.DriverSQLite),
		slog.String("detail", logger.SanitizeLimit(fmt.Sprintf(format, args...), 512)),
	)
}

func (s *Store) UpsertUser(ctx context.Context, u model.User) error {
	const op = "storage.sqlite.UpsertUser"
	row := userRow{TelegramID: u.TelegramID, Username: u.Username, ChatID: u.ChatID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "chat_id"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) UserExists(ctx context.Context, telegramID int64) (bool, error) {
	const op = "storage.sqlite.UserExists"
	var n int64
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("telegram_id = ?", telegramID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *Store) GetUser(ctx context.Context, telegramID int64) (model.User, error) {
	const op = "storage.sqlite.GetUser"
	var row userRow
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return model.User{TelegramID: row.TelegramID, Username: row.Username, ChatID: row.ChatID}, nil
}

func (s *Store) LogInteraction(ctx context.Context, telegramID int64, message string) error {
	const op = "storage.sqlite.LogInteraction"
	row := interactionRow{TelegramID: telegramID, Message: message}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	const op = "storage.sqlite.ListUsers"
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("telegram_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, model.User{TelegramID: r.TelegramID, Username: r.Username, ChatID: r.ChatID})
	}
	return users, nil
}

func (s *Store) UpsertSubscription(ctx context.Context, telegramID int64, start, end time.Time) error {
	const op = "storage.sqlite.UpsertSubscription"
	row := subscriptionRow{
		TelegramID: telegramID,
		StartDate:  model.DateOf(start),
		EndDate:    model.DateOf(end),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"start_date", "end_date", "payment_confirmed"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) ConfirmPayment(ctx context.Context, telegramID int64) error {
	const op = "storage.sqlite.ConfirmPayment"
	err := s.db.WithContext(ctx).Model(&subscriptionRow{}).
		Where("telegram_id = ?", telegramID).
		Update("payment_confirmed", true).Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) HasPaid(ctx context.Context, telegramID int64) (bool, error) {
	const op = "storage.sqlite.HasPaid"
	var rows []subscriptionRow
	if err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).Limit(1).Find(&rows).Error; err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return len(rows) == 1 && rows[0].PaymentConfirmed, nil
}

func (s *Store) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	const op = "storage.sqlite.ListSubscriptions"
	var rows []subscriptionRow
	if err := s.db.WithContext(ctx).Order("telegram_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	subs := make([]model.Subscription, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, model.Subscription{
			TelegramID:       r.TelegramID,
			StartDate:        model.DateOf(r.StartDate.UTC()),
			EndDate:          model.DateOf(r.EndDate.UTC()),
			PaymentConfirmed: r.PaymentConfirmed,
		})
	}
	return subs, nil
}

func (s *Store) ListPendingPayments(ctx context.Context) ([]model.PendingPayment, error) {
	const op = "storage.sqlite.ListPendingPayments"
	var pending []model.PendingPayment
	err := s.db.WithContext(ctx).
		Table("subscriptions AS s").
		Select("s.telegram_id, u.username").
		Joins("JOIN users u ON u.telegram_id = s.telegram_id").
		Where("s.payment_confirmed = ?", false).
		Order("s.telegram_id").
		Scan(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pending, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
