// Package memory implements storage.Store in process memory. Data is lost on exit.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/m3rciful/fanrelay/internal/model"
	"github.com/m3rciful/fanrelay/internal/storage"
)

// Store is a mutex-guarded map-backed storage.Store.
type Store struct {
	mu           sync.RWMutex
	users        map[int64]model.User
	subs         map[int64]model.Subscription
	interactions []model.Interaction
	now          func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users: make(map[int64]model.User),
		subs:  make(map[int64]model.Subscription),
		now:   time.Now,
	}
}

func (s *Store) UpsertUser(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.TelegramID] = u
	return nil
}

func (s *Store) UserExists(_ context.Context, telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[telegramID]
	return ok, nil
}

func (s *Store) GetUser(_ context.Context, telegramID int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[telegramID]
	if !ok {
		return model.User{}, fmt.Errorf("storage.memory.GetUser: %w", storage.ErrNotFound)
	}
	return u, nil
}

// LogInteraction mirrors the foreign key of the SQL drivers.
func (s *Store) LogInteraction(_ context.Context, telegramID int64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[telegramID]; !ok {
		return fmt.Errorf("storage.memory.LogInteraction: unknown user %d", telegramID)
	}
	s.interactions = append(s.interactions, model.Interaction{
		ID:         int64(len(s.interactions) + 1),
		TelegramID: telegramID,
		Message:    message,
		CreatedAt:  s.now().UTC(),
	})
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b model.User) int { return cmp.Compare(a.TelegramID, b.TelegramID) })
	return users, nil
}

func (s *Store) UpsertSubscription(_ context.Context, telegramID int64, start, end time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[telegramID]; !ok {
		return fmt.Errorf("storage.memory.UpsertSubscription: unknown user %d", telegramID)
	}
	s.subs[telegramID] = model.Subscription{
		TelegramID: telegramID,
		StartDate:  model.DateOf(start),
		EndDate:    model.DateOf(end),
	}
	return nil
}

func (s *Store) ConfirmPayment(_ context.Context, telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub, ok := s.subs[telegramID]; ok {
		sub.PaymentConfirmed = true
		s.subs[telegramID] = sub
	}
	return nil
}

func (s *Store) HasPaid(_ context.Context, telegramID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subs[telegramID].PaymentConfirmed, nil
}

func (s *Store) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := make([]model.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	slices.SortFunc(subs, func(a, b model.Subscription) int { return cmp.Compare(a.TelegramID, b.TelegramID) })
	return subs, nil
}

func (s *Store) ListPendingPayments(_ context.Context) ([]model.PendingPayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []model.PendingPayment
	for id, sub := range s.subs {
		u, ok := s.users[id]
		if !ok || sub.PaymentConfirmed {
			continue
		}
		pending = append(pending, model.PendingPayment{TelegramID: id, Username: u.Username})
	}
	slices.SortFunc(pending, func(a, b model.PendingPayment) int { return cmp.Compare(a.TelegramID, b.TelegramID) })
	return pending, nil
}

// Interactions returns a copy of the interaction log.
func (s *Store) Interactions() []model.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.interactions)
}

func (s *Store) Close() error { return nil }
