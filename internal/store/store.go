// Package store keeps the authoritative set of user records in memory and
// flushes the whole set to a Backend after every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"poker-club-bot/internal/model"
)

// Common errors for store operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrNegativeBalance = errors.New("balance cannot become negative")
	ErrCorrupt         = errors.New("user data is corrupt")
)

// Backend persists the full record set. Load returns records in insertion
// order; Save receives them in the same order.
type Backend interface {
	Load(ctx context.Context) ([]model.User, error)
	Save(ctx context.Context, users []model.User) error
}

// Store is safe for concurrent use. Every mutation is applied to a copy,
// saved, and only then made visible, so a failed save changes nothing.
type Store struct {
	backend Backend

	mu    sync.Mutex
	users map[int64]*model.User
	order []int64
}

// Open loads all records from the backend.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	users, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	s := &Store{
		backend: backend,
		users:   make(map[int64]*model.User, len(users)),
		order:   make([]int64, 0, len(users)),
	}
	for i := range users {
		u := users[i]
		if _, dup := s.users[u.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate user %d", ErrCorrupt, u.ID)
		}
		if u.Chips < 0 {
			log.Warn().Int64("user_id", u.ID).Int64("chips", u.Chips).Msg("Loaded user with negative balance")
		}
		s.users[u.ID] = &u
		s.order = append(s.order, u.ID)
	}

	log.Info().Int("users", len(s.order)).Msg("User store loaded")
	return s, nil
}

// Get returns a copy of the user's record.
func (s *Store) Get(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetOrCreate returns the user's record, creating it with startingChips if
// the ID is unseen. The bool reports whether the record was created.
func (s *Store) GetOrCreate(ctx context.Context, id int64, username string, startingChips int64) (*model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, false, nil
	}

	u := model.User{ID: id, Username: username, Chips: startingChips}
	snapshot := append(s.snapshotLocked(nil), u)
	if err := s.backend.Save(ctx, snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to persist new user: %w", err)
	}

	s.users[id] = &u
	s.order = append(s.order, id)
	cp := u
	return &cp, true, nil
}

// Update applies fn to a copy of the user's record and persists the result.
// If fn returns an error, or the change would leave the balance negative and
// lower than before, nothing changes. Unchanged records are not re-saved.
func (s *Store) Update(ctx context.Context, id int64, fn func(u *model.User) error) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.updateLocked(ctx, current, fn)
}

// UpdateByUsername is Update for the record FindByUsername would return. The
// lookup and the update happen under one lock, so a concurrent handle change
// cannot redirect it.
func (s *Store) UpdateByUsername(ctx context.Context, username string, fn func(u *model.User) error) (*model.User, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if current := s.users[id]; current.Username == username {
			return s.updateLocked(ctx, current, fn)
		}
	}
	return nil, ErrUserNotFound
}

// updateLocked applies fn to a copy of current. Callers must hold s.mu.
func (s *Store) updateLocked(ctx context.Context, current *model.User, fn func(u *model.User) error) (*model.User, error) {
	id := current.ID
	next := *current
	if err := fn(&next); err != nil {
		return nil, err
	}
	next.ID = id
	// Records loaded with a negative balance may still be raised towards zero.
	if next.Chips < 0 && next.Chips < current.Chips {
		return nil, fmt.Errorf("%w: user %d would have %d", ErrNegativeBalance, id, next.Chips)
	}

	if next != *current {
		if err := s.backend.Save(ctx, s.snapshotLocked(&next)); err != nil {
			return nil, fmt.Errorf("failed to persist user %d: %w", id, err)
		}
		*current = next
	}

	cp := next
	return &cp, nil
}

// AddChips adds amount (possibly negative) to the user's balance.
func (s *Store) AddChips(ctx context.Context, id int64, amount int64) (*model.User, error) {
	return s.Update(ctx, id, func(u *model.User) error {
		u.Chips += amount
		return nil
	})
}

// FindByUsername returns the first record, in insertion order, whose handle
// equals username. An empty username never matches.
func (s *Store) FindByUsername(_ context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if u := s.users[id]; u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// List returns copies of all records in insertion order.
func (s *Store) List(_ context.Context) []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(nil)
}

// Len returns the number of registered users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// snapshotLocked copies all records in order, substituting override for the
// record with the same ID. Callers must hold s.mu.
func (s *Store) snapshotLocked(override *model.User) []model.User {
	out := make([]model.User, 0, len(s.order)+1)
	for _, id := range s.order {
		if override != nil && override.ID == id {
			out = append(out, *override)
			continue
		}
		out = append(out, *s.users[id])
	}
	return out
}
