// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"poker-club-bot/internal/model"
	"poker-club-bot/internal/store"
)

// Common errors for account operations.
var (
	ErrNotRegistered = errors.New("user is not registered")
)

// AccountService handles registration and balance lookups.
type AccountService struct {
	store         *store.Store
	startingChips int64
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(s *store.Store, startingChips int64) *AccountService {
	return &AccountService{
		store:         s,
		startingChips: startingChips,
	}
}

// Register ensures a user exists, creating one with the starting balance if
// necessary. Returns the user and whether it was newly created. An existing
// player's handle is refreshed when it changed; the balance never resets.
func (s *AccountService) Register(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.store.GetOrCreate(ctx, telegramID, username, s.startingChips)
	if err != nil {
		return nil, false, fmt.Errorf("failed to register user: %w", err)
	}

	if created {
		log.Info().
			Int64("user_id", telegramID).
			Str("username", username).
			Int64("chips", user.Chips).
			Msg("New player registered")
		return user, true, nil
	}

	if username != "" && user.Username != username {
		updated, err := s.store.Update(ctx, telegramID, func(u *model.User) error {
			u.Username = username
			return nil
		})
		if err != nil {
			// The player is registered either way; keep the old handle.
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to refresh username")
			return user, false, nil
		}
		user = updated
	}

	return user, false, nil
}

// GetBalance retrieves a user's current chip balance.
func (s *AccountService) GetBalance(ctx context.Context, telegramID int64) (int64, error) {
	user, err := s.GetUser(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	return user.Chips, nil
}

// GetUser retrieves a registered user.
func (s *AccountService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.store.Get(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
