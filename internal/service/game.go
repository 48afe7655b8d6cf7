package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"poker-club-bot/internal/game/dice"
	"poker-club-bot/internal/model"
	"poker-club-bot/internal/pkg/lock"
	"poker-club-bot/internal/store"
)

// Game errors.
var (
	ErrInsufficientFunds = errors.New("insufficient chips for the bet")
)

// DefaultLockTimeout bounds how long a command waits for the same user's
// previous command to finish.
const DefaultLockTimeout = 5 * time.Second

// DiceRound is a settled dice round together with the resulting balance.
type DiceRound struct {
	*dice.Result
	Balance int64
}

// GameService runs dice rounds against the house.
type GameService struct {
	store       *store.Store
	game        *dice.Game
	userLock    *lock.UserLock
	lockTimeout time.Duration
}

// NewGameService creates a new GameService instance.
func NewGameService(s *store.Store, game *dice.Game, userLock *lock.UserLock) *GameService {
	return &GameService{
		store:       s,
		game:        game,
		userLock:    userLock,
		lockTimeout: DefaultLockTimeout,
	}
}

// Bet returns the stake of one round.
func (s *GameService) Bet() int64 {
	return s.game.Bet()
}

// PlayDice plays one round for the user. The bet is taken and saved before
// the dice are drawn; winnings or the refunded bet are credited afterwards.
// No dice are drawn when the user is unregistered or short of chips, or when
// the user's previous command is still running after the lock timeout.
func (s *GameService) PlayDice(ctx context.Context, telegramID int64) (*DiceRound, error) {
	var round *DiceRound
	err := s.userLock.WithLockTimeout(ctx, telegramID, s.lockTimeout, func() error {
		var err error
		round, err = s.playLocked(ctx, telegramID)
		return err
	})
	return round, err
}

func (s *GameService) playLocked(ctx context.Context, telegramID int64) (*DiceRound, error) {
	bet := s.game.Bet()

	user, err := s.store.Update(ctx, telegramID, func(u *model.User) error {
		if u.Chips < bet {
			return ErrInsufficientFunds
		}
		u.Chips -= bet
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrNotRegistered
		}
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to take bet: %w", err)
	}

	result, err := s.game.Play()
	if err != nil {
		// A broken roller must not eat the bet.
		if _, refundErr := s.store.AddChips(ctx, telegramID, bet); refundErr != nil {
			log.Error().Err(refundErr).Int64("user_id", telegramID).Int64("bet", bet).Msg("Failed to refund bet")
		}
		return nil, fmt.Errorf("failed to roll dice: %w", err)
	}

	if result.Payout > 0 {
		user, err = s.store.AddChips(ctx, telegramID, result.Payout)
		if err != nil {
			log.Error().
				Err(err).
				Int64("user_id", telegramID).
				Int64("payout", result.Payout).
				Msg("Failed to credit dice payout")
			return nil, fmt.Errorf("failed to credit payout: %w", err)
		}
	}

	log.Debug().
		Int64("user_id", telegramID).
		Int("player_roll", result.PlayerRoll).
		Int("house_roll", result.HouseRoll).
		Str("outcome", result.Outcome.String()).
		Int64("balance", user.Chips).
		Msg("Dice round settled")

	return &DiceRound{Result: result, Balance: user.Chips}, nil
}
