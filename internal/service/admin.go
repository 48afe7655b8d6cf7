package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chhongzh/shlex"
	"github.com/rs/zerolog/log"

	"poker-club-bot/internal/model"
	"poker-club-bot/internal/pkg/lock"
	"poker-club-bot/internal/store"
)

// Admin errors. Each maps to its own reply.
var (
	ErrUnauthorized    = errors.New("admin permission required")
	ErrBadArguments    = errors.New("bad arguments")
	ErrTargetNotFound  = errors.New("target player not found")
	ErrNegativeBalance = store.ErrNegativeBalance

	errHandleMoved = errors.New("handle moved to another player")
)

// maxGrantAttempts bounds lookups retried because the handle moved between
// the lookup and the locked update.
const maxGrantAttempts = 3

// Authorizer decides whether a user may run admin commands.
type Authorizer interface {
	IsAdmin(userID int64) bool
}

// Grant is a parsed /add_chips request.
type Grant struct {
	Username string
	Amount   int64
}

// ParseGrantArgs parses "@handle amount". The leading '@' is optional and
// the amount may be negative.
func ParseGrantArgs(payload string) (*Grant, error) {
	args, err := shlex.Split(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: expected 2 arguments, got %d", ErrBadArguments, len(args))
	}

	username := strings.TrimLeft(args[0], "@")
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrBadArguments)
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q is not an integer", ErrBadArguments, args[1])
	}

	return &Grant{Username: username, Amount: amount}, nil
}

// AdminService handles admin chip grants.
type AdminService struct {
	store       *store.Store
	auth        Authorizer
	userLock    *lock.UserLock
	lockTimeout time.Duration
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(s *store.Store, auth Authorizer, userLock *lock.UserLock) *AdminService {
	return &AdminService{
		store:       s,
		auth:        auth,
		userLock:    userLock,
		lockTimeout: DefaultLockTimeout,
	}
}

// GrantChips authorises adminID, parses payload and adds the amount to the
// first player holding the handle. Nothing is read or written for a
// non-admin caller.
func (s *AdminService) GrantChips(ctx context.Context, adminID int64, payload string) (*model.User, *Grant, error) {
	if !s.auth.IsAdmin(adminID) {
		log.Warn().
			Int64("user_id", adminID).
			Str("operation", "add_chips").
			Msg("Non-admin attempted admin command")
		return nil, nil, ErrUnauthorized
	}

	grant, err := ParseGrantArgs(payload)
	if err != nil {
		return nil, nil, err
	}

	var user *model.User
	for attempt := 1; ; attempt++ {
		user, err = s.grantOnce(ctx, grant)
		if !errors.Is(err, errHandleMoved) || attempt == maxGrantAttempts {
			break
		}
	}
	switch {
	case errors.Is(err, store.ErrUserNotFound), errors.Is(err, errHandleMoved):
		return nil, grant, ErrTargetNotFound
	case errors.Is(err, store.ErrNegativeBalance):
		return nil, grant, ErrNegativeBalance
	case err != nil:
		return nil, grant, fmt.Errorf("failed to grant chips: %w", err)
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("target_id", user.ID).
		Str("target_username", user.Username).
		Int64("amount", grant.Amount).
		Int64("balance", user.Chips).
		Str("operation", "add_chips").
		Msg("Admin operation executed")

	return user, grant, nil
}

// grantOnce locks the player currently holding the handle and credits them,
// provided they still hold it first once the lock is taken.
func (s *AdminService) grantOnce(ctx context.Context, grant *Grant) (*model.User, error) {
	target, err := s.store.FindByUsername(ctx, grant.Username)
	if err != nil {
		return nil, err
	}

	var user *model.User
	err = s.userLock.WithLockTimeout(ctx, target.ID, s.lockTimeout, func() error {
		var err error
		user, err = s.store.UpdateByUsername(ctx, grant.Username, func(u *model.User) error {
			if u.ID != target.ID {
				return errHandleMoved
			}
			u.Chips += grant.Amount
			return nil
		})
		return err
	})
	return user, err
}
