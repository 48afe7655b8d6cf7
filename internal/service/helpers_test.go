package service

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"poker-club-bot/internal/game/dice"
	"poker-club-bot/internal/model"
	"poker-club-bot/internal/pkg/lock"
	"poker-club-bot/internal/store"
)

const testAdminID int64 = 5252767835

type adminList []int64

func (a adminList) IsAdmin(id int64) bool { return slices.Contains(a, id) }

// scriptedRoller replays a fixed sequence of faces and counts draws.
type scriptedRoller struct {
	faces []int
	draws int
}

func (r *scriptedRoller) Roll() int {
	v := r.faces[r.draws]
	r.draws++
	return v
}

type fixture struct {
	store   *store.Store
	backend *store.MemoryBackend
	roller  *scriptedRoller
	lock    *lock.UserLock
	account *AccountService
	game    *GameService
	admin   *AdminService
}

func newFixture(t *testing.T, users ...model.User) *fixture {
	t.Helper()

	backend := store.NewMemoryBackend(users...)
	s, err := store.Open(context.Background(), backend)
	require.NoError(t, err)

	roller := &scriptedRoller{}
	userLock := lock.NewUserLock()

	return &fixture{
		store:   s,
		backend: backend,
		roller:  roller,
		lock:    userLock,
		account: NewAccountService(s, 1000),
		game:    NewGameService(s, dice.New(&dice.Config{Bet: 50, Roller: roller}), userLock),
		admin:   NewAdminService(s, adminList{testAdminID}, userLock),
	}
}

func (f *fixture) rolls(faces ...int) {
	f.roller.faces = append(f.roller.faces, faces...)
}

func (f *fixture) chips(t *testing.T, id int64) int64 {
	t.Helper()
	u, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return u.Chips
}
