package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"poker-club-bot/internal/model"
)

func TestAccountService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, created, err := f.account.Register(ctx, 1, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1000), user.Chips)

	_, err = f.store.AddChips(ctx, 1, -300)
	require.NoError(t, err)

	user, created, err = f.account.Register(ctx, 1, "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(700), user.Chips)
}

func TestAccountService_RegisterRefreshesHandle(t *testing.T) {
	f := newFixture(t, model.User{ID: 1, Username: "old", Chips: 10})
	ctx := context.Background()

	user, created, err := f.account.Register(ctx, 1, "new")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "new", user.Username)
	assert.Equal(t, int64(10), user.Chips)

	// An empty handle from the platform keeps the stored one.
	user, _, err = f.account.Register(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "new", user.Username)
}

func TestAccountService_GetBalance(t *testing.T) {
	f := newFixture(t, model.User{ID: 1, Username: "alice", Chips: 420})
	ctx := context.Background()

	balance, err := f.account.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(420), balance)

	_, err = f.account.GetBalance(ctx, 2)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Equal(t, 0, f.backend.Saves(), "balance lookups never write")
}

// TestRegistrationIdempotentProperty checks that any number of registrations
// of the same ID grant the starting balance exactly once.
func TestRegistrationIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		id := rapid.Int64Range(1, 1<<40).Draw(rt, "id")
		times := rapid.IntRange(1, 10).Draw(rt, "times")

		createdCount := 0
		for i := 0; i < times; i++ {
			_, created, err := f.account.Register(ctx, id, "p")
			if err != nil {
				rt.Fatalf("register: %v", err)
			}
			if created {
				createdCount++
			}
		}

		if createdCount != 1 {
			rt.Fatalf("created %d times, want 1", createdCount)
		}
		if got := f.chips(t, id); got != 1000 {
			rt.Fatalf("balance %d, want 1000", got)
		}
	})
}
