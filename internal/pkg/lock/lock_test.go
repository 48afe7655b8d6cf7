package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentChipUpdatesProperty checks that read-modify-write sequences
// under the same user lock match their sequential result.
func TestConcurrentChipUpdatesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		expected := initial
		for _, a := range amounts {
			expected += a
		}

		ul := NewUserLock()
		chips := initial

		var (
			wg     sync.WaitGroup
			failed atomic.Int32
		)
		wg.Add(len(amounts))
		for _, a := range amounts {
			go func(amount int64) {
				defer wg.Done()
				err := ul.WithLockTimeout(context.Background(), userID, time.Minute, func() error {
					current := chips
					current += amount
					chips = current
					return nil
				})
				if err != nil {
					failed.Add(1)
				}
			}(a)
		}
		wg.Wait()

		if n := failed.Load(); n != 0 {
			t.Fatalf("%d updates failed to take the lock", n)
		}
		if chips != expected {
			t.Fatalf("chips mismatch: expected %d, got %d", expected, chips)
		}
		if ul.Len() != 0 {
			t.Fatalf("expected idle lock entries to be released, got %d", ul.Len())
		}
	})
}

func TestUserLock_LockUnlock(t *testing.T) {
	ul := NewUserLock()

	ul.Lock(1)
	ul.Lock(2)
	assert.Equal(t, 2, ul.Len())

	ul.Unlock(1)
	ul.Unlock(2)
	assert.Equal(t, 0, ul.Len())
}

func TestUserLock_UnlockUnknownIsNoop(t *testing.T) {
	ul := NewUserLock()
	assert.NotPanics(t, func() { ul.Unlock(99) })
}

func TestUserLock_WithLockTimeoutReturnsError(t *testing.T) {
	ul := NewUserLock()
	sentinel := errors.New("boom")

	err := ul.WithLockTimeout(context.Background(), 1, time.Second, func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, ul.Len(), "lock must be released after fn returns")
}

func TestUserLock_WithLockTimeoutExpires(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(1)

	called := false
	err := ul.WithLockTimeout(context.Background(), 1, 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)

	ul.Unlock(1)

	// The abandoned waiter hands the mutex back, so a later caller gets through.
	err = ul.WithLockTimeout(context.Background(), 1, time.Second, func() error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	assert.Eventually(t, func() bool { return ul.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestUserLock_WithLockTimeoutCanceledContext(t *testing.T) {
	ul := NewUserLock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ul.WithLockTimeout(ctx, 1, time.Second, func() error {
		t.Fatal("fn must not run on a canceled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, 0, ul.Len())
}

// TestMultipleUsersIndependentLocksProperty checks that holding one user's
// lock never blocks another user.
func TestMultipleUsersIndependentLocksProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.Int64Range(1, 1000).Draw(t, "a")
		b := rapid.Int64Range(1001, 2000).Draw(t, "b")

		ul := NewUserLock()
		ul.Lock(a)
		defer ul.Unlock(a)

		err := ul.WithLockTimeout(context.Background(), b, 100*time.Millisecond, func() error { return nil })
		if err != nil {
			t.Fatalf("user %d blocked by lock held for user %d: %v", b, a, err)
		}
	})
}
