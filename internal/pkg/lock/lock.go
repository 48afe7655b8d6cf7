// Package lock provides user-level locking for multi-step balance operations.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// userMutex wraps a mutex with the number of goroutines holding or waiting on it.
type userMutex struct {
	mu       sync.Mutex
	refCount int
}

// UserLock serialises operations per user. Entries are dropped once no
// goroutine holds or waits on them, so the map stays proportional to the
// number of users currently playing.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*userMutex)}
}

func (ul *UserLock) acquireRef(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{}
		ul.locks[userID] = m
	}
	m.refCount++
	return m
}

func (ul *UserLock) releaseRef(userID int64, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	m.refCount--
	if m.refCount == 0 {
		delete(ul.locks, userID)
	}
}

// Lock acquires the lock for a user.
func (ul *UserLock) Lock(userID int64) {
	ul.acquireRef(userID).mu.Lock()
}

// Unlock releases the lock for a user. Unlocking a user that is not locked is a no-op.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Unlock()
	ul.releaseRef(userID, m)
}

// WithLockTimeout executes fn while holding the user's lock. It returns
// ErrLockTimeout when the lock is still held by someone else after timeout,
// and ctx.Err() when ctx itself is done first.
func (ul *UserLock) WithLockTimeout(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ul.lockContext(timeoutCtx, userID); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("%w: user %d after %s", ErrLockTimeout, userID, timeout)
		}
		return err
	}
	defer ul.Unlock(userID)
	return fn()
}

func (ul *UserLock) lockContext(ctx context.Context, userID int64) error {
	m := ul.acquireRef(userID)
	if err := ctx.Err(); err != nil {
		ul.releaseRef(userID, m)
		return err
	}

	acquired := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return nil
	case <-ctx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-acquired
			m.mu.Unlock()
			ul.releaseRef(userID, m)
		}()
		return ctx.Err()
	}
}

// Len returns the number of users with a held or awaited lock.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.locks)
}
