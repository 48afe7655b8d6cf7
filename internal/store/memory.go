package store

import (
	"context"
	"slices"
	"sync"

	"poker-club-bot/internal/model"
)

// MemoryBackend keeps the last saved snapshot in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	users []model.User
	saves int
}

// NewMemoryBackend creates a backend seeded with users.
func NewMemoryBackend(users ...model.User) *MemoryBackend {
	return &MemoryBackend{users: slices.Clone(users)}
}

// Load returns the last saved snapshot.
func (b *MemoryBackend) Load(_ context.Context) ([]model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.users), nil
}

// Save replaces the snapshot.
func (b *MemoryBackend) Save(_ context.Context, users []model.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = slices.Clone(users)
	b.saves++
	return nil
}

// Saves returns how many times Save was called.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
