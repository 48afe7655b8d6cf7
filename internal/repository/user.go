// Package repository provides the PostgreSQL backend for the user store.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poker-club-bot/internal/model"
)

// UserRepository persists user snapshots to the users table.
// It satisfies store.Backend.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Load returns all users ordered by first insertion.
func (r *UserRepository) Load(ctx context.Context) ([]model.User, error) {
	const query = `
		SELECT telegram_id, COALESCE(username, ''), chips
		FROM users
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Chips); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Save upserts every user in one transaction. Rows are never deleted, and
// rows whose values did not change are left untouched. New rows are inserted
// in slice order so seq keeps the insertion order.
func (r *UserRepository) Save(ctx context.Context, users []model.User) error {
	const query = `
		INSERT INTO users (telegram_id, username, chips, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, NOW(), NOW())
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username, chips = EXCLUDED.chips, updated_at = NOW()
		WHERE users.username IS DISTINCT FROM EXCLUDED.username
		   OR users.chips <> EXCLUDED.chips
	`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range users {
			batch.Queue(query, u.ID, u.Username, u.Chips)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}

	return nil
}
