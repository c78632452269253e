package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// LockRepository wraps postgres transaction-scoped advisory locks.
// Locks are released automatically when the owning transaction ends.
type LockRepository struct{}

// NewLockRepository constructs the repository.
func NewLockRepository() *LockRepository {
	return &LockRepository{}
}

// TryAcquire attempts the lock without waiting.
func (r *LockRepository) TryAcquire(ctx context.Context, tx *sqlx.Tx, key string) (bool, error) {
	var acquired bool
	if err := tx.GetContext(ctx, &acquired, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return false, fmt.Errorf("try advisory lock %s: %w", key, err)
	}
	return acquired, nil
}

// Acquire blocks until the lock is granted or ctx is cancelled.
func (r *LockRepository) Acquire(ctx context.Context, tx *sqlx.Tx, key string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("advisory lock %s: %w", key, err)
	}
	return nil
}
