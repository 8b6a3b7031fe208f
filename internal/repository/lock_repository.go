// backend-go/internal/repository/lock_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
)

// LockRepository is the storage-backed mutual exclusion primitive for
// refresh cycles. The lock lives in its own table so every process
// sharing the database observes the same holder; an in-process mutex
// would not survive multiple schedulers.
type LockRepository interface {
	Acquire(ctx context.Context, name, owner string, timeout time.Duration) (bool, error)
	Release(ctx context.Context, name, owner string) error
	Status(ctx context.Context, name string) (domain.RefreshStatus, error)
}

type lockRepository struct {
	db *postgres.DB
}

func NewLockRepository(db *postgres.DB) LockRepository {
	return &lockRepository{db: db}
}

// Acquire claims the named lock without waiting. A live, unexpired lock
// held by someone else yields (false, nil); an expired lock is reclaimed
// in the same statement.
func (r *lockRepository) Acquire(ctx context.Context, name, owner string, timeout time.Duration) (bool, error) {
	query := `
		INSERT INTO refresh_lock (name, locked_by, acquired_at, expires_at)
		VALUES ($1, $2, NOW(), NOW() + ($3 * INTERVAL '1 second'))
		ON CONFLICT (name) DO UPDATE SET
			locked_by = EXCLUDED.locked_by,
			acquired_at = EXCLUDED.acquired_at,
			expires_at = EXCLUDED.expires_at
		WHERE refresh_lock.expires_at < NOW()
		RETURNING name
	`

	var claimed string
	err := r.db.QueryRowxContext(ctx, query, name, owner, timeout.Seconds()).Scan(&claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error acquiring lock %s: %w", name, err)
	}

	return true, nil
}

// Release drops the lock only when the caller still owns it, so a holder
// whose lock expired and was reclaimed cannot release the new owner.
func (r *lockRepository) Release(ctx context.Context, name, owner string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_lock WHERE name = $1 AND locked_by = $2`, name, owner,
	); err != nil {
		return fmt.Errorf("error releasing lock %s: %w", name, err)
	}

	return nil
}

func (r *lockRepository) Status(ctx context.Context, name string) (domain.RefreshStatus, error) {
	var lock domain.RefreshLock
	err := r.db.GetContext(ctx, &lock,
		`SELECT name, locked_by, acquired_at, expires_at FROM refresh_lock WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RefreshStatus{}, nil
	}
	if err != nil {
		return domain.RefreshStatus{}, fmt.Errorf("error getting lock status %s: %w", name, err)
	}

	if !lock.ExpiresAt.After(time.Now()) {
		return domain.RefreshStatus{}, nil
	}

	return domain.RefreshStatus{
		Running:   true,
		LockedBy:  lock.LockedBy,
		StartedAt: &lock.AcquiredAt,
		ExpiresAt: &lock.ExpiresAt,
	}, nil
}
