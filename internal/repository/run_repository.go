// backend-go/internal/repository/run_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
)

// RunRepository keeps the bookkeeping trail of refresh cycles so
// operators can see what the last run did and whether it finished.
type RunRepository interface {
	StartRun(ctx context.Context, owner string) (int64, error)
	FinishRun(ctx context.Context, id int64, status string, branchesOK, branchesFailed, movementsStored int, detail string) error
	LatestRun(ctx context.Context) (*domain.RefreshRun, error)
}

type runRepository struct {
	db *postgres.DB
}

func NewRunRepository(db *postgres.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) StartRun(ctx context.Context, owner string) (int64, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO refresh_runs (owner, status) VALUES ($1, 'running') RETURNING id`, owner,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error starting refresh run: %w", err)
	}

	return id, nil
}

func (r *runRepository) FinishRun(ctx context.Context, id int64, status string, branchesOK, branchesFailed, movementsStored int, detail string) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE refresh_runs
		SET completed_at = NOW(), status = $2, branches_ok = $3, branches_failed = $4, movements_stored = $5, detail = $6
		WHERE id = $1
	`, id, status, branchesOK, branchesFailed, movementsStored, detail); err != nil {
		return fmt.Errorf("error finishing refresh run %d: %w", id, err)
	}

	return nil
}

func (r *runRepository) LatestRun(ctx context.Context) (*domain.RefreshRun, error) {
	var run domain.RefreshRun
	err := r.db.GetContext(ctx, &run, `
		SELECT id, owner, started_at, completed_at, status, branches_ok, branches_failed, movements_stored, detail
		FROM refresh_runs
		ORDER BY id DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting latest refresh run: %w", err)
	}

	return &run, nil
}
