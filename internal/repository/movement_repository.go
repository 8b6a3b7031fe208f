// backend-go/internal/repository/movement_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
)

type MovementRepository interface {
	MovementsByBranch(ctx context.Context, branch, company string) ([]domain.MovementRecord, error)
	UpsertMovements(ctx context.Context, records []domain.MovementRecord) (int, error)
	KnownDocuments(ctx context.Context, branch, company string, kind domain.MovementKind) (map[string]struct{}, error)
	RecentArrivals(ctx context.Context, branch, company string, since time.Time) ([]domain.ArrivalRow, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type movementRepository struct {
	db *postgres.DB
}

func NewMovementRepository(db *postgres.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) MovementsByBranch(ctx context.Context, branch, company string) ([]domain.MovementRecord, error) {
	query := `
		SELECT id, kind, branch, source_branch, company, item_code, item_name,
			document_date, document_number, quantity
		FROM movements
		WHERE branch = $1 AND company = $2
		ORDER BY item_code, document_date DESC
	`

	var records []domain.MovementRecord
	if err := r.db.SelectContext(ctx, &records, query, branch, company); err != nil {
		return nil, fmt.Errorf("error getting movements for branch %s: %w", branch, err)
	}

	return records, nil
}

// UpsertMovements appends a movement batch in one transaction, silently
// absorbing documents already recorded under the natural key (branch,
// document_number, item_code, document_date). Returns how many rows were
// actually new; a mid-batch failure rolls the whole batch back.
func (r *movementRepository) UpsertMovements(ctx context.Context, records []domain.MovementRecord) (int, error) {
	query := `
		INSERT INTO movements (kind, branch, source_branch, company, item_code, item_name, document_date, document_number, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (branch, document_number, item_code, document_date) DO NOTHING
	`

	inserted := 0
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range records {
			rec := &records[i]
			res, err := tx.ExecContext(ctx, query,
				rec.Kind, rec.Branch, rec.SourceBranch, rec.Company, rec.ItemCode, rec.ItemName,
				rec.DocumentDate, rec.DocumentNumber, rec.Quantity,
			)
			if err != nil {
				return fmt.Errorf("error upserting movement %s/%s: %w", rec.Branch, rec.DocumentNumber, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// KnownDocuments returns the document numbers already stored for one
// branch and kind, so fetchers can skip documents they already pulled.
func (r *movementRepository) KnownDocuments(ctx context.Context, branch, company string, kind domain.MovementKind) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT document_number
		FROM movements
		WHERE branch = $1 AND company = $2 AND kind = $3
	`

	var numbers []string
	if err := r.db.SelectContext(ctx, &numbers, query, branch, company, kind); err != nil {
		return nil, fmt.Errorf("error getting known documents for branch %s: %w", branch, err)
	}

	known := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		known[n] = struct{}{}
	}

	return known, nil
}

// RecentArrivals aggregates inbound activity per item since the given
// date, most recently active items first.
func (r *movementRepository) RecentArrivals(ctx context.Context, branch, company string, since time.Time) ([]domain.ArrivalRow, error) {
	query := `
		SELECT item_code,
			MAX(item_name) AS item_name,
			MAX(document_date) AS last_activity,
			COUNT(*) AS movements,
			COALESCE(SUM(quantity), 0) AS total_quantity
		FROM movements
		WHERE branch = $1 AND company = $2 AND document_date >= $3
		GROUP BY item_code
		ORDER BY last_activity DESC, item_code
	`

	var rows []domain.ArrivalRow
	if err := r.db.SelectContext(ctx, &rows, query, branch, company, since); err != nil {
		return nil, fmt.Errorf("error getting arrivals for branch %s: %w", branch, err)
	}

	return rows, nil
}

// PurgeOlderThan removes movements whose document date fell out of the
// retention window. A document dated exactly at the cutoff is retained.
func (r *movementRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movements WHERE document_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error purging movements: %w", err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting purged movements: %w", err)
	}

	return purged, nil
}
