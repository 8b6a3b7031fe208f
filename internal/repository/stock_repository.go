// backend-go/internal/repository/stock_repository.go
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
)

type StockRepository interface {
	StockByBranch(ctx context.Context, branch, company string) ([]domain.StockRecord, error)
	ReplaceBranchStock(ctx context.Context, branch, company string, records []domain.StockRecord, refreshedAt time.Time) (int, error)
	ListBranches(ctx context.Context, company string) ([]domain.Branch, error)
}

type stockRepository struct {
	db *postgres.DB
}

func NewStockRepository(db *postgres.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) StockByBranch(ctx context.Context, branch, company string) ([]domain.StockRecord, error) {
	query := `
		SELECT id, branch, company, item_code, item_name, encoded_quantity, pack_size, refreshed_at
		FROM current_stock
		WHERE branch = $1 AND company = $2
		ORDER BY item_code
	`

	var records []domain.StockRecord
	if err := r.db.SelectContext(ctx, &records, query, branch, company); err != nil {
		return nil, fmt.Errorf("error getting stock for branch %s: %w", branch, err)
	}

	return records, nil
}

// ReplaceBranchStock replaces the live stock set for one branch with the
// given records. New rows are upserted first, stamped with refreshedAt,
// and only then are rows carrying an older stamp deleted, so a reader
// never observes the branch empty and items the refresh no longer
// reports disappear rather than going stale.
func (r *stockRepository) ReplaceBranchStock(ctx context.Context, branch, company string, records []domain.StockRecord, refreshedAt time.Time) (int, error) {
	upsert := `
		INSERT INTO current_stock (branch, company, item_code, item_name, encoded_quantity, pack_size, refreshed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (branch, company, item_code)
		DO UPDATE SET
			item_name = EXCLUDED.item_name,
			encoded_quantity = EXCLUDED.encoded_quantity,
			pack_size = EXCLUDED.pack_size,
			refreshed_at = EXCLUDED.refreshed_at
	`

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for i := range records {
			rec := &records[i]
			if _, err := tx.ExecContext(ctx, upsert,
				branch, company, rec.ItemCode, rec.ItemName, rec.EncodedQuantity, rec.PackSize, refreshedAt,
			); err != nil {
				return fmt.Errorf("error upserting stock row %s/%s: %w", branch, rec.ItemCode, err)
			}
		}

		// Rows the refresh did not touch still carry an older stamp.
		stale := `DELETE FROM current_stock WHERE branch = $1 AND company = $2 AND refreshed_at < $3`
		if _, err := tx.ExecContext(ctx, stale, branch, company, refreshedAt); err != nil {
			return fmt.Errorf("error deleting superseded stock for branch %s: %w", branch, err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(records), nil
}

// ListBranches lists distinct branch/company pairs with live stock,
// optionally narrowed to one company.
func (r *stockRepository) ListBranches(ctx context.Context, company string) ([]domain.Branch, error) {
	query := `SELECT DISTINCT branch, company FROM current_stock`
	var args []interface{}
	if company != "" {
		query += ` WHERE company = $1`
		args = append(args, company)
	}
	query += ` ORDER BY company, branch`

	var branches []domain.Branch
	if err := r.db.SelectContext(ctx, &branches, query, args...); err != nil {
		return nil, fmt.Errorf("error listing branches: %w", err)
	}

	return branches, nil
}
