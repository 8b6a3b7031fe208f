// backend-go/internal/repository/analysis_repository.go
package repository

import (
	"context"
	"fmt"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
)

type AnalysisRepository interface {
	AnalysisByBranch(ctx context.Context, branch, company string) ([]domain.AnalysisRecord, error)
	UpsertAnalysis(ctx context.Context, records []domain.AnalysisRecord) (int, error)
}

type analysisRepository struct {
	db *postgres.DB
}

func NewAnalysisRepository(db *postgres.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

func (r *analysisRepository) AnalysisByBranch(ctx context.Context, branch, company string) ([]domain.AnalysisRecord, error) {
	query := `
		SELECT id, branch, company, item_code, item_name, abc_class,
			adjusted_consumption_rate, ideal_stock, updated_at
		FROM inventory_analysis
		WHERE branch = $1 AND company = $2
		ORDER BY item_code
	`

	var records []domain.AnalysisRecord
	if err := r.db.SelectContext(ctx, &records, query, branch, company); err != nil {
		return nil, fmt.Errorf("error getting analysis for branch %s: %w", branch, err)
	}

	return records, nil
}

// UpsertAnalysis loads reference data in bulk. Analysis rows are never
// purged by retention; a new load simply overwrites per item.
func (r *analysisRepository) UpsertAnalysis(ctx context.Context, records []domain.AnalysisRecord) (int, error) {
	query := `
		INSERT INTO inventory_analysis (branch, company, item_code, item_name, abc_class, adjusted_consumption_rate, ideal_stock, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (branch, company, item_code)
		DO UPDATE SET
			item_name = EXCLUDED.item_name,
			abc_class = EXCLUDED.abc_class,
			adjusted_consumption_rate = EXCLUDED.adjusted_consumption_rate,
			ideal_stock = EXCLUDED.ideal_stock,
			updated_at = NOW()
	`

	for i := range records {
		rec := &records[i]
		if _, err := r.db.ExecContext(ctx, query,
			rec.Branch, rec.Company, rec.ItemCode, rec.ItemName, rec.ABCClass, rec.ConsumptionRate, rec.IdealStock,
		); err != nil {
			return i, fmt.Errorf("error upserting analysis row %s/%s: %w", rec.Branch, rec.ItemCode, err)
		}
	}

	return len(records), nil
}
