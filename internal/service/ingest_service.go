package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/repository"
)

// IngestService accepts record batches pushed by fetch collaborators
// that do not go through the refresh coordinator, e.g. manual uploads.
type IngestService struct {
	stock     repository.StockRepository
	movements repository.MovementRepository
	analysis  repository.AnalysisRepository
}

func NewIngestService(stock repository.StockRepository, movements repository.MovementRepository, analysis repository.AnalysisRepository) *IngestService {
	return &IngestService{
		stock:     stock,
		movements: movements,
		analysis:  analysis,
	}
}

// IngestStock replaces one branch's entire stock set with the batch.
func (s *IngestService) IngestStock(ctx context.Context, branch, company string, records []domain.StockRecord) (int, error) {
	if branch == "" || company == "" {
		return 0, errors.New("ingest: branch and company are required")
	}

	return s.stock.ReplaceBranchStock(ctx, branch, company, records, time.Now())
}

// IngestMovements appends a movement batch; duplicates on the natural
// key are silently absorbed.
func (s *IngestService) IngestMovements(ctx context.Context, records []domain.MovementRecord) (int, error) {
	return s.movements.UpsertMovements(ctx, records)
}

// IngestAnalysis normalizes raw analysis rows (whatever column names the
// feed used) and bulk-upserts them. Rows without an item code are
// skipped and logged rather than failing the batch.
func (s *IngestService) IngestAnalysis(ctx context.Context, branch, company string, rows []map[string]string) (int, error) {
	if branch == "" || company == "" {
		return 0, errors.New("ingest: branch and company are required")
	}

	records := make([]domain.AnalysisRecord, 0, len(rows))
	for _, raw := range rows {
		rec, err := domain.NormalizeAnalysis(branch, company, raw)
		if err != nil {
			log.Warn().Err(err).Str("branch", branch).Msg("skipping analysis row")
			continue
		}
		records = append(records, rec)
	}

	return s.analysis.UpsertAnalysis(ctx, records)
}
