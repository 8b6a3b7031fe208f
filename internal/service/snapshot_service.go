package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pharmastock/backend-go/internal/cache"
	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/export"
	"github.com/pharmastock/backend-go/internal/repository"
	"github.com/pharmastock/backend-go/internal/snapshot"
	"github.com/pharmastock/backend-go/internal/storage"
)

type SnapshotService struct {
	assembler     *snapshot.Assembler
	stock         repository.StockRepository
	movements     repository.MovementRepository
	cache         cache.SnapshotCache
	archive       storage.ObjectStorage
	archivePrefix string
}

func NewSnapshotService(assembler *snapshot.Assembler, stock repository.StockRepository, movements repository.MovementRepository, cacheImpl cache.SnapshotCache) *SnapshotService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSnapshotCache()
	}
	return &SnapshotService{
		assembler: assembler,
		stock:     stock,
		movements: movements,
		cache:     cacheImpl,
	}
}

// WithArchive enables CSV archival of exports to object storage.
func (s *SnapshotService) WithArchive(archive storage.ObjectStorage, prefix string) *SnapshotService {
	s.archive = archive
	s.archivePrefix = prefix

	return s
}

func (s *SnapshotService) GetSnapshot(ctx context.Context, filter domain.SnapshotFilter) ([]domain.SnapshotRow, error) {
	if rows, ok, err := s.cache.Get(ctx, filter); err == nil && ok {
		return rows, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("snapshot: cache get failed")
	}

	rows, err := s.assembler.Assemble(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, filter, rows); err != nil {
		log.Warn().Err(err).Msg("snapshot: cache set failed")
	}

	return rows, nil
}

func (s *SnapshotService) GetPriorityItems(ctx context.Context, filter domain.SnapshotFilter) ([]domain.SnapshotRow, error) {
	filter.PriorityOnly = true

	return s.GetSnapshot(ctx, filter)
}

// GetArrivals lists items with inbound activity at a branch within the
// last N days, most recent first.
func (s *SnapshotService) GetArrivals(ctx context.Context, branch, company string, days int) ([]domain.ArrivalRow, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	return s.movements.RecentArrivals(ctx, branch, company, since)
}

// ListBranches lists branch/company pairs with live stock, optionally
// narrowed to one company.
func (s *SnapshotService) ListBranches(ctx context.Context, company string) ([]domain.Branch, error) {
	return s.stock.ListBranches(ctx, company)
}

// ExportSnapshot renders the snapshot as CSV and, when an archive is
// configured, uploads a copy. The CSV is returned either way so the
// download endpoint works without object storage.
func (s *SnapshotService) ExportSnapshot(ctx context.Context, filter domain.SnapshotFilter) (string, []byte, error) {
	rows, err := s.GetSnapshot(ctx, filter)
	if err != nil {
		return "", nil, err
	}

	data, err := export.SnapshotCSV(rows)
	if err != nil {
		return "", nil, err
	}

	var key string
	if s.archive != nil {
		key = export.ObjectKey(s.archivePrefix, filter.TargetBranch, filter.Company, time.Now())
		if err := s.archive.UploadObject(ctx, key, data, "text/csv"); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("snapshot: archive upload failed")
		}
	}

	return key, data, nil
}
