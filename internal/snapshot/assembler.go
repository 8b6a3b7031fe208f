// backend-go/internal/snapshot/assembler.go

// Package snapshot builds the reconciliation view: one row per item
// comparing a target branch's stock against a candidate source branch,
// enriched with consumption analysis and last-movement activity.
package snapshot

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/ledger"
	"github.com/pharmastock/backend-go/internal/quantity"
)

// StockSource supplies the live stock rows for one branch.
type StockSource interface {
	StockByBranch(ctx context.Context, branch, company string) ([]domain.StockRecord, error)
}

// AnalysisSource supplies the consumption reference data for one branch.
type AnalysisSource interface {
	AnalysisByBranch(ctx context.Context, branch, company string) ([]domain.AnalysisRecord, error)
}

// MovementSource supplies retained movement records for one branch.
type MovementSource interface {
	MovementsByBranch(ctx context.Context, branch, company string) ([]domain.MovementRecord, error)
}

// Assembler joins stock, analysis and movement data into snapshot rows.
// Assembly is read-only and lock-free; it may run while a refresh is
// writing, and sees old-complete or new-complete data per item.
type Assembler struct {
	stock     StockSource
	analysis  AnalysisSource
	movements MovementSource
	hqCompany string
	th        Thresholds
	now       func() time.Time
}

func NewAssembler(stock StockSource, analysis AnalysisSource, movements MovementSource, hqCompany string, th Thresholds) *Assembler {
	return &Assembler{
		stock:     stock,
		analysis:  analysis,
		movements: movements,
		hqCompany: hqCompany,
		th:        th,
		now:       time.Now,
	}
}

// Assemble produces one row per item present in either the target
// branch's stock set or its analysis set. Missing stock defaults to zero
// pieces with pack size 1; missing analysis defaults to zero rate and an
// empty class. Per-item decode failures are logged and substituted with
// zero, never fatal to the whole snapshot.
func (a *Assembler) Assemble(ctx context.Context, filter domain.SnapshotFilter) ([]domain.SnapshotRow, error) {
	if filter.TargetBranch == "" || filter.Company == "" {
		return nil, errors.New("snapshot: target branch and company are required")
	}
	sourceCompany := filter.SourceCompany
	if sourceCompany == "" {
		sourceCompany = filter.Company
	}

	targetStock, err := a.stock.StockByBranch(ctx, filter.TargetBranch, filter.Company)
	if err != nil {
		return nil, err
	}

	var sourceStock []domain.StockRecord
	if filter.SourceBranch != "" {
		sourceStock, err = a.stock.StockByBranch(ctx, filter.SourceBranch, sourceCompany)
		if err != nil {
			return nil, err
		}
	}

	analysisRows, err := a.analysis.AnalysisByBranch(ctx, filter.TargetBranch, filter.Company)
	if err != nil {
		return nil, err
	}

	movements, err := a.movements.MovementsByBranch(ctx, filter.TargetBranch, filter.Company)
	if err != nil {
		return nil, err
	}

	activity := ledger.Merge(movements, ledger.Options{
		TargetBranch: filter.TargetBranch,
		Company:      filter.Company,
		HQCompany:    a.hqCompany,
	})

	targetByCode := indexStock(targetStock)
	sourceByCode := indexStock(sourceStock)
	analysisByCode := make(map[string]*domain.AnalysisRecord, len(analysisRows))
	for i := range analysisRows {
		analysisByCode[analysisRows[i].ItemCode] = &analysisRows[i]
	}

	// Outer union: every item known to stock or to analysis appears.
	codes := make(map[string]struct{}, len(targetByCode)+len(analysisByCode))
	for code := range targetByCode {
		codes[code] = struct{}{}
	}
	for code := range analysisByCode {
		codes[code] = struct{}{}
	}

	now := a.now()
	rows := make([]domain.SnapshotRow, 0, len(codes))
	for code := range codes {
		row := a.buildRow(code, targetByCode[code], sourceByCode[code], analysisByCode[code], activity[code])
		row.Priority = Classify(&row, now, a.th)

		if filter.PriorityOnly && (row.Priority == domain.PriorityNormal || row.SourcePieces <= 0) {
			continue
		}
		rows = append(rows, row)
	}

	if filter.PriorityOnly {
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Priority.Rank() != rows[j].Priority.Rank() {
				return rows[i].Priority.Rank() < rows[j].Priority.Rank()
			}
			return rows[i].ItemCode < rows[j].ItemCode
		})
	} else {
		sort.Slice(rows, func(i, j int) bool { return rows[i].ItemCode < rows[j].ItemCode })
	}

	return rows, nil
}

func (a *Assembler) buildRow(code string, target, source *domain.StockRecord, analysis *domain.AnalysisRecord, activity ledger.ItemActivity) domain.SnapshotRow {
	row := domain.SnapshotRow{
		ItemCode:            code,
		PackSize:            1,
		TargetEncoded:       "0W0P",
		SourceEncoded:       "0W0P",
		LastOrder:           activity.LastOrder,
		LastHQInvoice:       activity.LastHQInvoice,
		LastSupplierInvoice: activity.LastSupplierInvoice,
	}

	if target != nil {
		row.PackSize = normalizePackSize(target.PackSize)
		row.TargetEncoded = target.EncodedQuantity
		row.TargetPieces = decodePieces(target.EncodedQuantity, target.PackSize, code, target.Branch)
	} else if source != nil {
		row.PackSize = normalizePackSize(source.PackSize)
	}

	if source != nil {
		row.SourceEncoded = source.EncodedQuantity
		row.SourcePieces = decodePieces(source.EncodedQuantity, source.PackSize, code, source.Branch)
	}

	if analysis != nil {
		row.ABCClass = analysis.ABCClass
		// Analysis quantities arrive in packs; convert once, here.
		row.ConsumptionRate = analysis.ConsumptionRate * row.PackSize
		row.IdealStock = analysis.IdealStock * row.PackSize
	}

	if row.ConsumptionRate > 0 {
		row.StockLevelRatio = row.TargetPieces / row.ConsumptionRate
	}

	row.ItemName = resolveName(analysis, target, source)

	return row
}

// resolveName prefers the analysis name, unless it is empty or the
// feed's "NO SALES" placeholder, then falls back to the stock names.
func resolveName(analysis *domain.AnalysisRecord, target, source *domain.StockRecord) string {
	if analysis != nil && analysis.ItemName != "" && analysis.ItemName != domain.NoSalesName {
		return analysis.ItemName
	}
	if target != nil && target.ItemName != "" {
		return target.ItemName
	}
	if source != nil && source.ItemName != "" {
		return source.ItemName
	}

	return ""
}

func decodePieces(encoded string, packSize float64, code, branch string) float64 {
	pieces, err := quantity.ParsePieces(encoded, packSize)
	if err != nil {
		log.Warn().
			Str("item_code", code).
			Str("branch", branch).
			Str("encoded", encoded).
			Msg("unparseable stock quantity, treating as zero")
		return 0
	}

	return pieces
}

func normalizePackSize(size float64) float64 {
	if size <= 0 {
		return 1
	}

	return size
}

func indexStock(records []domain.StockRecord) map[string]*domain.StockRecord {
	out := make(map[string]*domain.StockRecord, len(records))
	for i := range records {
		out[records[i].ItemCode] = &records[i]
	}

	return out
}
