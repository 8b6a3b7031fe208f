// backend-go/internal/export/csv.go

// Package export renders snapshot rows into CSV for download and for
// the object-storage archive the procurement team works from.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/pharmastock/backend-go/internal/domain"
)

var snapshotHeader = []string{
	"item_code", "item_name", "abc_class", "pack_size",
	"target_stock", "target_pieces", "source_stock", "source_pieces",
	"consumption_rate_pieces", "ideal_stock_pieces", "stock_level_ratio",
	"last_order_date", "last_order_document", "last_order_quantity",
	"last_hq_invoice_date", "last_supplier_invoice_date",
	"priority",
}

// SnapshotCSV renders rows in their given order.
func SnapshotCSV(rows []domain.SnapshotRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(snapshotHeader); err != nil {
		return nil, fmt.Errorf("error writing csv header: %w", err)
	}

	for i := range rows {
		row := &rows[i]
		record := []string{
			row.ItemCode,
			row.ItemName,
			row.ABCClass,
			formatFloat(row.PackSize),
			row.TargetEncoded,
			formatFloat(row.TargetPieces),
			row.SourceEncoded,
			formatFloat(row.SourcePieces),
			formatFloat(row.ConsumptionRate),
			formatFloat(row.IdealStock),
			formatFloat(row.StockLevelRatio),
			summaryDate(row.LastOrder),
			summaryDocument(row.LastOrder),
			summaryQuantity(row.LastOrder),
			summaryDate(row.LastHQInvoice),
			summaryDate(row.LastSupplierInvoice),
			string(row.Priority),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("error writing csv row %s: %w", row.ItemCode, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("error flushing csv: %w", err)
	}

	return buf.Bytes(), nil
}

// ObjectKey builds the archive key for one snapshot export.
func ObjectKey(prefix, targetBranch, company string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s.csv", prefix, company, targetBranch, at.UTC().Format("2006-01-02T15-04-05Z"))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func summaryDate(s *domain.MovementSummary) string {
	if s == nil {
		return ""
	}

	return s.Date.Format("2006-01-02")
}

func summaryDocument(s *domain.MovementSummary) string {
	if s == nil {
		return ""
	}

	return s.Document
}

func summaryQuantity(s *domain.MovementSummary) string {
	if s == nil {
		return ""
	}

	return formatFloat(s.Quantity)
}
