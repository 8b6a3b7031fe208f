// backend-go/internal/snapshot/classifier.go
package snapshot

import (
	"time"

	"github.com/pharmastock/backend-go/internal/config"
	"github.com/pharmastock/backend-go/internal/domain"
)

// Thresholds are the business-policy constants behind the priority flag.
// They come from configuration, not code; the defaults mirror what the
// procurement team runs in production.
type Thresholds struct {
	// IdealFactor: stock below ideal pieces * factor is LOW.
	IdealFactor float64
	// RateFactor: stock below consumption pieces * factor is LOW,
	// provided the consumption rate is positive.
	RateFactor float64
	// RecentWindow is the lookback for RECENT_ORDER / RECENT_INVOICE.
	RecentWindow time.Duration
}

// ThresholdsFromConfig maps the stock policy section onto Thresholds.
func ThresholdsFromConfig(cfg config.StockConfig) Thresholds {
	return Thresholds{
		IdealFactor:  cfg.LowIdealFactor,
		RateFactor:   cfg.LowRateFactor,
		RecentWindow: time.Duration(cfg.RecentWindowDays) * 24 * time.Hour,
	}
}

// Classify assigns the procurement urgency flag for one snapshot row.
// Checks run in strict precedence: LOW beats RECENT_ORDER beats
// RECENT_INVOICE beats NORMAL, first match wins.
func Classify(row *domain.SnapshotRow, now time.Time, th Thresholds) domain.PriorityFlag {
	if row.TargetPieces < row.IdealStock*th.IdealFactor {
		return domain.PriorityLow
	}
	if row.ConsumptionRate > 0 && row.TargetPieces < row.ConsumptionRate*th.RateFactor {
		return domain.PriorityLow
	}

	if row.LastOrder != nil && within(row.LastOrder.Date, now, th.RecentWindow) {
		return domain.PriorityRecentOrder
	}

	if (row.LastHQInvoice != nil && within(row.LastHQInvoice.Date, now, th.RecentWindow)) ||
		(row.LastSupplierInvoice != nil && within(row.LastSupplierInvoice.Date, now, th.RecentWindow)) {
		return domain.PriorityRecentInvoice
	}

	return domain.PriorityNormal
}

// within reports whether date falls inside the trailing window. The
// boundary day counts. Future-dated documents do not: a post-dated
// invoice must not mark an item recently supplied before the stock has
// actually moved.
func within(date, now time.Time, window time.Duration) bool {
	return !date.Before(now.Add(-window)) && !date.After(now)
}
