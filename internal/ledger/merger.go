// backend-go/internal/ledger/merger.go

// Package ledger merges heterogeneous movement streams into a single
// "most recent activity" view per item. Purchase orders, inter-branch
// transfers and headquarters invoices together form the order stream;
// headquarters and supplier invoices are additionally tracked on their
// own so the snapshot can report them separately.
package ledger

import (
	"strings"

	"github.com/pharmastock/backend-go/internal/domain"
)

// Options scope a merge to one branch view.
type Options struct {
	// TargetBranch is the destination branch the activity is attributed to.
	TargetBranch string
	// Company partitions the records.
	Company string
	// HQCompany is the company whose headquarters issues branch invoices.
	// Headquarters invoices only count when Company matches it. This is
	// vendor business policy, carried in configuration.
	HQCompany string
}

// ItemActivity is the merged view for one item: the latest record in the
// order stream plus the latest headquarters and supplier invoice.
type ItemActivity struct {
	LastOrder           *domain.MovementSummary
	LastHQInvoice       *domain.MovementSummary
	LastSupplierInvoice *domain.MovementSummary
}

// kindPrecedence breaks the final tie when both date and document number
// are equal, so repeated merges of the same input always agree.
var kindPrecedence = map[domain.MovementKind]int{
	domain.MovementPurchaseOrder:   0,
	domain.MovementBranchTransfer:  1,
	domain.MovementHQInvoice:       2,
	domain.MovementSupplierInvoice: 3,
}

// Merge folds movement records into per-item activity for the branch in
// opts. Records for other branches or companies are skipped; transfers
// count only when TargetBranch is their destination.
func Merge(records []domain.MovementRecord, opts Options) map[string]ItemActivity {
	out := make(map[string]ItemActivity)

	for i := range records {
		rec := &records[i]
		if !eligible(rec, opts) {
			continue
		}

		summary := &domain.MovementSummary{
			Date:     rec.DocumentDate,
			Quantity: rec.Quantity,
			Document: rec.DocumentNumber,
			Kind:     rec.Kind,
		}

		activity := out[rec.ItemCode]

		switch rec.Kind {
		case domain.MovementPurchaseOrder, domain.MovementBranchTransfer, domain.MovementHQInvoice:
			activity.LastOrder = pickLatest(activity.LastOrder, summary)
		}
		switch rec.Kind {
		case domain.MovementHQInvoice:
			activity.LastHQInvoice = pickLatest(activity.LastHQInvoice, summary)
		case domain.MovementSupplierInvoice:
			activity.LastSupplierInvoice = pickLatest(activity.LastSupplierInvoice, summary)
		}

		out[rec.ItemCode] = activity
	}

	return out
}

// eligible matches branch and company case-insensitively with whitespace
// trimmed; vendor feeds are inconsistent about casing.
func eligible(rec *domain.MovementRecord, opts Options) bool {
	if !sameName(rec.Branch, opts.TargetBranch) || !sameName(rec.Company, opts.Company) {
		return false
	}
	if rec.Kind == domain.MovementHQInvoice && !sameName(opts.Company, opts.HQCompany) {
		return false
	}

	return true
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// pickLatest returns the more recent of two summaries. Ties on date go to
// the lexicographically greater document number, then to kind precedence.
func pickLatest(current, candidate *domain.MovementSummary) *domain.MovementSummary {
	if current == nil {
		return candidate
	}
	if candidate == nil {
		return current
	}

	switch {
	case candidate.Date.After(current.Date):
		return candidate
	case current.Date.After(candidate.Date):
		return current
	case candidate.Document > current.Document:
		return candidate
	case current.Document > candidate.Document:
		return current
	case kindPrecedence[candidate.Kind] < kindPrecedence[current.Kind]:
		return candidate
	default:
		return current
	}
}
