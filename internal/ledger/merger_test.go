package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmastock/backend-go/internal/domain"
)

var mergeOpts = Options{
	TargetBranch: "WESTLANDS",
	Company:      "NILA",
	HQCompany:    "NILA",
}

func day(d int) time.Time {
	return time.Date(2026, time.August, d, 0, 0, 0, 0, time.UTC)
}

func movement(kind domain.MovementKind, item, doc string, date time.Time, qty float64) domain.MovementRecord {
	return domain.MovementRecord{
		Kind:           kind,
		Branch:         "WESTLANDS",
		Company:        "NILA",
		ItemCode:       item,
		DocumentDate:   date,
		DocumentNumber: doc,
		Quantity:       qty,
	}
}

func TestMergeLatestPerStream(t *testing.T) {
	records := []domain.MovementRecord{
		movement(domain.MovementPurchaseOrder, "X100", "PO-001", day(1), 10),
		movement(domain.MovementPurchaseOrder, "X100", "PO-002", day(5), 20),
		movement(domain.MovementBranchTransfer, "X100", "TR-010", day(8), 5),
		movement(domain.MovementHQInvoice, "X100", "INV-100", day(3), 12),
		movement(domain.MovementSupplierInvoice, "X100", "SUP-777", day(9), 40),
	}

	out := Merge(records, mergeOpts)
	activity, ok := out["X100"]
	require.True(t, ok)

	require.NotNil(t, activity.LastOrder)
	assert.Equal(t, "TR-010", activity.LastOrder.Document)
	assert.Equal(t, domain.MovementBranchTransfer, activity.LastOrder.Kind)

	require.NotNil(t, activity.LastHQInvoice)
	assert.Equal(t, "INV-100", activity.LastHQInvoice.Document)

	require.NotNil(t, activity.LastSupplierInvoice)
	assert.Equal(t, "SUP-777", activity.LastSupplierInvoice.Document)
}

func TestMergeMatchesBranchCaseInsensitively(t *testing.T) {
	rec := movement(domain.MovementPurchaseOrder, "X100", "PO-001", day(5), 10)
	rec.Branch = "  westlands "
	rec.Company = "Nila"

	out := Merge([]domain.MovementRecord{rec}, mergeOpts)
	activity, ok := out["X100"]
	require.True(t, ok)
	require.NotNil(t, activity.LastOrder)
	assert.Equal(t, "PO-001", activity.LastOrder.Document)
}

func TestMergeSupplierInvoiceNotAnOrder(t *testing.T) {
	records := []domain.MovementRecord{
		movement(domain.MovementPurchaseOrder, "X100", "PO-001", day(1), 10),
		movement(domain.MovementSupplierInvoice, "X100", "SUP-777", day(9), 40),
	}

	out := Merge(records, mergeOpts)
	activity := out["X100"]

	require.NotNil(t, activity.LastOrder)
	assert.Equal(t, "PO-001", activity.LastOrder.Document)
}

func TestMergeTieBreakDocumentNumber(t *testing.T) {
	a := movement(domain.MovementPurchaseOrder, "X100", "PO-001", day(5), 10)
	b := movement(domain.MovementPurchaseOrder, "X100", "PO-002", day(5), 20)

	// Result must not depend on input order.
	for _, records := range [][]domain.MovementRecord{{a, b}, {b, a}} {
		out := Merge(records, mergeOpts)
		require.NotNil(t, out["X100"].LastOrder)
		assert.Equal(t, "PO-002", out["X100"].LastOrder.Document)
	}
}

func TestMergeTieBreakKindPrecedence(t *testing.T) {
	po := movement(domain.MovementPurchaseOrder, "X100", "DOC-1", day(5), 10)
	tr := movement(domain.MovementBranchTransfer, "X100", "DOC-1", day(5), 20)

	for _, records := range [][]domain.MovementRecord{{po, tr}, {tr, po}} {
		out := Merge(records, mergeOpts)
		require.NotNil(t, out["X100"].LastOrder)
		assert.Equal(t, domain.MovementPurchaseOrder, out["X100"].LastOrder.Kind)
	}
}

func TestMergeSkipsOtherBranches(t *testing.T) {
	other := movement(domain.MovementBranchTransfer, "X100", "TR-020", day(9), 5)
	other.Branch = "KILIMANI"

	out := Merge([]domain.MovementRecord{other}, mergeOpts)
	assert.Empty(t, out)
}

func TestMergeTransferAttributedToDestination(t *testing.T) {
	rec := movement(domain.MovementBranchTransfer, "X100", "TR-030", day(9), 5)
	rec.SourceBranch = "KILIMANI"

	out := Merge([]domain.MovementRecord{rec}, mergeOpts)
	require.NotNil(t, out["X100"].LastOrder)
	assert.Equal(t, "TR-030", out["X100"].LastOrder.Document)
}

func TestMergeHQInvoiceOnlyForHQCompany(t *testing.T) {
	opts := Options{TargetBranch: "WESTLANDS", Company: "OTHERCO", HQCompany: "NILA"}

	rec := movement(domain.MovementHQInvoice, "X100", "INV-200", day(9), 5)
	rec.Company = "OTHERCO"

	out := Merge([]domain.MovementRecord{rec}, opts)
	activity := out["X100"]
	assert.Nil(t, activity.LastHQInvoice)
	assert.Nil(t, activity.LastOrder)
}

func TestMergeMultipleItems(t *testing.T) {
	records := []domain.MovementRecord{
		movement(domain.MovementPurchaseOrder, "X100", "PO-001", day(1), 10),
		movement(domain.MovementPurchaseOrder, "Y200", "PO-002", day(2), 30),
	}

	out := Merge(records, mergeOpts)
	assert.Len(t, out, 2)
	assert.Equal(t, "PO-001", out["X100"].LastOrder.Document)
	assert.Equal(t, "PO-002", out["Y200"].LastOrder.Document)
}
