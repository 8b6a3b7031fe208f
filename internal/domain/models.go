// backend-go/internal/domain/models.go
package domain

import "time"

// NoSalesName is the sentinel some analysis feeds write in place of a
// product name when an item has no sales history. It must never be used
// as a display name.
const NoSalesName = "NO SALES"

// Branch identifies a stock-holding location within a company.
type Branch struct {
	Name    string `json:"name" db:"branch"`
	Company string `json:"company" db:"company"`
}

// StockRecord is the live stock row for one item at one branch. There is
// at most one row per (branch, company, item_code) at any time; a refresh
// supersedes rows rather than updating them in place.
type StockRecord struct {
	ID              int64     `json:"id" db:"id"`
	Branch          string    `json:"branch" db:"branch"`
	Company         string    `json:"company" db:"company"`
	ItemCode        string    `json:"item_code" db:"item_code"`
	ItemName        string    `json:"item_name" db:"item_name"`
	EncodedQuantity string    `json:"encoded_quantity" db:"encoded_quantity"`
	PackSize        float64   `json:"pack_size" db:"pack_size"`
	RefreshedAt     time.Time `json:"refreshed_at" db:"refreshed_at"`
}

// AnalysisRecord is slowly-changing reference data per item per branch.
// ConsumptionRate and IdealStock are expressed in packs, the same unit
// the vendor reports stock in; conversion to pieces happens once in the
// snapshot assembler.
type AnalysisRecord struct {
	ID              int64     `json:"id" db:"id"`
	Branch          string    `json:"branch" db:"branch"`
	Company         string    `json:"company" db:"company"`
	ItemCode        string    `json:"item_code" db:"item_code"`
	ItemName        string    `json:"item_name" db:"item_name"`
	ABCClass        string    `json:"abc_class" db:"abc_class"`
	ConsumptionRate float64   `json:"adjusted_consumption_rate" db:"adjusted_consumption_rate"`
	IdealStock      float64   `json:"ideal_stock" db:"ideal_stock"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// MovementKind tags the source document type of a movement record.
type MovementKind string

const (
	MovementPurchaseOrder   MovementKind = "purchase_order"
	MovementBranchTransfer  MovementKind = "branch_transfer"
	MovementHQInvoice       MovementKind = "hq_invoice"
	MovementSupplierInvoice MovementKind = "supplier_invoice"
)

// MovementRecord is one stock-flow document line. Branch is always the
// destination; for transfers SourceBranch carries the sending branch.
// Rows are deduplicated on (branch, document_number, item_code, document_date).
type MovementRecord struct {
	ID             int64        `json:"id" db:"id"`
	Kind           MovementKind `json:"kind" db:"kind"`
	Branch         string       `json:"branch" db:"branch"`
	SourceBranch   string       `json:"source_branch" db:"source_branch"`
	Company        string       `json:"company" db:"company"`
	ItemCode       string       `json:"item_code" db:"item_code"`
	ItemName       string       `json:"item_name" db:"item_name"`
	DocumentDate   time.Time    `json:"document_date" db:"document_date"`
	DocumentNumber string       `json:"document_number" db:"document_number"`
	Quantity       float64      `json:"quantity" db:"quantity"`
}

// MovementSummary is the condensed "most recent activity" view of a
// movement stream, one per item per stream in a snapshot row.
type MovementSummary struct {
	Date     time.Time    `json:"date"`
	Quantity float64      `json:"quantity"`
	Document string       `json:"document"`
	Kind     MovementKind `json:"kind"`
}

// ArrivalRow is one item with recent inbound activity at a branch,
// aggregated across movement kinds.
type ArrivalRow struct {
	ItemCode      string    `json:"item_code" db:"item_code"`
	ItemName      string    `json:"item_name" db:"item_name"`
	LastActivity  time.Time `json:"last_activity" db:"last_activity"`
	Movements     int       `json:"movements" db:"movements"`
	TotalQuantity float64   `json:"total_quantity" db:"total_quantity"`
}

// SnapshotRow is the derived reconciliation view for one item, comparing
// a target branch against a candidate source branch. All stock arithmetic
// fields are in pieces; the encoded forms are carried for display only.
type SnapshotRow struct {
	ItemCode        string  `json:"item_code"`
	ItemName        string  `json:"item_name"`
	ABCClass        string  `json:"abc_class"`
	PackSize        float64 `json:"pack_size"`
	TargetEncoded   string  `json:"target_stock"`
	SourceEncoded   string  `json:"source_stock"`
	TargetPieces    float64 `json:"target_pieces"`
	SourcePieces    float64 `json:"source_pieces"`
	ConsumptionRate float64 `json:"consumption_rate_pieces"`
	IdealStock      float64 `json:"ideal_stock_pieces"`
	StockLevelRatio float64 `json:"stock_level_ratio"`

	LastOrder           *MovementSummary `json:"last_order,omitempty"`
	LastHQInvoice       *MovementSummary `json:"last_hq_invoice,omitempty"`
	LastSupplierInvoice *MovementSummary `json:"last_supplier_invoice,omitempty"`

	Priority PriorityFlag `json:"priority"`
}

// SnapshotFilter narrows a snapshot query.
type SnapshotFilter struct {
	TargetBranch  string `json:"target_branch"`
	SourceBranch  string `json:"source_branch"`
	Company       string `json:"company"`
	SourceCompany string `json:"source_company"`
	PriorityOnly  bool   `json:"priority_only"`
}

// RefreshLock is a named mutual-exclusion token backed by storage so
// every process sharing the database observes the same holder.
type RefreshLock struct {
	Name       string    `json:"name" db:"name"`
	LockedBy   string    `json:"locked_by" db:"locked_by"`
	AcquiredAt time.Time `json:"acquired_at" db:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
}

// RefreshRun is the bookkeeping row for one refresh cycle.
type RefreshRun struct {
	ID              int64      `json:"id" db:"id"`
	Owner           string     `json:"owner" db:"owner"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Status          string     `json:"status" db:"status"`
	BranchesOK      int        `json:"branches_ok" db:"branches_ok"`
	BranchesFailed  int        `json:"branches_failed" db:"branches_failed"`
	MovementsStored int        `json:"movements_stored" db:"movements_stored"`
	Detail          string     `json:"detail" db:"detail"`
}

// RefreshStatus is the externally visible state of the refresh lock.
type RefreshStatus struct {
	Running   bool       `json:"running"`
	LockedBy  string     `json:"locked_by,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RefreshResult summarizes one completed refresh cycle, including which
// branches failed so callers can see partial outcomes.
type RefreshResult struct {
	RunID           int64    `json:"run_id"`
	BranchesOK      []string `json:"branches_ok"`
	BranchesFailed  []string `json:"branches_failed"`
	MovementsStored int      `json:"movements_stored"`
	StockRows       int      `json:"stock_rows"`
	PurgedMovements int64    `json:"purged_movements"`
}
