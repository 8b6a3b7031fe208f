package domain

import "strings"

// PriorityFlag is the procurement urgency tag on a snapshot row.
type PriorityFlag string

const (
	PriorityLow           PriorityFlag = "LOW"
	PriorityRecentOrder   PriorityFlag = "RECENT_ORDER"
	PriorityRecentInvoice PriorityFlag = "RECENT_INVOICE"
	PriorityNormal        PriorityFlag = "NORMAL"
)

// priorityRank orders flags for priority-view sorting, most urgent first.
var priorityRank = map[PriorityFlag]int{
	PriorityLow:           0,
	PriorityRecentOrder:   1,
	PriorityRecentInvoice: 2,
	PriorityNormal:        3,
}

// Rank returns the sort rank of a flag; unknown flags sort last.
func (p PriorityFlag) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}

	return len(priorityRank)
}

var priorityFlags = map[string]PriorityFlag{
	"low":            PriorityLow,
	"recent_order":   PriorityRecentOrder,
	"recent_invoice": PriorityRecentInvoice,
	"normal":         PriorityNormal,
}

// ParsePriority returns the flag for a given label (case-insensitive).
func ParsePriority(label string) (PriorityFlag, bool) {
	flag, ok := priorityFlags[strings.ToLower(label)]

	return flag, ok
}

var movementKinds = map[string]MovementKind{
	"purchase_order":   MovementPurchaseOrder,
	"branch_transfer":  MovementBranchTransfer,
	"hq_invoice":       MovementHQInvoice,
	"supplier_invoice": MovementSupplierInvoice,
}

// ParseMovementKind returns the kind for a given label (case-insensitive).
func ParseMovementKind(label string) (MovementKind, bool) {
	kind, ok := movementKinds[strings.ToLower(label)]

	return kind, ok
}
