package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmastock/backend-go/internal/domain"
)

func TestUpsertMovementsAbsorbsDuplicates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMovementRepository(db)

	date := time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC)
	records := []domain.MovementRecord{
		{Kind: domain.MovementPurchaseOrder, Branch: "WESTLANDS", Company: "NILA", ItemCode: "X100", DocumentDate: date, DocumentNumber: "PO-001", Quantity: 10},
		{Kind: domain.MovementPurchaseOrder, Branch: "WESTLANDS", Company: "NILA", ItemCode: "X100", DocumentDate: date, DocumentNumber: "PO-001", Quantity: 10},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movements")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// The duplicate hits ON CONFLICT DO NOTHING and touches no row.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO movements")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.UpsertMovements(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKnownDocuments(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMovementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT document_number")).
		WithArgs("WESTLANDS", "NILA", domain.MovementPurchaseOrder).
		WillReturnRows(sqlmock.NewRows([]string{"document_number"}).
			AddRow("PO-001").
			AddRow("PO-002"))

	known, err := repo.KnownDocuments(context.Background(), "WESTLANDS", "NILA", domain.MovementPurchaseOrder)
	require.NoError(t, err)
	assert.Len(t, known, 2)
	_, ok := known["PO-001"]
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentArrivals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMovementRepository(db)

	since := time.Date(2026, time.August, 23, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY item_code")).
		WithArgs("WESTLANDS", "NILA", since).
		WillReturnRows(sqlmock.NewRows([]string{"item_code", "item_name", "last_activity", "movements", "total_quantity"}).
			AddRow("X100", "PARACETAMOL", last, 3, 120.0).
			AddRow("Y200", "AMOXICILLIN", since, 1, 40.0))

	rows, err := repo.RecentArrivals(context.Background(), "WESTLANDS", "NILA", since)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "X100", rows[0].ItemCode)
	assert.Equal(t, 3, rows[0].Movements)
	assert.Equal(t, last, rows[0].LastActivity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeOlderThanCutoff(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMovementRepository(db)

	cutoff := time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC)
	// Strict less-than: a document dated exactly at the cutoff survives.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM movements WHERE document_date < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	purged, err := repo.PurgeOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), purged)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementsByBranch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMovementRepository(db)

	date := time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM movements")).
		WithArgs("WESTLANDS", "NILA").
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "branch", "source_branch", "company", "item_code", "item_name", "document_date", "document_number", "quantity"}).
			AddRow(1, "purchase_order", "WESTLANDS", "", "NILA", "X100", "PARACETAMOL", date, "PO-001", 10.0))

	records, err := repo.MovementsByBranch(context.Background(), "WESTLANDS", "NILA")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.MovementPurchaseOrder, records[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}
