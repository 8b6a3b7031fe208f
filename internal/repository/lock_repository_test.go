package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmastock/backend-go/internal/repository/postgres"
)

func newMockDB(t *testing.T) (*postgres.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return postgres.Wrap(sqlx.NewDb(db, "sqlmock")), mock
}

func TestLockAcquire(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO refresh_lock")).
		WithArgs("global", "worker-1", float64(3600)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("global"))

	ok, err := repo.Acquire(context.Background(), "global", "worker-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockAcquireContention(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLockRepository(db)

	// Held and unexpired: the guarded upsert touches no row.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO refresh_lock")).
		WithArgs("global", "worker-2", float64(3600)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	ok, err := repo.Acquire(context.Background(), "global", "worker-2", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockRelease(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_lock WHERE name = $1 AND locked_by = $2")).
		WithArgs("global", "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Release(context.Background(), "global", "worker-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLockRepository(db)

	acquired := time.Now().Add(-time.Minute)
	expires := time.Now().Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, locked_by, acquired_at, expires_at FROM refresh_lock")).
		WithArgs("global").
		WillReturnRows(sqlmock.NewRows([]string{"name", "locked_by", "acquired_at", "expires_at"}).
			AddRow("global", "worker-1", acquired, expires))

	status, err := repo.Status(context.Background(), "global")
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, "worker-1", status.LockedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStatusExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLockRepository(db)

	acquired := time.Now().Add(-2 * time.Hour)
	expires := time.Now().Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, locked_by, acquired_at, expires_at FROM refresh_lock")).
		WithArgs("global").
		WillReturnRows(sqlmock.NewRows([]string{"name", "locked_by", "acquired_at", "expires_at"}).
			AddRow("global", "worker-1", acquired, expires))

	status, err := repo.Status(context.Background(), "global")
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockStatusUnlocked(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, locked_by, acquired_at, expires_at FROM refresh_lock")).
		WithArgs("global").
		WillReturnRows(sqlmock.NewRows([]string{"name", "locked_by", "acquired_at", "expires_at"}))

	status, err := repo.Status(context.Background(), "global")
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NoError(t, mock.ExpectationsWereMet())
}
