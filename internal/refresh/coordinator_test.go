package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmastock/backend-go/internal/cache"
	"github.com/pharmastock/backend-go/internal/domain"
)

type fakeLocks struct {
	mu       sync.Mutex
	holder   string
	acquires int
	releases int
}

func (l *fakeLocks) Acquire(_ context.Context, _, owner string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if l.holder != "" && l.holder != owner {
		return false, nil
	}
	l.holder = owner

	return true, nil
}

func (l *fakeLocks) Release(_ context.Context, _, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == owner {
		l.holder = ""
		l.releases++
	}

	return nil
}

func (l *fakeLocks) Status(_ context.Context, _ string) (domain.RefreshStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.holder == "" {
		return domain.RefreshStatus{}, nil
	}

	return domain.RefreshStatus{Running: true, LockedBy: l.holder}, nil
}

type fakeRuns struct {
	mu       sync.Mutex
	started  int
	finished []string
}

func (r *fakeRuns) StartRun(_ context.Context, _ string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++

	return int64(r.started), nil
}

func (r *fakeRuns) FinishRun(_ context.Context, _ int64, status string, _, _, _ int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, status)

	return nil
}

func (r *fakeRuns) LatestRun(_ context.Context) (*domain.RefreshRun, error) {
	return nil, nil
}

type fakeStock struct {
	mu       sync.Mutex
	replaced map[string]int
}

func (s *fakeStock) StockByBranch(_ context.Context, _, _ string) ([]domain.StockRecord, error) {
	return nil, nil
}

func (s *fakeStock) ReplaceBranchStock(_ context.Context, branch, _ string, records []domain.StockRecord, _ time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaced == nil {
		s.replaced = make(map[string]int)
	}
	s.replaced[branch] = len(records)

	return len(records), nil
}

func (s *fakeStock) ListBranches(_ context.Context, _ string) ([]domain.Branch, error) {
	return nil, nil
}

type fakeMovements struct {
	mu       sync.Mutex
	known    map[string]struct{}
	upserted []domain.MovementRecord
	purged   bool
	cutoff   time.Time
}

func (m *fakeMovements) MovementsByBranch(_ context.Context, _, _ string) ([]domain.MovementRecord, error) {
	return nil, nil
}

func (m *fakeMovements) UpsertMovements(_ context.Context, records []domain.MovementRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, records...)

	return len(records), nil
}

func (m *fakeMovements) KnownDocuments(_ context.Context, _, _ string, _ domain.MovementKind) (map[string]struct{}, error) {
	return m.known, nil
}

func (m *fakeMovements) RecentArrivals(_ context.Context, _, _ string, _ time.Time) ([]domain.ArrivalRow, error) {
	return nil, nil
}

func (m *fakeMovements) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = true
	m.cutoff = cutoff

	return 7, nil
}

type fakeFetcher struct {
	failBranch string
	stock      map[string][]domain.StockRecord
	movements  map[string][]domain.MovementRecord
}

func (f *fakeFetcher) FetchStock(_ context.Context, branch domain.Branch) ([]domain.StockRecord, error) {
	if branch.Name == f.failBranch {
		return nil, errors.New("vendor timeout")
	}

	return f.stock[branch.Name], nil
}

func (f *fakeFetcher) FetchMovements(_ context.Context, branch domain.Branch, _ time.Time) ([]domain.MovementRecord, error) {
	return f.movements[branch.Name], nil
}

var testBranches = []domain.Branch{
	{Name: "WESTLANDS", Company: "NILA"},
	{Name: "KILIMANI", Company: "NILA"},
}

func newTestCoordinator(locks *fakeLocks, runs *fakeRuns, stock *fakeStock, movements *fakeMovements, fetcher Fetcher) *Coordinator {
	return NewCoordinator(locks, runs, stock, movements, fetcher, cache.NewNoopSnapshotCache(), testBranches, Config{
		LockName:    "global",
		LockTimeout: time.Hour,
		Retention:   30 * 24 * time.Hour,
		Workers:     2,
	})
}

func TestRunRefreshesAllBranches(t *testing.T) {
	locks := &fakeLocks{}
	runs := &fakeRuns{}
	stock := &fakeStock{}
	movements := &fakeMovements{}
	fetcher := &fakeFetcher{
		stock: map[string][]domain.StockRecord{
			"WESTLANDS": {{ItemCode: "X100"}, {ItemCode: "Y200"}},
			"KILIMANI":  {{ItemCode: "X100"}},
		},
		movements: map[string][]domain.MovementRecord{
			"WESTLANDS": {{Kind: domain.MovementPurchaseOrder, DocumentNumber: "PO-001", ItemCode: "X100"}},
		},
	}

	result, err := newTestCoordinator(locks, runs, stock, movements, fetcher).Run(context.Background(), "worker-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"KILIMANI", "WESTLANDS"}, result.BranchesOK)
	assert.Empty(t, result.BranchesFailed)
	assert.Equal(t, 3, result.StockRows)
	assert.Equal(t, 1, result.MovementsStored)
	assert.Equal(t, int64(7), result.PurgedMovements)
	assert.True(t, movements.purged)
	assert.Equal(t, []string{"completed"}, runs.finished)
	assert.Equal(t, 1, locks.releases)
}

func TestRetentionCutsAtDayBoundary(t *testing.T) {
	locks := &fakeLocks{}
	runs := &fakeRuns{}
	movements := &fakeMovements{}
	fetcher := &fakeFetcher{stock: map[string][]domain.StockRecord{"WESTLANDS": {}, "KILIMANI": {}}}

	coord := newTestCoordinator(locks, runs, &fakeStock{}, movements, fetcher)
	coord.now = func() time.Time {
		return time.Date(2026, time.August, 30, 14, 37, 12, 0, time.UTC)
	}

	_, err := coord.Run(context.Background(), "worker-1")
	require.NoError(t, err)

	// document_date is a DATE column, so documents dated exactly on the
	// cutoff day compare as midnight and must survive the purge.
	require.True(t, movements.purged)
	assert.Equal(t, time.Date(2026, time.July, 31, 0, 0, 0, 0, time.UTC), movements.cutoff)
}

func TestRunRejectsWhenLockHeld(t *testing.T) {
	locks := &fakeLocks{holder: "other-owner"}
	runs := &fakeRuns{}

	_, err := newTestCoordinator(locks, runs, &fakeStock{}, &fakeMovements{}, &fakeFetcher{}).Run(context.Background(), "worker-2")
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Zero(t, runs.started)
	// The rejected caller must not release the current holder's lock.
	assert.Zero(t, locks.releases)
}

func TestRunPartialBranchFailure(t *testing.T) {
	locks := &fakeLocks{}
	runs := &fakeRuns{}
	stock := &fakeStock{}
	movements := &fakeMovements{}
	fetcher := &fakeFetcher{
		failBranch: "KILIMANI",
		stock: map[string][]domain.StockRecord{
			"WESTLANDS": {{ItemCode: "X100"}},
		},
	}

	result, err := newTestCoordinator(locks, runs, stock, movements, fetcher).Run(context.Background(), "worker-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"WESTLANDS"}, result.BranchesOK)
	assert.Equal(t, []string{"KILIMANI"}, result.BranchesFailed)
	// The failed branch's previous stock is untouched.
	_, touched := stock.replaced["KILIMANI"]
	assert.False(t, touched)
	assert.Equal(t, []string{"partial"}, runs.finished)
	assert.Equal(t, 1, locks.releases)
}

func TestRunAllBranchesFailedSkipsRetention(t *testing.T) {
	locks := &fakeLocks{}
	runs := &fakeRuns{}
	movements := &fakeMovements{}
	fetcher := &fakeFetcher{failBranch: "WESTLANDS"}
	fetcher.stock = map[string][]domain.StockRecord{}

	coord := NewCoordinator(locks, runs, &fakeStock{}, movements, fetcher, cache.NewNoopSnapshotCache(),
		[]domain.Branch{{Name: "WESTLANDS", Company: "NILA"}}, Config{Workers: 1})

	result, err := coord.Run(context.Background(), "worker-1")
	require.NoError(t, err)

	assert.Empty(t, result.BranchesOK)
	assert.False(t, movements.purged)
	assert.Equal(t, []string{"failed"}, runs.finished)
	// Lock release happens on failure too.
	assert.Equal(t, 1, locks.releases)
}

func TestRunSkipsKnownDocuments(t *testing.T) {
	locks := &fakeLocks{}
	runs := &fakeRuns{}
	movements := &fakeMovements{known: map[string]struct{}{"PO-001": {}}}
	fetcher := &fakeFetcher{
		stock: map[string][]domain.StockRecord{"WESTLANDS": {}, "KILIMANI": {}},
		movements: map[string][]domain.MovementRecord{
			"WESTLANDS": {
				{Kind: domain.MovementPurchaseOrder, DocumentNumber: "PO-001", ItemCode: "X100"},
				{Kind: domain.MovementPurchaseOrder, DocumentNumber: "PO-002", ItemCode: "X100"},
			},
		},
	}

	result, err := newTestCoordinator(locks, runs, &fakeStock{}, movements, fetcher).Run(context.Background(), "worker-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.MovementsStored)
	require.Len(t, movements.upserted, 1)
	assert.Equal(t, "PO-002", movements.upserted[0].DocumentNumber)
}

func TestStatusReflectsLock(t *testing.T) {
	locks := &fakeLocks{holder: "worker-9"}
	coord := newTestCoordinator(locks, &fakeRuns{}, &fakeStock{}, &fakeMovements{}, &fakeFetcher{})

	status, err := coord.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, "worker-9", status.LockedBy)
}
