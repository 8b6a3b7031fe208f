// backend-go/internal/refresh/coordinator.go

// Package refresh coordinates non-overlapping stock refresh cycles:
// claim the storage-backed lock, fan out per-branch fetches, commit
// stock insert-before-delete, enforce movement retention, release the
// lock no matter what happened.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pharmastock/backend-go/internal/cache"
	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/repository"
	"github.com/pharmastock/backend-go/pkg/logger"
)

// ErrAlreadyRunning signals that another owner holds the refresh lock.
// Callers surface it as "already running" instead of queueing.
var ErrAlreadyRunning = errors.New("refresh already running")

// Fetcher produces raw records for one branch. Implementations wrap the
// vendor API; tests substitute fakes.
type Fetcher interface {
	FetchStock(ctx context.Context, branch domain.Branch) ([]domain.StockRecord, error)
	FetchMovements(ctx context.Context, branch domain.Branch, since time.Time) ([]domain.MovementRecord, error)
}

// Config carries the coordinator's operational policy.
type Config struct {
	LockName    string
	LockTimeout time.Duration
	Retention   time.Duration
	Workers     int
}

type Coordinator struct {
	locks     repository.LockRepository
	runs      repository.RunRepository
	stock     repository.StockRepository
	movements repository.MovementRepository
	fetcher   Fetcher
	cache     cache.SnapshotCache
	branches  []domain.Branch
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

func NewCoordinator(
	locks repository.LockRepository,
	runs repository.RunRepository,
	stock repository.StockRepository,
	movements repository.MovementRepository,
	fetcher Fetcher,
	snapshotCache cache.SnapshotCache,
	branches []domain.Branch,
	cfg Config,
) *Coordinator {
	if cfg.LockName == "" {
		cfg.LockName = "global"
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	return &Coordinator{
		locks:     locks,
		runs:      runs,
		stock:     stock,
		movements: movements,
		fetcher:   fetcher,
		cache:     snapshotCache,
		branches:  branches,
		cfg:       cfg,
		log:       logger.Component("refresh"),
		now:       time.Now,
	}
}

// DefaultOwner identifies this process as a lock owner.
func DefaultOwner() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

// Run executes one full refresh cycle. It returns ErrAlreadyRunning
// without waiting when another unexpired owner holds the lock. Branch
// failures are partial: the failed branch keeps its previous stock and
// the rest of the cycle proceeds.
func (c *Coordinator) Run(ctx context.Context, owner string) (*domain.RefreshResult, error) {
	if owner == "" {
		owner = DefaultOwner()
	}

	acquired, err := c.locks.Acquire(ctx, c.cfg.LockName, owner, c.cfg.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not acquire refresh lock: %w", err)
	}
	if !acquired {
		return nil, ErrAlreadyRunning
	}

	return c.runLocked(ctx, owner)
}

// Trigger claims the lock synchronously, so concurrent triggers get
// exactly one acceptance, then runs the cycle in the background.
func (c *Coordinator) Trigger(ctx context.Context, owner string) error {
	if owner == "" {
		owner = DefaultOwner()
	}

	acquired, err := c.locks.Acquire(ctx, c.cfg.LockName, owner, c.cfg.LockTimeout)
	if err != nil {
		return fmt.Errorf("could not acquire refresh lock: %w", err)
	}
	if !acquired {
		return ErrAlreadyRunning
	}

	go func() {
		if _, err := c.runLocked(context.Background(), owner); err != nil {
			c.log.Error().Err(err).Str("owner", owner).Msg("triggered refresh failed")
		}
	}()

	return nil
}

// runLocked is the cycle body; the caller has already claimed the lock
// for owner, and the lock is released here regardless of outcome.
func (c *Coordinator) runLocked(ctx context.Context, owner string) (*domain.RefreshResult, error) {
	defer func() {
		// Release must survive caller cancellation.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.locks.Release(releaseCtx, c.cfg.LockName, owner); err != nil {
			c.log.Error().Err(err).Msg("could not release refresh lock")
		}
	}()

	runID, err := c.runs.StartRun(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("could not record refresh run: %w", err)
	}

	started := c.now()
	since := started.Add(-c.cfg.Retention)

	var (
		mu        sync.Mutex
		ok        []string
		failed    []string
		stockRows int
		inserted  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for _, branch := range c.branches {
		branch := branch
		g.Go(func() error {
			rows, moved, err := c.refreshBranch(gctx, branch, since)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.Error().Err(err).Str("branch", branch.Name).Msg("branch refresh failed")
				failed = append(failed, branch.Name)
				return nil
			}
			ok = append(ok, branch.Name)
			stockRows += rows
			inserted += moved

			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(ok)
	sort.Strings(failed)

	result := &domain.RefreshResult{
		RunID:           runID,
		BranchesOK:      ok,
		BranchesFailed:  failed,
		MovementsStored: inserted,
		StockRows:       stockRows,
	}

	// Retention runs only after at least one branch committed, so a
	// completely failed cycle never shrinks the movement history.
	if len(ok) > 0 {
		cutoff := dayStart(started.Add(-c.cfg.Retention))
		purged, err := c.movements.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			c.log.Error().Err(err).Msg("movement retention pass failed")
		} else {
			result.PurgedMovements = purged
		}

		if err := c.cache.InvalidateAll(ctx); err != nil {
			c.log.Warn().Err(err).Msg("snapshot cache invalidation failed")
		}
	}

	status := runStatus(len(ok), len(failed))
	detail := ""
	if len(failed) > 0 {
		detail = fmt.Sprintf("failed branches: %v", failed)
	}
	if err := c.runs.FinishRun(ctx, runID, status, len(ok), len(failed), inserted, detail); err != nil {
		c.log.Error().Err(err).Int64("run_id", runID).Msg("could not finish refresh run")
	}

	c.log.Info().
		Int64("run_id", runID).
		Str("status", status).
		Int("branches_ok", len(ok)).
		Int("branches_failed", len(failed)).
		Int("stock_rows", stockRows).
		Int("movements_stored", inserted).
		Dur("took", c.now().Sub(started)).
		Msg("refresh cycle finished")

	return result, nil
}

// refreshBranch fetches and commits one branch. The stock replace only
// runs after the whole fetch succeeded, so a mid-fetch failure leaves
// the branch's previous stock intact.
func (c *Coordinator) refreshBranch(ctx context.Context, branch domain.Branch, since time.Time) (int, int, error) {
	stockRecords, err := c.fetcher.FetchStock(ctx, branch)
	if err != nil {
		return 0, 0, fmt.Errorf("stock fetch: %w", err)
	}

	movementRecords, err := c.fetcher.FetchMovements(ctx, branch, since)
	if err != nil {
		return 0, 0, fmt.Errorf("movement fetch: %w", err)
	}

	fresh, err := c.dropKnownDocuments(ctx, branch, movementRecords)
	if err != nil {
		return 0, 0, err
	}

	inserted, err := c.movements.UpsertMovements(ctx, fresh)
	if err != nil {
		return 0, inserted, fmt.Errorf("movement store: %w", err)
	}

	rows, err := c.stock.ReplaceBranchStock(ctx, branch.Name, branch.Company, stockRecords, c.now())
	if err != nil {
		return 0, inserted, fmt.Errorf("stock commit: %w", err)
	}

	return rows, inserted, nil
}

// dropKnownDocuments trims documents already stored for the branch. The
// movement upsert would absorb them anyway; skipping them keeps bulk
// refreshes from rewriting the same rows every hour.
func (c *Coordinator) dropKnownDocuments(ctx context.Context, branch domain.Branch, records []domain.MovementRecord) ([]domain.MovementRecord, error) {
	kinds := make(map[domain.MovementKind]struct{})
	for i := range records {
		kinds[records[i].Kind] = struct{}{}
	}

	known := make(map[domain.MovementKind]map[string]struct{}, len(kinds))
	for kind := range kinds {
		docs, err := c.movements.KnownDocuments(ctx, branch.Name, branch.Company, kind)
		if err != nil {
			return nil, fmt.Errorf("known documents: %w", err)
		}
		known[kind] = docs
	}

	fresh := records[:0]
	for i := range records {
		rec := records[i]
		if _, dup := known[rec.Kind][rec.DocumentNumber]; dup {
			continue
		}
		fresh = append(fresh, rec)
	}

	return fresh, nil
}

// dayStart truncates to the UTC day boundary. document_date is a DATE
// column and compares as midnight, so a time-of-day cutoff would purge
// documents dated exactly on the cutoff day; those must survive.
func dayStart(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Status reports the lock's externally visible state.
func (c *Coordinator) Status(ctx context.Context) (domain.RefreshStatus, error) {
	return c.locks.Status(ctx, c.cfg.LockName)
}

// LatestRun exposes the most recent run's bookkeeping row.
func (c *Coordinator) LatestRun(ctx context.Context) (*domain.RefreshRun, error) {
	return c.runs.LatestRun(ctx)
}

func runStatus(ok, failed int) string {
	switch {
	case failed == 0:
		return "completed"
	case ok == 0:
		return "failed"
	default:
		return "partial"
	}
}
