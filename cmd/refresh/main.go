// backend-go/cmd/refresh/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pharmastock/backend-go/internal/cache"
	"github.com/pharmastock/backend-go/internal/config"
	"github.com/pharmastock/backend-go/internal/refresh"
	"github.com/pharmastock/backend-go/internal/repository"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
	"github.com/pharmastock/backend-go/internal/vendor"
	"github.com/pharmastock/backend-go/pkg/logger"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	dbURL := c.String("db-url")
	if dbURL == "" {
		cfg := config.Load().Database
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode)
	}

	db, err := sqlx.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sqlx.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *sqlx.DB {
	db, _ := c.Context.Value(dbKey).(*sqlx.DB)
	return db
}

func buildCoordinator(db *sqlx.DB, cfg *config.Config) *refresh.Coordinator {
	snapshotCache, err := cache.NewSnapshotCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("snapshot cache unavailable, continuing without it")
		snapshotCache = cache.NewNoopSnapshotCache()
	}

	pool := postgres.Wrap(db)

	return refresh.NewCoordinator(
		repository.NewLockRepository(pool),
		repository.NewRunRepository(pool),
		repository.NewStockRepository(pool),
		repository.NewMovementRepository(pool),
		vendor.NewClient(cfg.Vendor),
		snapshotCache,
		vendor.ParseBranches(cfg.Vendor.Branches),
		refresh.Config{
			LockName:    cfg.Refresh.LockName,
			LockTimeout: time.Duration(cfg.Refresh.LockTimeoutSeconds) * time.Second,
			Retention:   time.Duration(cfg.Refresh.RetentionDays) * 24 * time.Hour,
			Workers:     cfg.Refresh.WorkerCount,
		},
	)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "refresh",
		Usage: "Run and schedule stock refresh cycles",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run a single refresh cycle and exit",
				Before: initDB,
				After:  closeDB,
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Lock owner identity (defaults to hostname-pid)",
					},
				},
				Action: runOnce,
			},
			{
				Name:   "schedule",
				Usage:  "Run refresh cycles on an interval with a status endpoint",
				Before: initDB,
				After:  closeDB,
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{
						Name:  "interval-minutes",
						Usage: "Minutes between refresh cycles (overrides config)",
					},
				},
				Action: runSchedule,
			},
			{
				Name:   "cleanup",
				Usage:  "Run only the movement retention pass",
				Before: initDB,
				After:  closeDB,
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.IntFlag{
						Name:  "days",
						Usage: "Retention window in days (overrides config)",
					},
				},
				Action: runCleanup,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
