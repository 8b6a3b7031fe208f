// backend-go/cmd/refresh/commands.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/cli/v2"

	"github.com/pharmastock/backend-go/internal/config"
	"github.com/pharmastock/backend-go/internal/refresh"
	"github.com/pharmastock/backend-go/internal/repository"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
	"github.com/pharmastock/backend-go/pkg/logger"
)

func runOnce(c *cli.Context) error {
	cfg := config.Load()
	coordinator := buildCoordinator(dbFrom(c), cfg)

	result, err := coordinator.Run(c.Context, c.String("owner"))
	if errors.Is(err, refresh.ErrAlreadyRunning) {
		return cli.Exit("refresh already running", 1)
	}
	if err != nil {
		return err
	}

	fmt.Printf("run %d: %d stock rows, %d movements stored, %d movements purged\n",
		result.RunID, result.StockRows, result.MovementsStored, result.PurgedMovements)
	if len(result.BranchesFailed) > 0 {
		fmt.Printf("failed branches: %v\n", result.BranchesFailed)
		return cli.Exit("refresh finished with branch failures", 2)
	}

	return nil
}

func runSchedule(c *cli.Context) error {
	cfg := config.Load()
	coordinator := buildCoordinator(dbFrom(c), cfg)

	interval := time.Duration(cfg.Refresh.IntervalMinutes) * time.Minute
	if c.Int("interval-minutes") > 0 {
		interval = time.Duration(c.Int("interval-minutes")) * time.Minute
	}
	if interval <= 0 {
		interval = time.Hour
	}

	srv := statusServer(coordinator, cfg.Refresh.StatusPort)
	go func() {
		logger.Log.Info().Str("port", cfg.Refresh.StatusPort).Msg("status endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error().Err(err).Msg("status endpoint failed")
		}
	}()

	owner := refresh.DefaultOwner()
	cycle := func() {
		_, err := coordinator.Run(c.Context, owner)
		if errors.Is(err, refresh.ErrAlreadyRunning) {
			logger.Log.Info().Msg("skipping cycle, refresh already running")
			return
		}
		if err != nil {
			logger.Log.Error().Err(err).Msg("scheduled refresh failed")
		}
	}

	logger.Log.Info().Dur("interval", interval).Msg("scheduler started")
	cycle()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			cycle()
		case <-quit:
			logger.Log.Info().Msg("scheduler stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

func runCleanup(c *cli.Context) error {
	cfg := config.Load()

	days := cfg.Refresh.RetentionDays
	if c.Int("days") > 0 {
		days = c.Int("days")
	}

	movements := repository.NewMovementRepository(postgres.Wrap(dbFrom(c)))
	// document_date is a DATE column; cut on the day boundary so
	// documents dated exactly at the cutoff day are retained.
	cutoff := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days)
	purged, err := movements.PurgeOlderThan(c.Context, cutoff)
	if err != nil {
		return err
	}

	fmt.Printf("purged %d movements older than %s\n", purged, cutoff.Format("2006-01-02"))
	return nil
}

func statusServer(coordinator *refresh.Coordinator, port string) *http.Server {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status, err := coordinator.Status(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		latest, err := coordinator.LatestRun(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     status,
			"latest_run": latest,
		})
	}).Methods(http.MethodGet)

	return &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
}
