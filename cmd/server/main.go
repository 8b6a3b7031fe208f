// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmastock/backend-go/internal/api"
	"github.com/pharmastock/backend-go/internal/cache"
	"github.com/pharmastock/backend-go/internal/config"
	"github.com/pharmastock/backend-go/internal/refresh"
	"github.com/pharmastock/backend-go/internal/repository"
	"github.com/pharmastock/backend-go/internal/repository/postgres"
	"github.com/pharmastock/backend-go/internal/service"
	"github.com/pharmastock/backend-go/internal/snapshot"
	"github.com/pharmastock/backend-go/internal/storage"
	"github.com/pharmastock/backend-go/internal/vendor"
	"github.com/pharmastock/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		logger.Log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	cancel()

	stockRepo := repository.NewStockRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	lockRepo := repository.NewLockRepository(db)
	runRepo := repository.NewRunRepository(db)

	snapshotCache, err := cache.NewSnapshotCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Snapshot cache unavailable, continuing without it")
		snapshotCache = cache.NewNoopSnapshotCache()
	}

	assembler := snapshot.NewAssembler(
		stockRepo, analysisRepo, movementRepo,
		cfg.Stock.HQCompany,
		snapshot.ThresholdsFromConfig(cfg.Stock),
	)

	snapshotService := service.NewSnapshotService(assembler, stockRepo, movementRepo, snapshotCache)
	if cfg.Archive.Enabled {
		archive, err := storage.NewMinioClient(cfg.Archive)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Snapshot archive unavailable, exports will not be archived")
		} else {
			snapshotService = snapshotService.WithArchive(archive, cfg.Archive.Prefix)
		}
	}

	ingestService := service.NewIngestService(stockRepo, movementRepo, analysisRepo)

	fetcher := vendor.NewClient(cfg.Vendor)
	coordinator := refresh.NewCoordinator(
		lockRepo, runRepo, stockRepo, movementRepo,
		fetcher, snapshotCache,
		vendor.ParseBranches(cfg.Vendor.Branches),
		refresh.Config{
			LockName:    cfg.Refresh.LockName,
			LockTimeout: time.Duration(cfg.Refresh.LockTimeoutSeconds) * time.Second,
			Retention:   time.Duration(cfg.Refresh.RetentionDays) * 24 * time.Hour,
			Workers:     cfg.Refresh.WorkerCount,
		},
	)

	router := api.NewRouter(&api.Services{
		SnapshotService: snapshotService,
		IngestService:   ingestService,
		Coordinator:     coordinator,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
