// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pharmastock/backend-go/internal/api/handlers"
	"github.com/pharmastock/backend-go/internal/api/middleware"
	"github.com/pharmastock/backend-go/internal/refresh"
	"github.com/pharmastock/backend-go/internal/service"
)

type Services struct {
	SnapshotService *service.SnapshotService
	IngestService   *service.IngestService
	Coordinator     *refresh.Coordinator
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Archive-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.SnapshotService != nil {
			snapshotHandler := handlers.NewSnapshotHandler(services.SnapshotService)
			stockGroup := apiGroup.Group("/stock")
			{
				stockGroup.GET("/snapshot", snapshotHandler.GetSnapshot)
				stockGroup.GET("/priority", snapshotHandler.GetPriorityItems)
				stockGroup.GET("/arrivals", snapshotHandler.GetArrivals)
				stockGroup.POST("/export", snapshotHandler.ExportSnapshot)
			}
			apiGroup.GET("/branches", snapshotHandler.GetBranches)
		}

		if services.Coordinator != nil {
			refreshHandler := handlers.NewRefreshHandler(services.Coordinator)
			refreshGroup := apiGroup.Group("/refresh")
			{
				refreshGroup.POST("", refreshHandler.TriggerRefresh)
				refreshGroup.GET("/status", refreshHandler.GetRefreshStatus)
			}
		}

		if services.IngestService != nil {
			ingestHandler := handlers.NewIngestHandler(services.IngestService)
			ingestGroup := apiGroup.Group("/ingest")
			{
				ingestGroup.POST("/stock", ingestHandler.IngestStock)
				ingestGroup.POST("/movements", ingestHandler.IngestMovements)
				ingestGroup.POST("/analysis", ingestHandler.IngestAnalysis)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
