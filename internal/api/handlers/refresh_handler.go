package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/pharmastock/backend-go/internal/refresh"
)

type RefreshHandler struct {
	coordinator *refresh.Coordinator
}

func NewRefreshHandler(coordinator *refresh.Coordinator) *RefreshHandler {
	return &RefreshHandler{coordinator: coordinator}
}

// TriggerRefresh starts a refresh cycle in the background and answers
// immediately: 202 when the lock was claimed, 409 when one is already
// running. It never queues.
func (h *RefreshHandler) TriggerRefresh(c *gin.Context) {
	owner := strings.TrimSpace(c.Query("owner"))
	if owner == "" {
		owner = refresh.DefaultOwner()
	}

	err := h.coordinator.Trigger(c.Request.Context(), owner)
	if errors.Is(err, refresh.ErrAlreadyRunning) {
		status, statusErr := h.coordinator.Status(c.Request.Context())
		if statusErr != nil {
			log.Warn().Err(statusErr).Msg("could not read refresh lock status")
		}
		c.JSON(http.StatusConflict, gin.H{
			"accepted":  false,
			"reason":    "already_running",
			"locked_by": status.LockedBy,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": true,
		"owner":    owner,
	})
}

// GetRefreshStatus reports the lock state and the latest run.
func (h *RefreshHandler) GetRefreshStatus(c *gin.Context) {
	status, err := h.coordinator.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	latest, err := h.coordinator.LatestRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"latest_run": latest,
	})
}
