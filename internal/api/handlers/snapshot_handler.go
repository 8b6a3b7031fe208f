package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/service"
)

type SnapshotHandler struct {
	service *service.SnapshotService
}

func NewSnapshotHandler(service *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{service: service}
}

func parseSnapshotFilter(c *gin.Context) (domain.SnapshotFilter, bool) {
	filter := domain.SnapshotFilter{
		TargetBranch:  strings.TrimSpace(c.Query("target_branch")),
		SourceBranch:  strings.TrimSpace(c.Query("source_branch")),
		Company:       strings.TrimSpace(c.Query("company")),
		SourceCompany: strings.TrimSpace(c.Query("source_company")),
	}

	if filter.TargetBranch == "" || filter.Company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_branch and company are required"})
		return filter, false
	}

	return filter, true
}

// GetSnapshot returns the full reconciliation view for a branch pair.
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	filter, ok := parseSnapshotFilter(c)
	if !ok {
		return
	}

	rows, err := h.service.GetSnapshot(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": rows,
		"count": len(rows),
	})
}

// GetPriorityItems returns only items needing procurement attention
// that the source branch can actually supply.
func (h *SnapshotHandler) GetPriorityItems(c *gin.Context) {
	filter, ok := parseSnapshotFilter(c)
	if !ok {
		return
	}
	if filter.SourceBranch == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_branch is required for priority view"})
		return
	}

	rows, err := h.service.GetPriorityItems(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": rows,
		"count": len(rows),
	})
}

// ExportSnapshot streams the snapshot as a CSV download and archives a
// copy when object storage is configured.
func (h *SnapshotHandler) ExportSnapshot(c *gin.Context) {
	filter, ok := parseSnapshotFilter(c)
	if !ok {
		return
	}

	key, data, err := h.service.ExportSnapshot(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filter.TargetBranch+`-snapshot.csv"`)
	if key != "" {
		c.Header("X-Archive-Key", key)
	}
	c.Data(http.StatusOK, "text/csv", data)
}

// GetArrivals lists items with recent inbound activity at one branch.
func (h *SnapshotHandler) GetArrivals(c *gin.Context) {
	branch := strings.TrimSpace(c.Query("branch"))
	company := strings.TrimSpace(c.Query("company"))
	if branch == "" || company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "branch and company are required"})
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	rows, err := h.service.GetArrivals(c.Request.Context(), branch, company, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": rows,
		"count": len(rows),
	})
}

// GetBranches lists branch/company pairs with live stock, optionally
// filtered by company.
func (h *SnapshotHandler) GetBranches(c *gin.Context) {
	branches, err := h.service.ListBranches(c.Request.Context(), strings.TrimSpace(c.Query("company")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"branches": branches})
}
