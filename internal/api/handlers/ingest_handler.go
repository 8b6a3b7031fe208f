package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmastock/backend-go/internal/domain"
	"github.com/pharmastock/backend-go/internal/service"
)

type IngestHandler struct {
	service *service.IngestService
}

func NewIngestHandler(service *service.IngestService) *IngestHandler {
	return &IngestHandler{service: service}
}

type stockBatchRequest struct {
	Branch  string `json:"branch" binding:"required"`
	Company string `json:"company" binding:"required"`
	Items   []struct {
		ItemCode string  `json:"item_code" binding:"required"`
		ItemName string  `json:"item_name"`
		Quantity string  `json:"quantity"`
		PackSize float64 `json:"pack_size"`
	} `json:"items"`
}

// IngestStock replaces a branch's whole stock set with the posted batch.
func (h *IngestHandler) IngestStock(c *gin.Context) {
	var req stockBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := make([]domain.StockRecord, 0, len(req.Items))
	for _, item := range req.Items {
		records = append(records, domain.StockRecord{
			Branch:          req.Branch,
			Company:         req.Company,
			ItemCode:        item.ItemCode,
			ItemName:        item.ItemName,
			EncodedQuantity: item.Quantity,
			PackSize:        item.PackSize,
		})
	}

	n, err := h.service.IngestStock(c.Request.Context(), req.Branch, req.Company, records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": n})
}

type movementBatchRequest struct {
	Items []struct {
		Kind           string  `json:"kind" binding:"required"`
		Branch         string  `json:"branch" binding:"required"`
		SourceBranch   string  `json:"source_branch"`
		Company        string  `json:"company" binding:"required"`
		ItemCode       string  `json:"item_code" binding:"required"`
		ItemName       string  `json:"item_name"`
		DocumentDate   string  `json:"document_date" binding:"required"`
		DocumentNumber string  `json:"document_number" binding:"required"`
		Quantity       float64 `json:"quantity"`
	} `json:"items"`
}

// IngestMovements appends movement documents; duplicates on the natural
// key are absorbed silently.
func (h *IngestHandler) IngestMovements(c *gin.Context) {
	var req movementBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := make([]domain.MovementRecord, 0, len(req.Items))
	for _, item := range req.Items {
		kind, ok := domain.ParseMovementKind(item.Kind)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown movement kind: " + item.Kind})
			return
		}
		date, err := time.Parse("2006-01-02", item.DocumentDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document_date: " + item.DocumentDate})
			return
		}
		records = append(records, domain.MovementRecord{
			Kind:           kind,
			Branch:         item.Branch,
			SourceBranch:   item.SourceBranch,
			Company:        item.Company,
			ItemCode:       item.ItemCode,
			ItemName:       item.ItemName,
			DocumentDate:   date,
			DocumentNumber: item.DocumentNumber,
			Quantity:       item.Quantity,
		})
	}

	n, err := h.service.IngestMovements(c.Request.Context(), records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": n})
}

type analysisBatchRequest struct {
	Branch  string              `json:"branch" binding:"required"`
	Company string              `json:"company" binding:"required"`
	Rows    []map[string]string `json:"rows"`
}

// IngestAnalysis bulk-loads consumption reference data. Column names
// are normalized server-side, so feeds with legacy headers still work.
func (h *IngestHandler) IngestAnalysis(c *gin.Context) {
	var req analysisBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.service.IngestAnalysis(c.Request.Context(), req.Branch, req.Company, req.Rows)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stored": n})
}
