package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/services/reporting"
)

type Reporter interface {
	Summary(ctx context.Context, tenantID uuid.UUID, rng *repository.DateRange) (*reporting.Summary, error)
	BatchRollup(ctx context.Context, tenantID uuid.UUID, rng *repository.DateRange) ([]reporting.BatchRollup, error)
}

type ReportHandler struct {
	service Reporter
}

func NewReportHandler(s Reporter) *ReportHandler {
	return &ReportHandler{service: s}
}

func (h *ReportHandler) Summary(c *gin.Context) {
	rng, ok := dateRange(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), tenantID(c), &rng)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) BatchRollup(c *gin.Context) {
	rng, ok := dateRange(c)
	if !ok {
		return
	}

	rollup, err := h.service.BatchRollup(c.Request.Context(), tenantID(c), &rng)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rollup})
}
