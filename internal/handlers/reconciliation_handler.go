package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/parser"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/internal/services/reconciliation"
)

const (
	dateLayout   = "2006-01-02"
	maxPageLimit = 200
)

// Reconciler is implemented by *reconciliation.ReconciliationService.
type Reconciler interface {
	Import(ctx context.Context, req reconciliation.ImportRequest) (*reconciliation.ImportResult, error)
	AutoMatch(ctx context.Context, req matching.AutoMatchRequest) (*matching.AutoMatchResult, error)
	ManualMatch(ctx context.Context, req reconciliation.ManualMatchRequest) (*models.BankTransaction, error)
	Unmatch(ctx context.Context, tenantID, txID uuid.UUID) (*models.BankTransaction, error)
	Ignore(ctx context.Context, tenantID, txID uuid.UUID, actingUserID string) (*models.BankTransaction, error)
	FindBestMatch(ctx context.Context, tenantID, txID uuid.UUID) (*matching.Candidate, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID, filter repository.TransactionFilter) (*reconciliation.TransactionPage, error)
	GetTransaction(ctx context.Context, tenantID, txID uuid.UUID) (*models.BankTransaction, error)
	DeleteTransaction(ctx context.Context, tenantID, txID uuid.UUID) error
	DeleteBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error)
	ListImportBatches(ctx context.Context, tenantID uuid.UUID) ([]models.ImportBatch, error)
	SearchBookings(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]models.Booking, error)
}

type ReconciliationHandler struct {
	service Reconciler
}

func NewReconciliationHandler(s Reconciler) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// ImportStatement accepts a multipart upload in the "file" field.
func (h *ReconciliationHandler) ImportStatement(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "file required")
		return
	}
	defer file.Close()

	autoMatch, _ := strconv.ParseBool(c.DefaultPostForm("auto_match", c.Query("auto_match")))

	result, err := h.service.Import(c.Request.Context(), reconciliation.ImportRequest{
		TenantID:    tenantID(c),
		UploadedBy:  userID(c),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Format:      parser.Format(c.PostForm("format")),
		Body:        file,
		AutoMatch:   autoMatch,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	var payload struct {
		BatchID  *uuid.UUID `json:"batch_id"`
		MinScore *int       `json:"min_score"`
	}
	// An empty body means "all unmatched transactions, default threshold".
	if err := c.ShouldBindJSON(&payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "invalid_input", "invalid payload")
		return
	}

	result, err := h.service.AutoMatch(c.Request.Context(), matching.AutoMatchRequest{
		TenantID: tenantID(c),
		BatchID:  payload.BatchID,
		MinScore: payload.MinScore,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	filter := repository.TransactionFilter{
		Status: models.TransactionStatus(c.Query("status")),
		Search: c.Query("search"),
		Cursor: c.Query("cursor"),
		Limit:  50,
	}

	if raw := c.Query("batch_id"); raw != "" {
		batchID, err := uuid.Parse(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_input", "invalid batch ID")
			return
		}
		filter.BatchID = &batchID
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxPageLimit {
			writeError(c, http.StatusBadRequest, "invalid_input", "limit must be between 1 and 200")
			return
		}
		filter.Limit = limit
	}
	if filter.Cursor != "" {
		if _, err := uuid.Parse(filter.Cursor); err != nil {
			writeError(c, http.StatusBadRequest, "invalid_input", "invalid cursor")
			return
		}
	}

	rng, ok := dateRange(c)
	if !ok {
		return
	}
	filter.Range = rng

	page, err := h.service.ListTransactions(c.Request.Context(), tenantID(c), filter)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *ReconciliationHandler) GetTransaction(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	tx, err := h.service.GetTransaction(c.Request.Context(), tenantID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (h *ReconciliationHandler) BestMatch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	candidate, err := h.service.FindBestMatch(c.Request.Context(), tenantID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidate": candidate})
}

func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	var payload struct {
		BookingID string              `json:"booking_id"`
		Score     *int                `json:"score"`
		Method    *models.MatchMethod `json:"method"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "invalid payload")
		return
	}

	bookingID, err := uuid.Parse(payload.BookingID)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", "invalid booking ID")
		return
	}

	tx, err := h.service.ManualMatch(c.Request.Context(), reconciliation.ManualMatchRequest{
		TenantID:      tenantID(c),
		TransactionID: id,
		BookingID:     bookingID,
		ActingUserID:  userID(c),
		Score:         payload.Score,
		Method:        payload.Method,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction manually matched", "transaction": tx})
}

func (h *ReconciliationHandler) Unmatch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	tx, err := h.service.Unmatch(c.Request.Context(), tenantID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction unmatched", "transaction": tx})
}

func (h *ReconciliationHandler) Ignore(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	tx, err := h.service.Ignore(c.Request.Context(), tenantID(c), id, userID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction ignored", "transaction": tx})
}

func (h *ReconciliationHandler) DeleteTransaction(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid transaction ID")
	if !ok {
		return
	}

	if err := h.service.DeleteTransaction(c.Request.Context(), tenantID(c), id); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ReconciliationHandler) DeleteBatch(c *gin.Context) {
	batchID, ok := pathID(c, "batchId", "invalid batch ID")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteBatch(c.Request.Context(), tenantID(c), batchID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "import batch deleted", "transactions_deleted": deleted})
}

func (h *ReconciliationHandler) ListBatches(c *gin.Context) {
	batches, err := h.service.ListImportBatches(c.Request.Context(), tenantID(c))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": batches})
}

func (h *ReconciliationHandler) SearchBookings(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPageLimit {
			writeError(c, http.StatusBadRequest, "invalid_input", "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	bookings, err := h.service.SearchBookings(c.Request.Context(), tenantID(c), c.Query("q"), limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": bookings})
}

func pathID(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid_input", message)
		return uuid.Nil, false
	}
	return id, true
}

// dateRange reads the optional from/to query parameters. It writes the error
// response itself and returns false when either is malformed.
func dateRange(c *gin.Context) (repository.DateRange, bool) {
	var rng repository.DateRange
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"from", &rng.From},
		{"to", &rng.To},
	} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_input", "invalid "+p.name+" date, expected YYYY-MM-DD")
			return repository.DateRange{}, false
		}
		*p.dst = &t
	}
	return rng, true
}
