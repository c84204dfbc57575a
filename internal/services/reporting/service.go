// Package reporting aggregates transactions for dashboards: totals per
// status and per import batch.
package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
)

type AggregateStore interface {
	StatusTotals(ctx context.Context, tenantID uuid.UUID, rng repository.DateRange) ([]repository.StatusTotal, error)
	BatchTotals(ctx context.Context, tenantID uuid.UUID, rng repository.DateRange) ([]repository.BatchTotal, error)
}

type Bucket struct {
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type Summary struct {
	ByStatus map[models.TransactionStatus]Bucket `json:"by_status"`
	Total    Bucket                              `json:"total"`
}

type BatchRollup struct {
	ImportBatchID  uuid.UUID       `json:"import_batch_id"`
	TotalCount     int64           `json:"total_count"`
	MatchedCount   int64           `json:"matched_count"`
	UnmatchedCount int64           `json:"unmatched_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ImportedAt     time.Time       `json:"imported_at"`
}

type ReportingService struct {
	store AggregateStore
}

func NewReportingService(store AggregateStore) *ReportingService {
	return &ReportingService{store: store}
}

// Summary returns a bucket for every status, zero-filled, plus the overall
// total. rng may be nil.
func (s *ReportingService) Summary(ctx context.Context, tenantID uuid.UUID, rng *repository.DateRange) (*Summary, error) {
	r, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.StatusTotals(ctx, tenantID, r)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		ByStatus: make(map[models.TransactionStatus]Bucket, len(models.AllStatuses)),
		Total:    Bucket{TotalAmount: decimal.Zero},
	}
	for _, status := range models.AllStatuses {
		summary.ByStatus[status] = Bucket{TotalAmount: decimal.Zero}
	}
	for _, row := range rows {
		bucket := summary.ByStatus[row.Status]
		bucket.Count += row.Count
		bucket.TotalAmount = bucket.TotalAmount.Add(row.Total)
		summary.ByStatus[row.Status] = bucket

		summary.Total.Count += row.Count
		summary.Total.TotalAmount = summary.Total.TotalAmount.Add(row.Total)
	}
	return summary, nil
}

// BatchRollup lists import batches, most recent import first.
func (s *ReportingService) BatchRollup(ctx context.Context, tenantID uuid.UUID, rng *repository.DateRange) ([]BatchRollup, error) {
	r, err := normalizeRange(rng)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.BatchTotals(ctx, tenantID, r)
	if err != nil {
		return nil, err
	}

	out := make([]BatchRollup, 0, len(rows))
	for _, row := range rows {
		out = append(out, BatchRollup{
			ImportBatchID:  row.ImportBatchID,
			TotalCount:     row.TotalCount,
			MatchedCount:   row.MatchedCount,
			UnmatchedCount: row.UnmatchedCount,
			TotalAmount:    row.TotalAmount,
			ImportedAt:     row.ImportedAt.UTC(),
		})
	}
	return out, nil
}

func normalizeRange(rng *repository.DateRange) (repository.DateRange, error) {
	if rng == nil {
		return repository.DateRange{}, nil
	}
	if rng.From != nil && rng.To != nil && rng.From.After(*rng.To) {
		return repository.DateRange{}, errs.NewValidationError("date range start is after its end")
	}
	return *rng, nil
}
