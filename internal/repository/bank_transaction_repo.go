package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
)

const insertBatchSize = 500

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

// CreateMany inserts all transactions of one import in a single database
// transaction, so an import is either fully stored or not at all.
func (r *BankTransactionRepository) CreateMany(ctx context.Context, txs []models.BankTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return db.CreateInBatches(&txs, insertBatchSize).Error
	})
	return errors.Wrap(err, "insert bank transactions")
}

func (r *BankTransactionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFoundError("transaction not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get bank transaction")
	}
	return &tx, nil
}

// ListUnmatched returns unmatched transactions of a tenant, optionally
// limited to one import batch, oldest first.
func (r *BankTransactionRepository) ListUnmatched(ctx context.Context, tenantID uuid.UUID, batchID *uuid.UUID) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, models.StatusUnmatched)
	if batchID != nil {
		query = query.Where("import_batch_id = ?", *batchID)
	}
	err := query.Order("transaction_date ASC, id ASC").Find(&txs).Error
	return txs, errors.Wrap(err, "list unmatched transactions")
}

// ApplyMatchState writes every match column in one statement. When
// expected is set the row is only updated if it still has that status. A
// NotFoundError is returned when no row was updated.
func (r *BankTransactionRepository) ApplyMatchState(
	ctx context.Context,
	tenantID, id uuid.UUID,
	expected *models.TransactionStatus,
	state models.MatchState,
) error {
	query := r.db.WithContext(ctx).
		Model(&models.BankTransaction{}).
		Where("tenant_id = ? AND id = ?", tenantID, id)
	if expected != nil {
		query = query.Where("status = ?", *expected)
	}

	result := query.Updates(map[string]interface{}{
		"status":             state.Status,
		"matched_booking_id": state.MatchedBookingID,
		"match_score":        state.MatchScore,
		"match_method":       state.MatchMethod,
		"matched_by":         state.MatchedBy,
		"matched_at":         state.MatchedAt,
	})
	if result.Error != nil {
		return errors.Wrap(result.Error, "update match state")
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFoundError("transaction not found or no longer in expected status")
	}
	return nil
}

func (r *BankTransactionRepository) List(
	ctx context.Context,
	tenantID uuid.UUID,
	filter TransactionFilter,
) ([]models.BankTransaction, string, bool, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var txs []models.BankTransaction
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Limit(limit + 1)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BatchID != nil {
		query = query.Where("import_batch_id = ?", *filter.BatchID)
	}
	query = applyDateRange(query, filter.Range)
	if filter.Cursor != "" {
		query = query.Where("id > ?", filter.Cursor)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(description)"+likeClause, containsPattern(filter.Search))
	}

	if err := query.Find(&txs).Error; err != nil {
		return nil, "", false, errors.Wrap(err, "list transactions")
	}

	hasMore := false
	var nextCursor string
	if len(txs) > limit {
		hasMore = true
		nextCursor = txs[limit-1].ID.String()
		txs = txs[:limit]
	}
	return txs, nextCursor, hasMore, nil
}

func (r *BankTransactionRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.BankTransaction{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete transaction")
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFoundError("transaction not found")
	}
	return nil
}

func (r *BankTransactionRepository) DeleteBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND import_batch_id = ?", tenantID, batchID).
		Delete(&models.BankTransaction{})
	return result.RowsAffected, errors.Wrap(result.Error, "delete import batch transactions")
}

func (r *BankTransactionRepository) StatusTotals(ctx context.Context, tenantID uuid.UUID, rng DateRange) ([]StatusTotal, error) {
	var rows []StatusTotal
	query := r.db.WithContext(ctx).
		Model(&models.BankTransaction{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("tenant_id = ?", tenantID)
	query = applyDateRange(query, rng)

	err := query.Group("status").Scan(&rows).Error
	return rows, errors.Wrap(err, "aggregate transactions by status")
}

func (r *BankTransactionRepository) BatchTotals(ctx context.Context, tenantID uuid.UUID, rng DateRange) ([]BatchTotal, error) {
	var rows []BatchTotal
	query := r.db.WithContext(ctx).
		Model(&models.BankTransaction{}).
		Select(
			"import_batch_id, "+
				"COUNT(*) AS total_count, "+
				"SUM(CASE WHEN status IN ? THEN 1 ELSE 0 END) AS matched_count, "+
				"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS unmatched_count, "+
				"COALESCE(SUM(amount), 0) AS total_amount, "+
				"MIN(imported_at) AS imported_at",
			[]models.TransactionStatus{models.StatusMatched, models.StatusManuallyMatched},
			models.StatusUnmatched,
		).
		Where("tenant_id = ?", tenantID)
	query = applyDateRange(query, rng)

	err := query.
		Group("import_batch_id").
		Order("MIN(imported_at) DESC, import_batch_id ASC").
		Scan(&rows).Error
	return rows, errors.Wrap(err, "aggregate transactions by import batch")
}

func applyDateRange(query *gorm.DB, rng DateRange) *gorm.DB {
	if rng.From != nil {
		query = query.Where("transaction_date >= ?", *rng.From)
	}
	if rng.To != nil {
		query = query.Where("transaction_date <= ?", *rng.To)
	}
	return query
}
