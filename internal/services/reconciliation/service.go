package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/pkg/logger"
)

type TransactionStore interface {
	CreateMany(ctx context.Context, txs []models.BankTransaction) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.BankTransaction, error)
	ApplyMatchState(ctx context.Context, tenantID, id uuid.UUID, expected *models.TransactionStatus, state models.MatchState) error
	List(ctx context.Context, tenantID uuid.UUID, filter repository.TransactionFilter) ([]models.BankTransaction, string, bool, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	DeleteBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error)
}

type BookingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Search(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]models.Booking, error)
}

type ImportBatchStore interface {
	Create(ctx context.Context, batch *models.ImportBatch) error
	List(ctx context.Context, tenantID uuid.UUID) ([]models.ImportBatch, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// Matcher is implemented by *matching.Engine.
type Matcher interface {
	BestMatch(ctx context.Context, tx *models.BankTransaction) (*matching.Candidate, error)
	AutoMatch(ctx context.Context, req matching.AutoMatchRequest) (*matching.AutoMatchResult, error)
}

type ReconciliationService struct {
	transactions TransactionStore
	bookings     BookingStore
	batches      ImportBatchStore
	matcher      Matcher
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewReconciliationService(
	transactions TransactionStore,
	bookings BookingStore,
	batches ImportBatchStore,
	matcher Matcher,
	log logrus.FieldLogger,
) *ReconciliationService {
	return &ReconciliationService{
		transactions: transactions,
		bookings:     bookings,
		batches:      batches,
		matcher:      matcher,
		log:          logger.WithComponent(log, "reconciliation"),
		now:          time.Now,
	}
}

type ManualMatchRequest struct {
	TenantID      uuid.UUID
	TransactionID uuid.UUID
	BookingID     uuid.UUID
	ActingUserID  string
	Score         *int
	Method        *models.MatchMethod
}

// ManualMatch assigns a booking to a transaction by hand. Any current status
// is accepted and an existing match is overwritten.
func (s *ReconciliationService) ManualMatch(ctx context.Context, req ManualMatchRequest) (*models.BankTransaction, error) {
	if req.Score != nil && (*req.Score < 0 || *req.Score > 100) {
		return nil, errs.NewValidationError("score must be between 0 and 100")
	}
	method := models.MatchMethodManual
	if req.Method != nil {
		if !req.Method.IsValid() {
			return nil, errs.NewValidationError("unknown match method " + string(*req.Method))
		}
		if *req.Method == models.MatchMethodAutomatic {
			return nil, errs.NewValidationError("automatic method is reserved for auto-match")
		}
		method = *req.Method
	}

	tx, err := s.transactions.GetByID(ctx, req.TenantID, req.TransactionID)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.TenantID != tx.TenantID {
		return nil, errs.NewCrossTenantError("booking belongs to a different tenant than the transaction")
	}

	now := s.now().UTC()
	actingUser := req.ActingUserID
	state := models.MatchState{
		Status:           models.StatusManuallyMatched,
		MatchedBookingID: &booking.ID,
		MatchScore:       req.Score,
		MatchMethod:      &method,
		MatchedBy:        &actingUser,
		MatchedAt:        &now,
	}
	if err := s.transactions.ApplyMatchState(ctx, tx.TenantID, tx.ID, nil, state); err != nil {
		return nil, err
	}
	tx.Apply(state)

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"booking_id":     booking.ID,
		"matched_by":     actingUser,
	}).Info("transaction matched manually")
	return tx, nil
}

// Unmatch clears every match field. An unmatched transaction is returned
// unchanged.
func (s *ReconciliationService) Unmatch(ctx context.Context, tenantID, txID uuid.UUID) (*models.BankTransaction, error) {
	tx, err := s.transactions.GetByID(ctx, tenantID, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status == models.StatusUnmatched {
		return tx, nil
	}
	return s.clear(ctx, tx, models.StatusUnmatched)
}

// Ignore takes a transaction out of reconciliation. It is the only way a
// transaction becomes ignored; Unmatch brings it back.
func (s *ReconciliationService) Ignore(ctx context.Context, tenantID, txID uuid.UUID, actingUserID string) (*models.BankTransaction, error) {
	tx, err := s.transactions.GetByID(ctx, tenantID, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status == models.StatusIgnored {
		return tx, nil
	}
	tx, err = s.clear(ctx, tx, models.StatusIgnored)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"user_id":        actingUserID,
	}).Info("transaction ignored")
	return tx, nil
}

func (s *ReconciliationService) clear(ctx context.Context, tx *models.BankTransaction, status models.TransactionStatus) (*models.BankTransaction, error) {
	state := models.ClearedState(status)
	if err := s.transactions.ApplyMatchState(ctx, tx.TenantID, tx.ID, nil, state); err != nil {
		return nil, err
	}
	tx.Apply(state)
	return tx, nil
}

// FindBestMatch is read-only. A nil candidate means nothing suitable was
// found.
func (s *ReconciliationService) FindBestMatch(ctx context.Context, tenantID, txID uuid.UUID) (*matching.Candidate, error) {
	tx, err := s.transactions.GetByID(ctx, tenantID, txID)
	if err != nil {
		return nil, err
	}
	return s.matcher.BestMatch(ctx, tx)
}

func (s *ReconciliationService) AutoMatch(ctx context.Context, req matching.AutoMatchRequest) (*matching.AutoMatchResult, error) {
	return s.matcher.AutoMatch(ctx, req)
}

type TransactionPage struct {
	Items      []models.BankTransaction `json:"items"`
	NextCursor string                   `json:"next_cursor,omitempty"`
	HasMore    bool                     `json:"has_more"`
}

func (s *ReconciliationService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter repository.TransactionFilter) (*TransactionPage, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, errs.NewValidationError("unknown status " + string(filter.Status))
	}
	if filter.Range.From != nil && filter.Range.To != nil && filter.Range.From.After(*filter.Range.To) {
		return nil, errs.NewValidationError("date range start is after its end")
	}

	items, next, more, err := s.transactions.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.BankTransaction{}
	}
	return &TransactionPage{Items: items, NextCursor: next, HasMore: more}, nil
}

func (s *ReconciliationService) GetTransaction(ctx context.Context, tenantID, txID uuid.UUID) (*models.BankTransaction, error) {
	return s.transactions.GetByID(ctx, tenantID, txID)
}

func (s *ReconciliationService) DeleteTransaction(ctx context.Context, tenantID, txID uuid.UUID) error {
	if err := s.transactions.Delete(ctx, tenantID, txID); err != nil {
		return err
	}
	logger.FromContext(ctx).WithField("transaction_id", txID).Info("transaction deleted")
	return nil
}

// DeleteBatch removes every transaction of an import together with its batch
// record and returns how many transactions were removed.
func (s *ReconciliationService) DeleteBatch(ctx context.Context, tenantID, batchID uuid.UUID) (int64, error) {
	deleted, err := s.transactions.DeleteBatch(ctx, tenantID, batchID)
	if err != nil {
		return 0, err
	}
	if err := s.batches.Delete(ctx, tenantID, batchID); err != nil {
		return deleted, err
	}
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"import_batch_id": batchID,
		"deleted":         deleted,
	}).Info("import batch deleted")
	return deleted, nil
}

func (s *ReconciliationService) ListImportBatches(ctx context.Context, tenantID uuid.UUID) ([]models.ImportBatch, error) {
	batches, err := s.batches.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if batches == nil {
		batches = []models.ImportBatch{}
	}
	return batches, nil
}

// SearchBookings backs the manual match picker.
func (s *ReconciliationService) SearchBookings(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]models.Booking, error) {
	bookings, err := s.bookings.Search(ctx, tenantID, text, limit)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}
