package reconciliation

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/pkg/logger"
)

type fakeTransactionStore struct {
	rows       map[uuid.UUID]models.BankTransaction
	order      []uuid.UUID
	createErr  error
	applyCalls int
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{rows: make(map[uuid.UUID]models.BankTransaction)}
}

func (f *fakeTransactionStore) add(tx models.BankTransaction) {
	f.rows[tx.ID] = tx
	f.order = append(f.order, tx.ID)
}

func (f *fakeTransactionStore) all() []models.BankTransaction {
	var out []models.BankTransaction
	for _, id := range f.order {
		if tx, ok := f.rows[id]; ok {
			out = append(out, tx)
		}
	}
	return out
}

func (f *fakeTransactionStore) CreateMany(_ context.Context, txs []models.BankTransaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, tx := range txs {
		f.add(tx)
	}
	return nil
}

func (f *fakeTransactionStore) GetByID(_ context.Context, tenantID, id uuid.UUID) (*models.BankTransaction, error) {
	tx, ok := f.rows[id]
	if !ok || tx.TenantID != tenantID {
		return nil, errs.NewNotFoundError("transaction not found")
	}
	return &tx, nil
}

func (f *fakeTransactionStore) ApplyMatchState(_ context.Context, tenantID, id uuid.UUID, expected *models.TransactionStatus, state models.MatchState) error {
	f.applyCalls++
	tx, ok := f.rows[id]
	if !ok || tx.TenantID != tenantID || (expected != nil && tx.Status != *expected) {
		return errs.NewNotFoundError("transaction not found")
	}
	tx.Apply(state)
	f.rows[id] = tx
	return nil
}

func (f *fakeTransactionStore) List(_ context.Context, tenantID uuid.UUID, filter repository.TransactionFilter) ([]models.BankTransaction, string, bool, error) {
	var out []models.BankTransaction
	for _, tx := range f.all() {
		if tx.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.BatchID != nil && tx.ImportBatchID != *filter.BatchID {
			continue
		}
		out = append(out, tx)
	}
	return out, "", false, nil
}

func (f *fakeTransactionStore) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	tx, ok := f.rows[id]
	if !ok || tx.TenantID != tenantID {
		return errs.NewNotFoundError("transaction not found")
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeTransactionStore) DeleteBatch(_ context.Context, tenantID, batchID uuid.UUID) (int64, error) {
	var n int64
	for id, tx := range f.rows {
		if tx.TenantID == tenantID && tx.ImportBatchID == batchID {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeBookingStore struct {
	rows map[uuid.UUID]models.Booking
}

func newFakeBookingStore(bookings ...models.Booking) *fakeBookingStore {
	f := &fakeBookingStore{rows: make(map[uuid.UUID]models.Booking)}
	for _, b := range bookings {
		f.rows[b.ID] = b
	}
	return f
}

func (f *fakeBookingStore) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok := f.rows[id]
	if !ok {
		return nil, errs.NewNotFoundError("booking not found")
	}
	return &b, nil
}

func (f *fakeBookingStore) Search(_ context.Context, tenantID uuid.UUID, _ string, _ int) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.rows {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingNumber < out[j].BookingNumber })
	return out, nil
}

type fakeBatchStore struct {
	rows      map[uuid.UUID]models.ImportBatch
	createErr error
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{rows: make(map[uuid.UUID]models.ImportBatch)}
}

func (f *fakeBatchStore) Create(_ context.Context, batch *models.ImportBatch) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows[batch.ID] = *batch
	return nil
}

func (f *fakeBatchStore) List(_ context.Context, tenantID uuid.UUID) ([]models.ImportBatch, error) {
	var out []models.ImportBatch
	for _, b := range f.rows {
		if b.TenantID == tenantID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBatchStore) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	if b, ok := f.rows[id]; ok && b.TenantID == tenantID {
		delete(f.rows, id)
	}
	return nil
}

type fakeMatcher struct {
	best        *matching.Candidate
	autoResult  *matching.AutoMatchResult
	autoErr     error
	autoCalls   []matching.AutoMatchRequest
	bestQueried []uuid.UUID
}

func (f *fakeMatcher) BestMatch(_ context.Context, tx *models.BankTransaction) (*matching.Candidate, error) {
	f.bestQueried = append(f.bestQueried, tx.ID)
	return f.best, nil
}

func (f *fakeMatcher) AutoMatch(_ context.Context, req matching.AutoMatchRequest) (*matching.AutoMatchResult, error) {
	f.autoCalls = append(f.autoCalls, req)
	if f.autoResult == nil {
		return &matching.AutoMatchResult{}, f.autoErr
	}
	return f.autoResult, f.autoErr
}

var fixedNow = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc      *ReconciliationService
	txs      *fakeTransactionStore
	bookings *fakeBookingStore
	batches  *fakeBatchStore
	matcher  *fakeMatcher
}

func newFixture(bookings ...models.Booking) *fixture {
	f := &fixture{
		txs:      newFakeTransactionStore(),
		bookings: newFakeBookingStore(bookings...),
		batches:  newFakeBatchStore(),
		matcher:  &fakeMatcher{},
	}
	f.svc = NewReconciliationService(f.txs, f.bookings, f.batches, f.matcher, logger.NewTestLogger())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}
