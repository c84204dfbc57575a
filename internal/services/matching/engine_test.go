package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/pkg/logger"
)

type fakeTransactionStore struct {
	mu        sync.Mutex
	txs       []models.BankTransaction
	listErr   error
	applyErrs map[uuid.UUID]error
	applied   map[uuid.UUID]models.MatchState
}

func (f *fakeTransactionStore) ListUnmatched(_ context.Context, tenantID uuid.UUID, batchID *uuid.UUID) ([]models.BankTransaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.BankTransaction
	for _, tx := range f.txs {
		if tx.TenantID != tenantID || tx.Status != models.StatusUnmatched {
			continue
		}
		if batchID != nil && tx.ImportBatchID != *batchID {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeTransactionStore) ApplyMatchState(_ context.Context, _, id uuid.UUID, _ *models.TransactionStatus, state models.MatchState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.applyErrs[id]; err != nil {
		return err
	}
	if f.applied == nil {
		f.applied = make(map[uuid.UUID]models.MatchState)
	}
	f.applied[id] = state
	return nil
}

type fakeBookingStore struct {
	mu       sync.Mutex
	bookings []models.Booking
	err      error
	queries  []repository.CandidateQuery
}

func (f *fakeBookingStore) FindCandidates(_ context.Context, q repository.CandidateQuery) ([]models.Booking, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.bookings, nil
}

var fixedNow = time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)

func newTestEngine(txs *fakeTransactionStore, bookings *fakeBookingStore, weights Weights, config Config) *Engine {
	e := NewEngine(txs, bookings, NewScorer(weights), config, logger.NewTestLogger())
	e.now = func() time.Time { return fixedNow }
	return e
}

func unmatchedTx(tenantID uuid.UUID, amount string, on time.Time, desc string, ref *string) models.BankTransaction {
	tx := newTx(amount, on, desc, ref)
	tx.TenantID = tenantID
	return *tx
}

// amountOnly scores exactly AmountExact for an equal amount and nothing else.
func amountOnly(points int) Weights {
	return Weights{AmountExact: points, MaxScore: 100}
}

func TestEngine_AutoMatchExactScenario(t *testing.T) {
	tenant := uuid.New()
	tx := unmatchedTx(tenant, "1500.00", date(2025, 1, 15), "Payment for booking BK123 - John Doe", strPtr("BK123"))
	booking := *newBooking("BK123", "John Doe", "1500.00", date(2025, 1, 15))

	txStore := &fakeTransactionStore{txs: []models.BankTransaction{tx}}
	engine := newTestEngine(txStore, &fakeBookingStore{bookings: []models.Booking{booking}}, DefaultWeights(), DefaultConfig())

	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Equal(t, 0, result.UnmatchedCount)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, MatchOutcome{TransactionID: tx.ID, BookingID: booking.ID, Score: 100}, result.Matches[0])

	state := txStore.applied[tx.ID]
	assert.Equal(t, models.StatusMatched, state.Status)
	require.NotNil(t, state.MatchedBookingID)
	assert.Equal(t, booking.ID, *state.MatchedBookingID)
	require.NotNil(t, state.MatchScore)
	assert.Equal(t, 100, *state.MatchScore)
	require.NotNil(t, state.MatchMethod)
	assert.Equal(t, models.MatchMethodAutomatic, *state.MatchMethod)
	assert.Nil(t, state.MatchedBy)
	require.NotNil(t, state.MatchedAt)
	assert.Equal(t, fixedNow, *state.MatchedAt)
}

func TestEngine_ThresholdBoundary(t *testing.T) {
	tests := []struct {
		score         int
		wantMatched   bool
		wantSuggested bool
	}{
		{score: 70, wantMatched: true},
		{score: 69, wantSuggested: true},
		{score: 50, wantSuggested: true},
		{score: 49},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("score %d", tt.score), func(t *testing.T) {
			tenant := uuid.New()
			tx := unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil)
			booking := *newBooking("BK9", "Nobody", "100.00", date(2025, 1, 15))

			txStore := &fakeTransactionStore{txs: []models.BankTransaction{tx}}
			engine := newTestEngine(txStore, &fakeBookingStore{bookings: []models.Booking{booking}}, amountOnly(tt.score), DefaultConfig())

			result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant})
			require.NoError(t, err)

			if tt.wantMatched {
				assert.Equal(t, 1, result.MatchedCount)
				assert.Equal(t, 0, result.UnmatchedCount)
				assert.Contains(t, txStore.applied, tx.ID)
			} else {
				assert.Equal(t, 0, result.MatchedCount)
				assert.Equal(t, 1, result.UnmatchedCount)
				assert.Empty(t, txStore.applied)
			}

			if tt.wantSuggested {
				require.Len(t, result.Suggestions, 1)
				assert.Equal(t, tx.ID, result.Suggestions[0].TransactionID)
				assert.Equal(t, tt.score, result.Suggestions[0].Score)
				assert.Equal(t, booking.ID, result.Suggestions[0].Booking.ID)
			} else {
				assert.Empty(t, result.Suggestions)
			}
		})
	}
}

func TestEngine_MinScoreOverride(t *testing.T) {
	tenant := uuid.New()
	tx := unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil)
	booking := *newBooking("BK9", "Nobody", "100.00", date(2025, 1, 15))
	txStore := &fakeTransactionStore{txs: []models.BankTransaction{tx}}
	engine := newTestEngine(txStore, &fakeBookingStore{bookings: []models.Booking{booking}}, amountOnly(45), DefaultConfig())

	low := 40
	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant, MinScore: &low})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)

	invalid := 101
	_, err = engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant, MinScore: &invalid})
	var validation *errs.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestEngine_TieGoesToFirstCandidate(t *testing.T) {
	tenant := uuid.New()
	tx := unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil)
	first := *newBooking("BK1", "Nobody", "100.00", date(2025, 1, 15))
	second := *newBooking("BK2", "Nobody", "100.00", date(2025, 1, 15))

	engine := newTestEngine(
		&fakeTransactionStore{txs: []models.BankTransaction{tx}},
		&fakeBookingStore{bookings: []models.Booking{first, second}},
		DefaultWeights(),
		DefaultConfig(),
	)

	best, err := engine.BestMatch(context.Background(), &tx)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, first.ID, best.Booking.ID)
	assert.Equal(t, 70, best.Score)

	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, first.ID, result.Matches[0].BookingID)
}

func TestEngine_BestMatchPicksHighestScore(t *testing.T) {
	tx := unmatchedTx(uuid.New(), "100.00", date(2025, 1, 15), "transfer BK2", nil)
	weak := *newBooking("BK1", "Nobody", "100.00", date(2025, 1, 15))
	strong := *newBooking("BK2", "Nobody", "100.00", date(2025, 1, 15))

	engine := newTestEngine(&fakeTransactionStore{}, &fakeBookingStore{bookings: []models.Booking{weak, strong}}, DefaultWeights(), DefaultConfig())

	best, err := engine.BestMatch(context.Background(), &tx)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, strong.ID, best.Booking.ID)
	assert.Equal(t, 85, best.Score)
	assert.Equal(t, 15, best.Breakdown.Description)
}

func TestEngine_BestMatchNothingUseful(t *testing.T) {
	tx := unmatchedTx(uuid.New(), "100.00", date(2025, 1, 15), "transfer", nil)

	engine := newTestEngine(&fakeTransactionStore{}, &fakeBookingStore{}, DefaultWeights(), DefaultConfig())
	best, err := engine.BestMatch(context.Background(), &tx)
	require.NoError(t, err)
	assert.Nil(t, best)

	unrelated := *newBooking("BK1", "Nobody", "9999.00", date(2024, 1, 1))
	engine = newTestEngine(&fakeTransactionStore{}, &fakeBookingStore{bookings: []models.Booking{unrelated}}, DefaultWeights(), DefaultConfig())
	best, err = engine.BestMatch(context.Background(), &tx)
	require.NoError(t, err)
	assert.Nil(t, best)
}

func TestEngine_CandidateQuery(t *testing.T) {
	tenant := uuid.New()
	tx := unmatchedTx(tenant, "100.00", time.Date(2025, 1, 15, 14, 0, 0, 0, time.UTC), "transfer", nil)
	bookings := &fakeBookingStore{}

	engine := newTestEngine(&fakeTransactionStore{}, bookings, DefaultWeights(), DefaultConfig())
	_, err := engine.BestMatch(context.Background(), &tx)
	require.NoError(t, err)

	require.Len(t, bookings.queries, 1)
	q := bookings.queries[0]
	assert.Equal(t, tenant, q.TenantID)
	assert.Equal(t, date(2025, 1, 8), q.From)
	assert.Equal(t, date(2025, 1, 23), q.To)
	assert.Equal(t, []string{"confirmed", "completed"}, q.Statuses)
	assert.Equal(t, []string{"paid", "partially_paid"}, q.PaymentStatuses)
}

func TestEngine_PersistFailureContinues(t *testing.T) {
	tenant := uuid.New()
	txs := []models.BankTransaction{
		unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil),
		unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil),
		unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil),
	}
	booking := *newBooking("BK1", "Nobody", "100.00", date(2025, 1, 15))
	txStore := &fakeTransactionStore{
		txs:       txs,
		applyErrs: map[uuid.UUID]error{txs[1].ID: errors.New("connection reset")},
	}
	engine := newTestEngine(txStore, &fakeBookingStore{bookings: []models.Booking{booking}}, DefaultWeights(), DefaultConfig())

	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant})
	require.NoError(t, err)
	assert.Equal(t, 2, result.MatchedCount)
	assert.Equal(t, 1, result.UnmatchedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Contains(t, txStore.applied, txs[0].ID)
	assert.NotContains(t, txStore.applied, txs[1].ID)
	assert.Contains(t, txStore.applied, txs[2].ID)
}

func TestEngine_CandidateLookupFailureCountsAsUnmatched(t *testing.T) {
	tenant := uuid.New()
	txStore := &fakeTransactionStore{txs: []models.BankTransaction{
		unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil),
	}}
	engine := newTestEngine(txStore, &fakeBookingStore{err: errors.New("timeout")}, DefaultWeights(), DefaultConfig())

	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant})
	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchedCount)
	assert.Equal(t, 1, result.UnmatchedCount)
	assert.Equal(t, 1, result.FailedCount)
}

func TestEngine_InitialQueryFailure(t *testing.T) {
	engine := newTestEngine(&fakeTransactionStore{listErr: errors.New("db down")}, &fakeBookingStore{}, DefaultWeights(), DefaultConfig())

	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: uuid.New()})
	assert.EqualError(t, err, "db down")
	assert.Nil(t, result)
}

func TestEngine_BatchFilter(t *testing.T) {
	tenant := uuid.New()
	batchA, batchB := uuid.New(), uuid.New()
	inA := unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil)
	inA.ImportBatchID = batchA
	inB := unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil)
	inB.ImportBatchID = batchB

	txStore := &fakeTransactionStore{txs: []models.BankTransaction{inA, inB}}
	booking := *newBooking("BK1", "Nobody", "100.00", date(2025, 1, 15))
	engine := newTestEngine(txStore, &fakeBookingStore{bookings: []models.Booking{booking}}, DefaultWeights(), DefaultConfig())

	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant, BatchID: &batchA})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Contains(t, txStore.applied, inA.ID)
	assert.NotContains(t, txStore.applied, inB.ID)
}

func TestEngine_ParallelWorkersKeepInputOrder(t *testing.T) {
	tenant := uuid.New()
	booking := *newBooking("BK1", "Nobody", "100.00", date(2025, 1, 15))

	var txs []models.BankTransaction
	for i := 0; i < 25; i++ {
		txs = append(txs, unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil))
	}

	config := DefaultConfig()
	config.Workers = 4
	txStore := &fakeTransactionStore{txs: txs}
	engine := newTestEngine(txStore, &fakeBookingStore{bookings: []models.Booking{booking}}, DefaultWeights(), config)

	result, err := engine.AutoMatch(context.Background(), AutoMatchRequest{TenantID: tenant})
	require.NoError(t, err)
	assert.Equal(t, 25, result.MatchedCount)
	require.Len(t, result.Matches, 25)
	for i, m := range result.Matches {
		assert.Equal(t, txs[i].ID, m.TransactionID)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	tenant := uuid.New()
	txStore := &fakeTransactionStore{txs: []models.BankTransaction{
		unmatchedTx(tenant, "100.00", date(2025, 1, 15), "transfer", nil),
	}}
	booking := *newBooking("BK1", "Nobody", "100.00", date(2025, 1, 15))
	engine := newTestEngine(txStore, &fakeBookingStore{bookings: []models.Booking{booking}}, DefaultWeights(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.AutoMatch(ctx, AutoMatchRequest{TenantID: tenant})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.MatchedCount)
	assert.Empty(t, txStore.applied)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.MinScore = 120
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.Workers = 0
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.CandidateWindowDays = -1
	assert.Error(t, c.Validate())
}
