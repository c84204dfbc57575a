package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/pkg/logger"
)

// TransactionStore is the part of the transaction repository the engine needs.
type TransactionStore interface {
	ListUnmatched(ctx context.Context, tenantID uuid.UUID, batchID *uuid.UUID) ([]models.BankTransaction, error)
	ApplyMatchState(ctx context.Context, tenantID, id uuid.UUID, expected *models.TransactionStatus, state models.MatchState) error
}

// BookingStore supplies the candidate pool.
type BookingStore interface {
	FindCandidates(ctx context.Context, q repository.CandidateQuery) ([]models.Booking, error)
}

type Config struct {
	MinScore            int
	SuggestScore        int
	CandidateWindowDays int
	CandidateStatuses   []string
	PaidStatuses        []string
	Workers             int
}

func DefaultConfig() Config {
	return Config{
		MinScore:            70,
		SuggestScore:        50,
		CandidateWindowDays: 7,
		CandidateStatuses:   []string{"confirmed", "completed"},
		PaidStatuses:        []string{"paid", "partially_paid"},
		Workers:             1,
	}
}

func (c Config) Validate() error {
	if err := validateScore("min score", c.MinScore); err != nil {
		return err
	}
	if err := validateScore("suggest score", c.SuggestScore); err != nil {
		return err
	}
	if c.CandidateWindowDays < 0 {
		return errs.NewValidationError("candidate window must not be negative")
	}
	if c.Workers < 1 {
		return errs.NewValidationError("workers must be at least 1")
	}
	return nil
}

func validateScore(name string, score int) error {
	if score < 0 || score > 100 {
		return errs.NewValidationError(fmt.Sprintf("%s must be between 0 and 100, got %d", name, score))
	}
	return nil
}

// Candidate is a scored booking.
type Candidate struct {
	Booking   models.Booking `json:"booking"`
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

type AutoMatchRequest struct {
	TenantID uuid.UUID
	BatchID  *uuid.UUID
	MinScore *int
}

type MatchOutcome struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	BookingID     uuid.UUID `json:"booking_id"`
	Score         int       `json:"score"`
}

// Suggestion is a moderate-confidence candidate. It is returned to the
// caller and never persisted.
type Suggestion struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Candidate
}

type AutoMatchResult struct {
	MatchedCount   int            `json:"matched_count"`
	UnmatchedCount int            `json:"unmatched_count"`
	FailedCount    int            `json:"failed_count"`
	Matches        []MatchOutcome `json:"matches"`
	Suggestions    []Suggestion   `json:"suggestions"`
}

type Engine struct {
	transactions TransactionStore
	bookings     BookingStore
	scorer       *Scorer
	config       Config
	log          logrus.FieldLogger
	now          func() time.Time
}

func NewEngine(transactions TransactionStore, bookings BookingStore, scorer *Scorer, config Config, log logrus.FieldLogger) *Engine {
	if scorer == nil {
		scorer = NewScorer(DefaultWeights())
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Engine{
		transactions: transactions,
		bookings:     bookings,
		scorer:       scorer,
		config:       config,
		log:          logger.WithComponent(log, "matching"),
		now:          time.Now,
	}
}

func (e *Engine) Config() Config {
	return e.config
}

// BestMatch scores the candidate pool of one transaction and returns the
// highest scoring booking. The first candidate to reach the maximum wins. It
// returns nil when the pool is empty or nothing scores above zero.
func (e *Engine) BestMatch(ctx context.Context, tx *models.BankTransaction) (*Candidate, error) {
	day := calendarDay(tx.TransactionDate)
	window := time.Duration(e.config.CandidateWindowDays) * 24 * time.Hour

	bookings, err := e.bookings.FindCandidates(ctx, repository.CandidateQuery{
		TenantID:        tx.TenantID,
		From:            day.Add(-window),
		To:              day.Add(window + 24*time.Hour),
		Statuses:        e.config.CandidateStatuses,
		PaymentStatuses: e.config.PaidStatuses,
	})
	if err != nil {
		return nil, err
	}

	var best *Candidate
	for i := range bookings {
		breakdown := e.scorer.Breakdown(tx, &bookings[i])
		if best == nil || breakdown.Total > best.Score {
			best = &Candidate{Booking: bookings[i], Score: breakdown.Total, Breakdown: breakdown}
		}
	}
	if best == nil || best.Score == 0 {
		return nil, nil
	}
	return best, nil
}

// AutoMatch runs the threshold policy over every unmatched transaction of a
// tenant, optionally restricted to one import batch. A failure on one
// transaction is logged and counted, it never aborts the run. When ctx is
// cancelled the counts so far are returned together with ctx.Err().
func (e *Engine) AutoMatch(ctx context.Context, req AutoMatchRequest) (*AutoMatchResult, error) {
	minScore := e.config.MinScore
	if req.MinScore != nil {
		if err := validateScore("min score", *req.MinScore); err != nil {
			return nil, err
		}
		minScore = *req.MinScore
	}

	log := e.log.WithField("tenant_id", req.TenantID)
	if req.BatchID != nil {
		log = log.WithField("import_batch_id", *req.BatchID)
	}

	txs, err := e.transactions.ListUnmatched(ctx, req.TenantID, req.BatchID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]outcome, len(txs))
	if e.config.Workers == 1 {
		for i := range txs {
			if ctx.Err() != nil {
				break
			}
			outcomes[i] = e.process(ctx, log, &txs[i], minScore)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.config.Workers)
		for i := range txs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				outcomes[i] = e.process(ctx, log, &txs[i], minScore)
				return nil
			})
		}
		_ = g.Wait()
	}

	result := aggregate(outcomes)
	log.WithFields(logrus.Fields{
		"candidates": len(txs),
		"matched":    result.MatchedCount,
		"unmatched":  result.UnmatchedCount,
		"failed":     result.FailedCount,
		"suggested":  len(result.Suggestions),
	}).Info("auto-match finished")

	return result, ctx.Err()
}

type outcome struct {
	processed  bool
	failed     bool
	match      *MatchOutcome
	suggestion *Suggestion
}

func (e *Engine) process(ctx context.Context, log logrus.FieldLogger, tx *models.BankTransaction, minScore int) outcome {
	log = log.WithField("transaction_id", tx.ID)

	best, err := e.BestMatch(ctx, tx)
	if err != nil {
		log.WithError(err).Warn("candidate lookup failed")
		return outcome{processed: true, failed: true}
	}
	if best == nil {
		return outcome{processed: true}
	}

	if best.Score >= minScore {
		state := automaticState(best.Booking.ID, best.Score, e.now().UTC())
		expected := models.StatusUnmatched
		if err := e.transactions.ApplyMatchState(ctx, tx.TenantID, tx.ID, &expected, state); err != nil {
			log.WithError(err).Warn("persisting automatic match failed")
			return outcome{processed: true, failed: true}
		}
		log.WithFields(logrus.Fields{"booking_id": best.Booking.ID, "score": best.Score}).Debug("transaction matched")
		return outcome{
			processed: true,
			match:     &MatchOutcome{TransactionID: tx.ID, BookingID: best.Booking.ID, Score: best.Score},
		}
	}

	if best.Score >= e.config.SuggestScore {
		return outcome{processed: true, suggestion: &Suggestion{TransactionID: tx.ID, Candidate: *best}}
	}
	return outcome{processed: true}
}

func automaticState(bookingID uuid.UUID, score int, at time.Time) models.MatchState {
	method := models.MatchMethodAutomatic
	return models.MatchState{
		Status:           models.StatusMatched,
		MatchedBookingID: &bookingID,
		MatchScore:       &score,
		MatchMethod:      &method,
		MatchedAt:        &at,
	}
}

func aggregate(outcomes []outcome) *AutoMatchResult {
	result := &AutoMatchResult{
		Matches:     []MatchOutcome{},
		Suggestions: []Suggestion{},
	}
	for _, o := range outcomes {
		if !o.processed {
			continue
		}
		switch {
		case o.failed:
			result.FailedCount++
			result.UnmatchedCount++
		case o.match != nil:
			result.MatchedCount++
			result.Matches = append(result.Matches, *o.match)
		default:
			result.UnmatchedCount++
			if o.suggestion != nil {
				result.Suggestions = append(result.Suggestions, *o.suggestion)
			}
		}
	}
	return result
}
