package matching

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"statement-reconciliation-backend/internal/models"
)

// AmountTier awards Points when the amount difference, as a percentage of
// the booking total, is strictly below BelowPercent.
type AmountTier struct {
	BelowPercent float64
	Points       int
}

// DateTier awards Points when the transaction and booking dates are at most
// MaxDays calendar days apart.
type DateTier struct {
	MaxDays int
	Points  int
}

// Weights is the scoring policy. Tiers are evaluated in order and the first
// one that applies wins.
type Weights struct {
	AmountExact          int
	AmountTiers          []AmountTier
	DateTiers            []DateTier
	ReferenceMatch       int
	DescriptionReference int
	CustomerName         int
	MinNameTokenLength   int
	MaxScore             int
}

func DefaultWeights() Weights {
	return Weights{
		AmountExact: 50,
		AmountTiers: []AmountTier{
			{BelowPercent: 1, Points: 45},
			{BelowPercent: 5, Points: 35},
			{BelowPercent: 10, Points: 20},
		},
		DateTiers: []DateTier{
			{MaxDays: 0, Points: 20},
			{MaxDays: 1, Points: 15},
			{MaxDays: 3, Points: 10},
			{MaxDays: 7, Points: 5},
		},
		ReferenceMatch:       30,
		DescriptionReference: 15,
		CustomerName:         10,
		MinNameTokenLength:   3,
		MaxScore:             100,
	}
}

// ScoreBreakdown is the per-component contribution to a score. Total is
// capped; the components are not.
type ScoreBreakdown struct {
	Amount       int `json:"amount"`
	Date         int `json:"date"`
	Reference    int `json:"reference"`
	Description  int `json:"description"`
	CustomerName int `json:"customer_name"`
	Total        int `json:"total"`
}

// Scorer computes how well a bank transaction fits a booking. It holds no
// mutable state and is safe for concurrent use.
type Scorer struct {
	weights Weights
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns a value between 0 and the configured maximum.
func (s *Scorer) Score(tx *models.BankTransaction, booking *models.Booking) int {
	return s.Breakdown(tx, booking).Total
}

func (s *Scorer) Breakdown(tx *models.BankTransaction, booking *models.Booking) ScoreBreakdown {
	b := ScoreBreakdown{
		Amount: s.amountScore(tx.Amount, booking.TotalAmount),
		Date:   s.dateScore(tx.TransactionDate, booking.ReferenceDate()),
	}

	ref := strings.ToLower(strings.TrimSpace(tx.ReferenceValue()))
	desc := strings.ToLower(tx.Description)
	bookingRef := strings.ToLower(strings.TrimSpace(booking.BookingNumber))

	if ref != "" && bookingRef != "" &&
		(strings.Contains(ref, bookingRef) || strings.Contains(bookingRef, ref)) {
		b.Reference = s.weights.ReferenceMatch
	}
	if bookingRef != "" && strings.Contains(desc, bookingRef) {
		b.Description = s.weights.DescriptionReference
	}
	if s.customerNameMatches(desc, booking.CustomerName) {
		b.CustomerName = s.weights.CustomerName
	}

	total := b.Amount + b.Date + b.Reference + b.Description + b.CustomerName
	if total > s.weights.MaxScore {
		total = s.weights.MaxScore
	}
	if total < 0 {
		total = 0
	}
	b.Total = total
	return b
}

var hundred = decimal.NewFromInt(100)

func (s *Scorer) amountScore(amount, bookingTotal decimal.Decimal) int {
	if bookingTotal.IsZero() {
		return 0
	}

	diff := amount.Sub(bookingTotal).Abs()
	if diff.IsZero() {
		return s.weights.AmountExact
	}

	diffPct := diff.Div(bookingTotal.Abs()).Mul(hundred)
	for _, tier := range s.weights.AmountTiers {
		if diffPct.LessThan(decimal.NewFromFloat(tier.BelowPercent)) {
			return tier.Points
		}
	}
	return 0
}

func (s *Scorer) dateScore(txDate, referenceDate time.Time) int {
	days := DaysBetween(txDate, referenceDate)
	for _, tier := range s.weights.DateTiers {
		if days <= tier.MaxDays {
			return tier.Points
		}
	}
	return 0
}

func (s *Scorer) customerNameMatches(desc, customerName string) bool {
	for _, token := range strings.Fields(strings.ToLower(customerName)) {
		if utf8.RuneCountInString(token) < s.weights.MinNameTokenLength {
			continue
		}
		if strings.Contains(desc, token) {
			return true
		}
	}
	return false
}

// DaysBetween is the absolute number of calendar days between two instants,
// each taken as a UTC date.
func DaysBetween(a, b time.Time) int {
	da := calendarDay(a)
	db := calendarDay(b)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

func calendarDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
