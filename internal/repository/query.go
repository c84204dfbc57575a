package repository

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"statement-reconciliation-backend/internal/models"
)

// DateRange bounds transaction dates, both ends inclusive. Either end may be
// nil.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	Status  models.TransactionStatus
	BatchID *uuid.UUID
	Range   DateRange
	Search  string
	Cursor  string
	Limit   int
}

// CandidateQuery selects the bookings a transaction may be matched against.
type CandidateQuery struct {
	TenantID        uuid.UUID
	From            time.Time
	To              time.Time
	Statuses        []string
	PaymentStatuses []string
}

type StatusTotal struct {
	Status models.TransactionStatus
	Count  int64
	Total  decimal.Decimal
}

type BatchTotal struct {
	ImportBatchID  uuid.UUID
	TotalCount     int64
	MatchedCount   int64
	UnmatchedCount int64
	TotalAmount    decimal.Decimal
	ImportedAt     time.Time
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern builds a case-folded LIKE pattern matching text literally
// anywhere. Use it with likeClause.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
}

const likeClause = " LIKE ? ESCAPE '\\'"
