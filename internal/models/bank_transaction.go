package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionStatus string

const (
	StatusUnmatched       TransactionStatus = "unmatched"
	StatusMatched         TransactionStatus = "matched"
	StatusManuallyMatched TransactionStatus = "manually_matched"
	StatusIgnored         TransactionStatus = "ignored"
)

// AllStatuses lists every status in reporting order.
var AllStatuses = []TransactionStatus{
	StatusUnmatched,
	StatusMatched,
	StatusManuallyMatched,
	StatusIgnored,
}

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusUnmatched, StatusMatched, StatusManuallyMatched, StatusIgnored:
		return true
	}
	return false
}

// IsMatched reports whether the status carries a booking assignment.
func (s TransactionStatus) IsMatched() bool {
	return s == StatusMatched || s == StatusManuallyMatched
}

type MatchMethod string

const (
	MatchMethodAutomatic MatchMethod = "automatic"
	MatchMethodManual    MatchMethod = "manual"
	MatchMethodSuggested MatchMethod = "suggested"
)

func (m MatchMethod) IsValid() bool {
	return m == MatchMethodAutomatic || m == MatchMethodManual || m == MatchMethodSuggested
}

type BankTransaction struct {
	ID               uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_bank_tx_tenant_status" json:"tenant_id"`
	TransactionDate  time.Time         `gorm:"type:date;not null;index" json:"transaction_date"`
	Description      string            `gorm:"type:text;not null" json:"description"`
	Amount           decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Reference        *string           `gorm:"type:varchar(255)" json:"reference"`
	RawData          datatypes.JSON    `gorm:"type:jsonb" json:"raw_data,omitempty"`
	Status           TransactionStatus `gorm:"type:varchar(20);not null;default:'unmatched';index:idx_bank_tx_tenant_status" json:"status"`
	MatchedBookingID *uuid.UUID        `gorm:"type:uuid;index" json:"matched_booking_id"`
	MatchScore       *int              `json:"match_score"`
	MatchMethod      *MatchMethod      `gorm:"type:varchar(20)" json:"match_method"`
	MatchedBy        *string           `gorm:"type:varchar(255)" json:"matched_by"`
	MatchedAt        *time.Time        `json:"matched_at"`
	ImportBatchID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"import_batch_id"`
	ImportedBy       string            `gorm:"type:varchar(255)" json:"imported_by"`
	ImportedAt       time.Time         `gorm:"not null" json:"imported_at"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// BeforeCreate sets UUID before creating
func (t *BankTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// MatchState is the full set of match columns. It is always written as a
// whole so a transaction never ends up half matched.
type MatchState struct {
	Status           TransactionStatus
	MatchedBookingID *uuid.UUID
	MatchScore       *int
	MatchMethod      *MatchMethod
	MatchedBy        *string
	MatchedAt        *time.Time
}

// ClearedState returns the match state for the given status with every
// match field nulled.
func ClearedState(status TransactionStatus) MatchState {
	return MatchState{Status: status}
}

// Apply copies the state onto the transaction in memory.
func (t *BankTransaction) Apply(s MatchState) {
	t.Status = s.Status
	t.MatchedBookingID = s.MatchedBookingID
	t.MatchScore = s.MatchScore
	t.MatchMethod = s.MatchMethod
	t.MatchedBy = s.MatchedBy
	t.MatchedAt = s.MatchedAt
}

func (t *BankTransaction) MatchState() MatchState {
	return MatchState{
		Status:           t.Status,
		MatchedBookingID: t.MatchedBookingID,
		MatchScore:       t.MatchScore,
		MatchMethod:      t.MatchMethod,
		MatchedBy:        t.MatchedBy,
		MatchedAt:        t.MatchedAt,
	}
}

// ReferenceValue returns the reference or "" when there is none.
func (t *BankTransaction) ReferenceValue() string {
	if t.Reference == nil {
		return ""
	}
	return *t.Reference
}
