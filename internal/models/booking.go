package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking is a sales record owned by the booking subsystem. The matching
// engine only reads it.
type Booking struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_booking_tenant_date" json:"tenant_id"`
	BookingNumber string          `gorm:"type:varchar(100);index" json:"booking_number"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	Status        string          `gorm:"type:varchar(30);index" json:"status"`
	PaymentStatus string          `gorm:"type:varchar(30);index" json:"payment_status"`
	BookingDate   *time.Time      `gorm:"index:idx_booking_tenant_date" json:"booking_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ReferenceDate is the date transactions are compared against: the booking
// date when recorded, otherwise the creation time.
func (b *Booking) ReferenceDate() time.Time {
	if b.BookingDate != nil && !b.BookingDate.IsZero() {
		return *b.BookingDate
	}
	return b.CreatedAt
}
