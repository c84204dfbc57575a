package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
)

// referenceDateExpr mirrors models.Booking.ReferenceDate in SQL.
const referenceDateExpr = "COALESCE(booking_date, created_at)"

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetByID looks a booking up across tenants so callers can tell a missing
// booking from one owned by somebody else.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.NewNotFoundError("booking not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get booking")
	}
	return &booking, nil
}

// FindCandidates returns the bookings of a tenant whose reference date falls
// inside the window, in a stable order: reference date, then id.
func (r *BookingRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.Booking, error) {
	var bookings []models.Booking

	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", q.TenantID).
		Where(referenceDateExpr+" >= ? AND "+referenceDateExpr+" < ?", q.From, q.To)

	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if len(q.PaymentStatuses) > 0 {
		query = query.Where("payment_status IN ?", q.PaymentStatuses)
	}

	err := query.Order(referenceDateExpr + " ASC, id ASC").Find(&bookings).Error
	return bookings, errors.Wrap(err, "find candidate bookings")
}

// Search is used by operators looking for a booking to match by hand.
func (r *BookingRepository) Search(ctx context.Context, tenantID uuid.UUID, text string, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 20
	}

	var bookings []models.Booking
	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order(referenceDateExpr + " DESC, id ASC").
		Limit(limit)

	if text != "" {
		like := containsPattern(text)
		query = query.Where("LOWER(customer_name)"+likeClause+" OR LOWER(booking_number)"+likeClause, like, like)
	}

	err := query.Find(&bookings).Error
	return bookings, errors.Wrap(err, "search bookings")
}
