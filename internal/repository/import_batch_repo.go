package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"statement-reconciliation-backend/internal/models"
)

type ImportBatchRepository struct {
	db *gorm.DB
}

func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

func (r *ImportBatchRepository) Create(ctx context.Context, batch *models.ImportBatch) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(batch).Error, "insert import batch")
}

func (r *ImportBatchRepository) List(ctx context.Context, tenantID uuid.UUID) ([]models.ImportBatch, error) {
	var batches []models.ImportBatch
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("imported_at DESC, id ASC").
		Find(&batches).Error
	return batches, errors.Wrap(err, "list import batches")
}

func (r *ImportBatchRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.ImportBatch{}).Error
	return errors.Wrap(err, "delete import batch")
}
