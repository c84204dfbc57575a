package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportBatch records one statement upload. Its ID is the importBatchId
// stamped on every transaction created by that upload.
type ImportBatch struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Filename      string    `json:"filename"`
	Format        string    `gorm:"type:varchar(10)" json:"format"`
	TotalRows     int       `json:"total_rows"`
	ImportedCount int       `json:"imported_count"`
	SkippedCount  int       `json:"skipped_count"`
	ImportedBy    string    `gorm:"type:varchar(255)" json:"imported_by"`
	ImportedAt    time.Time `gorm:"index" json:"imported_at"`
	CreatedAt     time.Time `json:"created_at"`
}
