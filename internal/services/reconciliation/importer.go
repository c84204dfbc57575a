package reconciliation

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"statement-reconciliation-backend/internal/errs"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/parser"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/pkg/logger"
)

// ImportRequest describes one statement upload. Format may be left empty to
// detect it from ContentType and Filename.
type ImportRequest struct {
	TenantID    uuid.UUID
	UploadedBy  string
	Filename    string
	ContentType string
	Format      parser.Format
	Body        io.Reader
	AutoMatch   bool
}

type ImportResult struct {
	ImportBatchID uuid.UUID                 `json:"import_batch_id"`
	Format        parser.Format             `json:"format"`
	ImportedCount int                       `json:"imported_count"`
	TotalRows     int                       `json:"total_rows"`
	SkippedCount  int                       `json:"skipped_count"`
	SkipReasons   map[string]int            `json:"skip_reasons,omitempty"`
	AutoMatch     *matching.AutoMatchResult `json:"auto_match,omitempty"`
}

// Import parses a statement and stores every accepted record as an unmatched
// transaction under a fresh import batch id. An unsupported format is
// rejected before the body is read.
func (s *ReconciliationService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if req.TenantID == uuid.Nil {
		return nil, errs.NewValidationError("tenant id is required")
	}
	if req.Body == nil {
		return nil, errs.NewValidationError("statement body is required")
	}

	format := req.Format
	if format == "" {
		detected, err := parser.DetectFormat(req.Filename, req.ContentType)
		if err != nil {
			return nil, err
		}
		format = detected
	}

	batchID := parser.NewBatchID()
	log, ctx := logger.With(ctx, logrus.Fields{
		"tenant_id":       req.TenantID,
		"import_batch_id": batchID,
		"format":          format,
	})

	p, err := parser.New(format, log)
	if err != nil {
		return nil, err
	}

	importedAt := s.now().UTC()
	var txs []models.BankTransaction
	stats, err := p.Parse(req.Body, func(pt parser.ParsedTransaction) error {
		raw, err := json.Marshal(pt.Raw)
		if err != nil {
			return errors.Wrap(err, "encode raw row")
		}
		txs = append(txs, models.BankTransaction{
			ID:              uuid.New(),
			TenantID:        req.TenantID,
			TransactionDate: pt.Date,
			Description:     pt.Description,
			Amount:          pt.Amount,
			Reference:       pt.Reference,
			RawData:         datatypes.JSON(raw),
			Status:          models.StatusUnmatched,
			ImportBatchID:   batchID,
			ImportedBy:      req.UploadedBy,
			ImportedAt:      importedAt,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s statement", format)
	}

	if err := s.transactions.CreateMany(ctx, txs); err != nil {
		return nil, err
	}

	result := &ImportResult{
		ImportBatchID: batchID,
		Format:        format,
		ImportedCount: len(txs),
		TotalRows:     stats.TotalRows,
		SkippedCount:  stats.Skipped,
		SkipReasons:   stats.SkipReasons,
	}

	batch := &models.ImportBatch{
		ID:            batchID,
		TenantID:      req.TenantID,
		Filename:      req.Filename,
		Format:        string(format),
		TotalRows:     stats.TotalRows,
		ImportedCount: len(txs),
		SkippedCount:  stats.Skipped,
		ImportedBy:    req.UploadedBy,
		ImportedAt:    importedAt,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		log.WithError(err).Warn("recording import batch failed")
	}

	entry := log.WithFields(logrus.Fields{
		"total_rows": stats.TotalRows,
		"imported":   len(txs),
		"skipped":    stats.Skipped,
	})
	if stats.TotalRows > 0 && len(txs) == 0 {
		entry.WithField("skip_reasons", stats.SkipReasons).Warn("statement had rows but none could be imported")
	} else {
		entry.Info("statement imported")
	}

	if req.AutoMatch && len(txs) > 0 {
		matched, err := s.matcher.AutoMatch(ctx, matching.AutoMatchRequest{
			TenantID: req.TenantID,
			BatchID:  &batchID,
		})
		if err != nil {
			log.WithError(err).Warn("auto-match after import failed")
		}
		result.AutoMatch = matched
	}

	return result, nil
}
