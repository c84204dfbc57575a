package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/internal/services/reconciliation"
	"statement-reconciliation-backend/internal/services/reporting"
	"statement-reconciliation-backend/pkg/logger"
)

type app struct {
	log       *logrus.Logger
	recon     *reconciliation.ReconciliationService
	reporting *reporting.ReportingService
	close     func()
}

// openApp connects to the database and builds the services the same way the
// HTTP server does.
func openApp() (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return nil, err
	}

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := config.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	transactionRepo := repository.NewBankTransactionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	batchRepo := repository.NewImportBatchRepository(db)
	engine := matching.NewEngine(transactionRepo, bookingRepo, matching.NewScorer(matching.DefaultWeights()), cfg.Matching, log)

	return &app{
		log:       log,
		recon:     reconciliation.NewReconciliationService(transactionRepo, bookingRepo, batchRepo, engine, log),
		reporting: reporting.NewReportingService(transactionRepo),
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	}, nil
}

// context returns the command context carrying a logger tagged with the
// command name and tenant.
func (a *app) context(cmd *cobra.Command, tenantID fmt.Stringer) context.Context {
	entry := logger.WithComponent(a.log, "cli").WithFields(logrus.Fields{
		"command":   cmd.Name(),
		"tenant_id": tenantID.String(),
	})
	return logger.ToContext(cmd.Context(), entry)
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
