package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	handler "statement-reconciliation-backend/internal/handlers"
	"statement-reconciliation-backend/internal/repository"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/internal/services/reconciliation"
	"statement-reconciliation-backend/internal/services/reporting"
)

// RegisterRoutes wires repositories, services and handlers onto r.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, matchConfig matching.Config, log logrus.FieldLogger) {
	transactionRepo := repository.NewBankTransactionRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	batchRepo := repository.NewImportBatchRepository(db)

	engine := matching.NewEngine(
		transactionRepo,
		bookingRepo,
		matching.NewScorer(matching.DefaultWeights()),
		matchConfig,
		log,
	)
	reconService := reconciliation.NewReconciliationService(transactionRepo, bookingRepo, batchRepo, engine, log)
	reportService := reporting.NewReportingService(transactionRepo)

	Mount(r, handler.NewReconciliationHandler(reconService), handler.NewReportHandler(reportService), log)
}

// Mount registers the API routes for already constructed handlers.
func Mount(r *gin.Engine, recon *handler.ReconciliationHandler, reports *handler.ReportHandler, log logrus.FieldLogger) {
	r.Use(handler.RequestLogger(log))

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	scoped := api.Group("")
	scoped.Use(handler.TenantScope())

	scoped.POST("/statements/import", recon.ImportStatement)
	scoped.POST("/reconciliation/auto-match", recon.AutoMatch)

	// Transaction-level routes
	tx := scoped.Group("/transactions")
	tx.GET("", recon.ListTransactions)
	tx.GET("/:id", recon.GetTransaction)
	tx.GET("/:id/best-match", recon.BestMatch)
	tx.POST("/:id/match", recon.ManualMatch)
	tx.POST("/:id/unmatch", recon.Unmatch)
	tx.POST("/:id/ignore", recon.Ignore)
	tx.DELETE("/:id", recon.DeleteTransaction)

	batches := scoped.Group("/batches")
	batches.GET("", recon.ListBatches)
	batches.DELETE("/:batchId", recon.DeleteBatch)

	scoped.GET("/bookings", recon.SearchBookings)

	reportsGroup := scoped.Group("/reports")
	{
		reportsGroup.GET("/summary", reports.Summary)
		reportsGroup.GET("/batches", reports.BatchRollup)
	}
}
