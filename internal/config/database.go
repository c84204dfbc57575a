package config

import (
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"statement-reconciliation-backend/internal/models"
)

// InitDB opens the Postgres connection pool.
func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database url is not set (RECON_DATABASE_URL)")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates or updates the tables owned by this service. Bookings are
// migrated too so a standalone deployment has a candidate pool to read.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.BankTransaction{},
		&models.Booking{},
		&models.ImportBatch{},
	)
}
