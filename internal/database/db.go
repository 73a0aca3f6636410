package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vendra-pipeline/internal/database/models"
)

// NewConnection opens the SQLite store backing a pipeline run. Every stage
// receives this handle explicitly; there is no package-level connection.
func NewConnection(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	// Single writer, single process. One open connection keeps SQLite happy.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

func MigratePipelineDB(db *gorm.DB) error {
	db.AutoMigrate(&models.Sale{})
	db.AutoMigrate(&models.Purchase{})
	db.AutoMigrate(&models.InventorySnapshot{})
	db.AutoMigrate(&models.Product{})
	db.AutoMigrate(&models.FactRow{})
	db.AutoMigrate(&models.VendorSummary{})
	db.AutoMigrate(&models.PipelineRun{})
	return nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
}
