package config

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ledger-reconciliation-backend/internal/models"
)

func InitDB(cnf *Configuration) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cnf.Database.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cnf.Database.MaxOpenConns)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.BankTransaction{},
		&models.CustomerTransaction{},
		&models.CustomerTaxRow{},
		&models.ComparisonResult{},
		&models.ReconciliationRun{},
		&models.MatchAuditLog{},
	)
}
