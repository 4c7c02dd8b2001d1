package database

import (
	"fmt"
	"time"

	"github.com/partnerly/backend/internal/config"
	"github.com/partnerly/backend/internal/models"
	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration.
// TranslateError is enabled so unique violations surface as
// gorm.ErrDuplicatedKey, which the stores map to idempotency conflicts.
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return nil, fmt.Errorf("failed to create uuid extension: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Collaborator data the engine reads
		&models.Affiliate{},
		&models.Customer{},
		&models.Product{},
		&models.Order{},
		&models.OrderLine{},

		// Ledger
		&models.Commission{},
		&models.Withdrawal{},
		&models.WithdrawalItem{},

		// Referrals
		&models.ReferralClick{},
		&models.ReferralAttribution{},
		&models.ReferralDispensation{},

		// Infrastructure
		&queue.Job{},
		&utils.AuditEntry{},
	)
}
