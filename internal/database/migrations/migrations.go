package migrations

import (
	"log"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// migrationsList holds all migrations in order
var migrationsList = []*gormigrate.Migration{
	{
		// The unique indexes backing the engine's idempotency keys.
		// AutoMigrate cannot express the partial index, so they live here.
		ID: "000001_ledger_idempotency_indexes",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_commissions_one_per_line
				ON commissions (order_line_id)
				WHERE type = 'normal' AND deleted_at IS NULL
			`).Error; err != nil {
				return err
			}
			if err := tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_dispensations_referrer_reference
				ON referral_dispensations (referrer_affiliate_id, reference)
			`).Error; err != nil {
				return err
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec(`DROP INDEX IF EXISTS idx_commissions_one_per_line`).Error; err != nil {
				return err
			}
			return tx.Exec(`DROP INDEX IF EXISTS idx_dispensations_referrer_reference`).Error
		},
	},
	{
		ID: "000002_nonnegative_commission_check",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				ALTER TABLE commissions
				ADD CONSTRAINT chk_commissions_amount_sign
				CHECK (type = 'adjustment' OR amount >= 0)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`ALTER TABLE commissions DROP CONSTRAINT IF EXISTS chk_commissions_amount_sign`).Error
		},
	},
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)

	if err := m.Migrate(); err != nil {
		log.Printf("Could not migrate: %v", err)
		return err
	}
	log.Printf("Migrations ran successfully")
	return nil
}
