package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence boundary of the withdrawal matcher. Transaction
// runs fn against a store bound to a single database transaction, so the
// select, the withdrawal insert and the per-commission reservations commit
// or roll back together.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error
	EligibleForPayout(ctx context.Context, affiliateID uuid.UUID) ([]models.Commission, error)
	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	CreateItem(ctx context.Context, item *models.WithdrawalItem) error
	ReserveCommission(ctx context.Context, commissionID, withdrawalID uuid.UUID, now time.Time) (bool, error)
}

// GormStore implements Store on the shared gorm connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a gorm-backed withdrawal store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction wraps fn in a database transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// EligibleForPayout locks and returns the affiliate's payable commissions.
// Adjustments whose original commission is already paid are excluded; they
// stay on the ledger as informational rows.
func (s *GormStore) EligibleForPayout(ctx context.Context, affiliateID uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("affiliate_id = ? AND status IN ? AND paid_withdrawal_id IS NULL",
			affiliateID, []models.CommissionStatus{models.CommissionStatusEligible, models.CommissionStatusApproved}).
		Where(`NOT (type = ? AND EXISTS (
			SELECT 1 FROM commissions paid
			WHERE paid.order_line_id = commissions.order_line_id
			  AND paid.type = ?
			  AND paid.paid_withdrawal_id IS NOT NULL))`,
			models.CommissionTypeAdjustment, models.CommissionTypeNormal).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateWithdrawal inserts the withdrawal aggregate.
func (s *GormStore) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	return s.db.WithContext(ctx).Create(withdrawal).Error
}

// CreateItem inserts one withdrawal item. The unique index on commission_id
// turns a concurrent double-spend into ErrCommissionReserved.
func (s *GormStore) CreateItem(ctx context.Context, item *models.WithdrawalItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrCommissionReserved
		}
		return err
	}
	return nil
}

// ReserveCommission stamps the commission paid and links it to the
// withdrawal. It reports false when another withdrawal claimed the row
// between select and update.
func (s *GormStore) ReserveCommission(ctx context.Context, commissionID, withdrawalID uuid.UUID, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Commission{}).
		Where("id = ? AND status IN ? AND paid_withdrawal_id IS NULL",
			commissionID, []models.CommissionStatus{models.CommissionStatusEligible, models.CommissionStatusApproved}).
		Updates(map[string]interface{}{
			"status":             models.CommissionStatusPaid,
			"approved_at":        now,
			"paid_at":            now,
			"paid_withdrawal_id": withdrawalID,
			"updated_at":         now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to reserve commission %s: %w", commissionID, result.Error)
	}
	return result.RowsAffected > 0, nil
}
