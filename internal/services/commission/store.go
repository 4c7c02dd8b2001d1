package commission

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"gorm.io/gorm"
)

// GormStore is the postgres-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection as a ledger store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) OrderWithLines(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Lines").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) Product(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *GormStore) AffiliateExists(ctx context.Context, affiliateID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Affiliate{}).Where("id = ?", affiliateID).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Commission{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

func (s *GormStore) Create(ctx context.Context, c *models.Commission) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCommission
		}
		return err
	}
	return nil
}

// PromoteEligible is a single conditional update keyed by the current status,
// which makes concurrent sweeper runs safe.
func (s *GormStore) PromoteEligible(ctx context.Context, cutoff, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.Commission{}).
		Where("status = ? AND created_at <= ?", models.CommissionStatusCalculated, cutoff).
		Updates(map[string]interface{}{
			"status":      models.CommissionStatusEligible,
			"eligible_at": now,
			"updated_at":  now,
		})
	return result.RowsAffected, result.Error
}

// EligibleByAffiliate returns unreserved eligible commissions. Adjustment
// rows whose original line was already paid out are excluded; they stay on
// record as reconciliation entries only.
func (s *GormStore) EligibleByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	err := s.db.WithContext(ctx).
		Where("affiliate_id = ? AND status = ? AND paid_withdrawal_id IS NULL", affiliateID, models.CommissionStatusEligible).
		Where(`NOT (type = ? AND EXISTS (
			SELECT 1 FROM commissions paid
			WHERE paid.order_line_id = commissions.order_line_id
			  AND paid.type = ?
			  AND paid.paid_withdrawal_id IS NOT NULL))`,
			models.CommissionTypeAdjustment, models.CommissionTypeNormal).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var c models.Commission
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateStatus performs a conditional status transition. It returns false
// when the row was not in the expected source status, which callers treat as
// a lost race rather than an error.
func (s *GormStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CommissionStatus, stamps map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range stamps {
		updates[k] = v
	}

	result := s.db.WithContext(ctx).Model(&models.Commission{}).
		Where("id = ? AND status = ? AND paid_withdrawal_id IS NULL", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
