package referral

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"gorm.io/gorm"
)

// GormStore is the postgres-backed implementation of TrackerStore and
// DispenserStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection as a referral store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ActiveAffiliateByCode(ctx context.Context, code string) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := s.db.WithContext(ctx).
		Where("referral_code = ? AND active = ?", code, true).
		First(&affiliate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &affiliate, nil
}

func (s *GormStore) CreateClick(ctx context.Context, click *models.ReferralClick) error {
	return s.db.WithContext(ctx).Create(click).Error
}

func (s *GormStore) CreateAttribution(ctx context.Context, attribution *models.ReferralAttribution) error {
	if err := s.db.WithContext(ctx).Create(attribution).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyAttributed
		}
		return err
	}
	return nil
}

func (s *GormStore) MarkVerified(ctx context.Context, newUserID uuid.UUID, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.ReferralAttribution{}).
		Where("new_user_id = ? AND verified = ?", newUserID, false).
		Updates(map[string]interface{}{
			"verified":    true,
			"verified_at": now,
		})
	return result.RowsAffected > 0, result.Error
}

func (s *GormStore) OrderWithCustomer(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Customer").First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *GormStore) DispensationExists(ctx context.Context, referrerID uuid.UUID, reference string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReferralDispensation{}).
		Where("referrer_affiliate_id = ? AND reference = ?", referrerID, reference).
		Count(&count).Error
	return count > 0, err
}

// CreateDispensationAndCredit inserts the dispensation row and increments the
// referrer's point balance in one transaction.
func (s *GormStore) CreateDispensationAndCredit(ctx context.Context, dispensation *models.ReferralDispensation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dispensation).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateDispensation
			}
			return err
		}

		result := tx.Model(&models.Affiliate{}).
			Where("id = ?", dispensation.ReferrerAffiliateID).
			Update("point_balance", gorm.Expr("point_balance + ?", dispensation.Points))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("referrer affiliate not found")
		}
		return nil
	})
}
