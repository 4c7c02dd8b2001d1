package backfill

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"gorm.io/gorm"
)

// GormStore is the postgres-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection as a backfill store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CommissionChunk pages over normal commissions of delivered orders in a
// stable order, joined with the line, product and affiliate data needed for
// re-pricing. Deleted products come back as nil.
func (s *GormStore) CommissionChunk(ctx context.Context, offset, limit int) ([]LineRecord, error) {
	var commissions []models.Commission
	err := s.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = commissions.order_id").
		Where("commissions.type = ? AND orders.status = ?", models.CommissionTypeNormal, models.OrderStatusDelivered).
		Order("commissions.created_at ASC, commissions.id ASC").
		Offset(offset).
		Limit(limit).
		Find(&commissions).Error
	if err != nil {
		return nil, err
	}

	records := make([]LineRecord, 0, len(commissions))
	for _, c := range commissions {
		record := LineRecord{Commission: c}

		var line models.OrderLine
		if err := s.db.WithContext(ctx).First(&line, "id = ?", c.OrderLineID).Error; err != nil {
			return nil, err
		}
		record.Line = line

		var product models.Product
		err := s.db.WithContext(ctx).First(&product, "id = ?", line.ProductID).Error
		switch {
		case err == nil:
			record.Product = &product
		case errors.Is(err, gorm.ErrRecordNotFound):
			record.Product = nil
		default:
			return nil, err
		}

		var affiliate models.Affiliate
		if err := s.db.WithContext(ctx).First(&affiliate, "id = ?", c.AffiliateID).Error; err == nil {
			record.AffiliateEmail = affiliate.Email
		}

		records = append(records, record)
	}
	return records, nil
}

// HasBackfillAdjustment reports whether a backfill adjustment already exists
// for an order line. The notes marker is the idempotency detector.
func (s *GormStore) HasBackfillAdjustment(ctx context.Context, orderLineID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Commission{}).
		Where("order_line_id = ? AND type = ? AND notes LIKE ?",
			orderLineID, models.CommissionTypeAdjustment, "[backfill%").
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreateAdjustment(ctx context.Context, adjustment *models.Commission) error {
	return s.db.WithContext(ctx).Create(adjustment).Error
}
