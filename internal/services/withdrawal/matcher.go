package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"github.com/partnerly/backend/internal/utils"
	"github.com/shopspring/decimal"
)

// ErrNoEligibleCommissions is returned when an affiliate has nothing to pay
// out.
var ErrNoEligibleCommissions = errors.New("no eligible commissions for affiliate")

// ErrCommissionReserved is returned when a selected commission was linked to
// another withdrawal concurrently.
var ErrCommissionReserved = errors.New("commission already reserved by another withdrawal")

// Service turns eligible commissions into a withdrawal aggregate. Creating
// the withdrawal, snapshotting the items and stamping the commissions paid
// happens in one transaction, so a commission can never be paid twice.
type Service struct {
	store Store
	audit *utils.AuditLogger
}

// NewService creates a withdrawal matcher.
func NewService(store Store, audit *utils.AuditLogger) *Service {
	return &Service{store: store, audit: audit}
}

// SumAmounts computes a withdrawal total from commission amounts using exact
// decimal arithmetic, so the aggregate always equals the sum of its items.
func SumAmounts(rows []models.Commission) float64 {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(decimal.NewFromFloat(row.Amount))
	}
	out, _ := total.Round(2).Float64()
	return out
}

// CreateWithdrawal selects the affiliate's eligible commissions, creates a
// withdrawal whose amount equals their sum, and atomically reserves each
// commission by stamping paid_withdrawal_id and moving it to paid.
func (s *Service) CreateWithdrawal(ctx context.Context, affiliateID uuid.UUID) (*models.Withdrawal, error) {
	var withdrawal *models.Withdrawal

	err := s.store.Transaction(ctx, func(tx Store) error {
		rows, err := tx.EligibleForPayout(ctx, affiliateID)
		if err != nil {
			return fmt.Errorf("failed to select eligible commissions: %w", err)
		}
		if len(rows) == 0 {
			return ErrNoEligibleCommissions
		}

		withdrawal = &models.Withdrawal{
			AffiliateID: affiliateID,
			Amount:      SumAmounts(rows),
			Currency:    rows[0].Currency,
			Status:      models.WithdrawalStatusOpen,
		}
		if err := tx.CreateWithdrawal(ctx, withdrawal); err != nil {
			return fmt.Errorf("failed to create withdrawal: %w", err)
		}

		now := time.Now()
		items := make([]models.WithdrawalItem, 0, len(rows))
		for _, row := range rows {
			item := models.WithdrawalItem{
				WithdrawalID: withdrawal.ID,
				CommissionID: row.ID,
				Amount:       row.Amount,
			}
			if err := tx.CreateItem(ctx, &item); err != nil {
				if errors.Is(err, ErrCommissionReserved) {
					return fmt.Errorf("commission %s: %w", row.ID, ErrCommissionReserved)
				}
				return fmt.Errorf("failed to create withdrawal item for commission %s: %w", row.ID, err)
			}

			reserved, err := tx.ReserveCommission(ctx, row.ID, withdrawal.ID, now)
			if err != nil {
				return err
			}
			if !reserved {
				return fmt.Errorf("commission %s: %w", row.ID, ErrCommissionReserved)
			}
			items = append(items, item)
		}
		withdrawal.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Created withdrawal %s for affiliate %s (%.2f %s, %d commissions)",
		withdrawal.ID, affiliateID, withdrawal.Amount, withdrawal.Currency, len(withdrawal.Items))

	if s.audit != nil {
		s.audit.LogEvent(ctx, utils.AuditEventWithdrawalCreated, nil, "withdrawal_matcher", map[string]interface{}{
			"withdrawal_id": withdrawal.ID.String(),
			"affiliate_id":  affiliateID.String(),
			"amount":        withdrawal.Amount,
		})
	}

	return withdrawal, nil
}
