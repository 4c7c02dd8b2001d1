package commission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
)

// Outcome classifies what a ledger operation did, so callers branch on kind
// instead of matching strings.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeAlreadyExists Outcome = "already_exists"
	OutcomeNoLines       Outcome = "no_eligible_lines"
)

// ErrDuplicateCommission is returned by stores when the unique index on
// (order_line_id, type=normal) rejects an insert. The ledger treats it as an
// idempotency conflict, not a failure.
var ErrDuplicateCommission = errors.New("commission already exists for order line")

// ErrInvalidTransition is returned when a status change is not allowed by the
// commission state machine.
var ErrInvalidTransition = errors.New("invalid commission status transition")

// Store is the persistence surface the ledger needs. The gorm implementation
// lives in store.go; tests substitute a fake.
type Store interface {
	OrderWithLines(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Product(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	AffiliateExists(ctx context.Context, affiliateID uuid.UUID) (bool, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	Create(ctx context.Context, c *models.Commission) error
	PromoteEligible(ctx context.Context, cutoff, now time.Time) (int64, error)
	EligibleByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]models.Commission, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CommissionStatus, stamps map[string]interface{}) (bool, error)
}

// Auditor records ledger events for the audit trail. utils.AuditLogger is the
// production implementation.
type Auditor interface {
	CommissionEvent(ctx context.Context, event string, orderID uuid.UUID, trigger string, details map[string]interface{})
}

// CreateResult reports what CreateForDeliveredOrder did for one signal.
type CreateResult struct {
	Outcome Outcome  `json:"outcome"`
	Created int      `json:"created"`
	Skipped []string `json:"skipped"`
}

// PromoteResult reports a sweeper run.
type PromoteResult struct {
	Promoted int64 `json:"promoted"`
}

// Ledger owns commission rows and their status transitions. No other
// component writes status, amount or paid_withdrawal_id.
type Ledger struct {
	store         Store
	audit         Auditor
	holdingWindow time.Duration
}

// NewLedger creates a commission ledger. holdingWindow is the eligibility
// holding period applied by PromoteEligible.
func NewLedger(store Store, audit Auditor, holdingWindow time.Duration) *Ledger {
	return &Ledger{
		store:         store,
		audit:         audit,
		holdingWindow: holdingWindow,
	}
}

// CreateForDeliveredOrder converts a delivered order into commission rows,
// one per order line with a resolvable affiliate and product. The operation
// is idempotent: a repeated delivery signal for an order that already has
// commissions is a no-op. Per-line failures are skipped and reported so one
// bad line never blocks the rest of the order.
func (l *Ledger) CreateForDeliveredOrder(ctx context.Context, orderID uuid.UUID, trigger string, metadata map[string]interface{}) (*CreateResult, error) {
	existing, err := l.store.CountByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing commissions for order %s: %w", orderID, err)
	}
	if existing > 0 {
		log.Printf("Commissions already exist for order %s, skipping (trigger=%s)", orderID, trigger)
		return &CreateResult{Outcome: OutcomeAlreadyExists}, nil
	}

	order, err := l.store.OrderWithLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	result := &CreateResult{Outcome: OutcomeNoLines}
	for _, line := range order.Lines {
		if line.AffiliateID == nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %s: no affiliate", line.ID))
			continue
		}

		ok, err := l.store.AffiliateExists(ctx, *line.AffiliateID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve affiliate %s: %w", *line.AffiliateID, err)
		}
		if !ok {
			log.Printf("Skipping line %s of order %s: affiliate %s not found", line.ID, orderID, *line.AffiliateID)
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %s: affiliate not found", line.ID))
			continue
		}

		product, err := l.store.Product(ctx, line.ProductID)
		if err != nil {
			log.Printf("Skipping line %s of order %s: product %s: %v", line.ID, orderID, line.ProductID, err)
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %s: product not found", line.ID))
			continue
		}

		eval := Evaluate(LineInput{
			SalePrice:        line.SalePrice,
			Quantity:         line.Quantity,
			CostPrice:        product.CostPrice,
			RecommendedPrice: product.RecommendedPrice,
			FixedCommission:  product.FixedCommission,
		})

		c := &models.Commission{
			OrderID:     order.ID,
			OrderLineID: line.ID,
			AffiliateID: *line.AffiliateID,
			Type:        models.CommissionTypeNormal,
			BaseAmount:  line.SalePrice,
			Rate:        eval.Rate,
			Quantity:    line.Quantity,
			Amount:      eval.Amount,
			Currency:    order.Currency,
			Status:      models.CommissionStatusCalculated,
			RuleCode:    eval.RuleCode,
			MetaData: models.JSON{
				"trigger":  trigger,
				"order_id": order.ID.String(),
			},
		}
		for k, v := range metadata {
			c.MetaData[k] = v
		}

		if err := l.store.Create(ctx, c); err != nil {
			if errors.Is(err, ErrDuplicateCommission) {
				log.Printf("Commission for line %s already exists, skipping", line.ID)
				result.Skipped = append(result.Skipped, fmt.Sprintf("line %s: already exists", line.ID))
				continue
			}
			return nil, fmt.Errorf("failed to create commission for line %s: %w", line.ID, err)
		}
		result.Created++
	}

	if result.Created > 0 {
		result.Outcome = OutcomeCreated
	}

	if l.audit != nil {
		l.audit.CommissionEvent(ctx, "COMMISSIONS_CREATED", orderID, trigger, map[string]interface{}{
			"created":  result.Created,
			"skipped":  result.Skipped,
			"metadata": metadata,
		})
	}

	return result, nil
}

// PromoteEligible flips calculated commissions whose holding window has
// elapsed to eligible. The underlying update is conditional on the current
// status, so concurrent sweeper runs promote each row at most once.
func (l *Ledger) PromoteEligible(ctx context.Context, now time.Time) (*PromoteResult, error) {
	cutoff := now.Add(-l.holdingWindow)
	promoted, err := l.store.PromoteEligible(ctx, cutoff, now)
	if err != nil {
		return nil, fmt.Errorf("failed to promote eligible commissions: %w", err)
	}
	if promoted > 0 {
		log.Printf("Promoted %d commissions to eligible", promoted)
	}
	return &PromoteResult{Promoted: promoted}, nil
}

// SelectEligibleCommissions returns the commissions of an affiliate that a
// withdrawal may consume. Adjustments whose original commission was already
// paid are informational only and never returned.
func (l *Ledger) SelectEligibleCommissions(ctx context.Context, affiliateID uuid.UUID) ([]models.Commission, error) {
	rows, err := l.store.EligibleByAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to select eligible commissions: %w", err)
	}
	return rows, nil
}

// Approve moves an eligible commission to approved.
func (l *Ledger) Approve(ctx context.Context, id uuid.UUID, now time.Time) error {
	return l.transition(ctx, id, models.CommissionStatusEligible, models.CommissionStatusApproved, map[string]interface{}{
		"approved_at": now,
	})
}

// Reject moves an eligible commission to rejected.
func (l *Ledger) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	return l.transition(ctx, id, models.CommissionStatusEligible, models.CommissionStatusRejected, map[string]interface{}{
		"notes": reason,
	})
}

// Cancel cancels a commission that has not been paid.
func (l *Ledger) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	c, err := l.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load commission %s: %w", id, err)
	}
	if c.IsPaid() {
		return fmt.Errorf("commission %s: %w", id, ErrInvalidTransition)
	}
	return l.transition(ctx, id, c.Status, models.CommissionStatusCanceled, map[string]interface{}{
		"notes": reason,
	})
}

func (l *Ledger) transition(ctx context.Context, id uuid.UUID, from, to models.CommissionStatus, stamps map[string]interface{}) error {
	if !models.CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}
	updated, err := l.store.UpdateStatus(ctx, id, from, to, stamps)
	if err != nil {
		return fmt.Errorf("failed to update commission %s status: %w", id, err)
	}
	if !updated {
		return fmt.Errorf("commission %s not in status %s: %w", id, from, ErrInvalidTransition)
	}
	if l.audit != nil {
		l.audit.CommissionEvent(ctx, "COMMISSION_STATUS_CHANGED", uuid.Nil, "ledger", map[string]interface{}{
			"commission_id": id.String(),
			"from":          string(from),
			"to":            string(to),
		})
	}
	return nil
}
