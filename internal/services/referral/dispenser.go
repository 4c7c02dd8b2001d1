package referral

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"github.com/partnerly/backend/internal/utils"
)

// PointsPerDeliveredOrder is the fixed award for one qualifying delivered
// order of a referred buyer.
const PointsPerDeliveredOrder = 10

// DispenseOutcome classifies what a dispensation attempt did.
type DispenseOutcome string

const (
	DispenseOutcomeDispensed  DispenseOutcome = "dispensed"
	DispenseOutcomeNoReferrer DispenseOutcome = "no_referrer"
	DispenseOutcomeDuplicate  DispenseOutcome = "already_dispensed"
)

// ErrDuplicateDispensation is returned by stores when the unique
// (referrer, reference) index rejects an insert.
var ErrDuplicateDispensation = errors.New("dispensation already exists for reference")

// DispenserStore is the persistence surface of the point dispenser. The
// CreateDispensationAndCredit implementation must insert the dispensation row
// and increment the referrer's point balance in one transaction: balance and
// ledger entry must never diverge.
type DispenserStore interface {
	OrderWithCustomer(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	DispensationExists(ctx context.Context, referrerID uuid.UUID, reference string) (bool, error)
	CreateDispensationAndCredit(ctx context.Context, dispensation *models.ReferralDispensation) error
}

// DispenseResult reports a dispensation attempt.
type DispenseResult struct {
	Outcome DispenseOutcome              `json:"outcome"`
	Points  int64                        `json:"points,omitempty"`
	Row     *models.ReferralDispensation `json:"-"`
}

// Dispenser awards referral points for delivered orders of referred buyers.
// It is the single writer of affiliate point balances on the delivery path,
// and runs as an independent consumer of the delivery signal: it never
// depends on the commission ledger's success or failure.
type Dispenser struct {
	store DispenserStore
	audit *utils.AuditLogger
}

// NewDispenser creates a point dispenser.
func NewDispenser(store DispenserStore, audit *utils.AuditLogger) *Dispenser {
	return &Dispenser{store: store, audit: audit}
}

// HandleOrderDelivered awards points to the referrer of the order's buyer,
// at most once per order. Errors propagate to the queue for retry; they are
// never swallowed into a successful-looking result.
func (d *Dispenser) HandleOrderDelivered(ctx context.Context, orderID uuid.UUID, trigger string, metadata map[string]interface{}) (*DispenseResult, error) {
	order, err := d.store.OrderWithCustomer(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	if order.Customer.ReferredByID == nil {
		return &DispenseResult{Outcome: DispenseOutcomeNoReferrer}, nil
	}
	referrerID := *order.Customer.ReferredByID

	reference := utils.OrderReference(order.ID)
	exists, err := d.store.DispensationExists(ctx, referrerID, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to check dispensation %s: %w", reference, err)
	}
	if exists {
		log.Printf("Points for order %s already dispensed to referrer %s, skipping (trigger=%s)", order.ID, referrerID, trigger)
		return &DispenseResult{Outcome: DispenseOutcomeDuplicate}, nil
	}

	dispensation := &models.ReferralDispensation{
		ReferrerAffiliateID: referrerID,
		Points:              PointsPerDeliveredOrder,
		Comment:             fmt.Sprintf("Referral points for delivered order %s", order.ID),
		Reference:           reference,
		MetaData: models.JSON{
			"order_id":       order.ID.String(),
			"buyer_id":       order.CustomerID.String(),
			"trigger":        trigger,
			"order_total":    order.Total,
			"order_currency": order.Currency,
		},
	}
	for k, v := range metadata {
		dispensation.MetaData[k] = v
	}

	if err := d.store.CreateDispensationAndCredit(ctx, dispensation); err != nil {
		if errors.Is(err, ErrDuplicateDispensation) {
			log.Printf("Dispensation %s raced with a duplicate trigger, skipping", reference)
			return &DispenseResult{Outcome: DispenseOutcomeDuplicate}, nil
		}
		return nil, fmt.Errorf("failed to dispense points for order %s (referrer %s): %w", order.ID, referrerID, err)
	}

	log.Printf("Dispensed %d points to referrer %s for order %s", PointsPerDeliveredOrder, referrerID, order.ID)

	if d.audit != nil {
		d.audit.LogEvent(ctx, utils.AuditEventPointsDispensed, &order.ID, trigger, map[string]interface{}{
			"referrer_affiliate_id": referrerID.String(),
			"points":                PointsPerDeliveredOrder,
			"reference":             reference,
		})
	}

	return &DispenseResult{
		Outcome: DispenseOutcomeDispensed,
		Points:  PointsPerDeliveredOrder,
		Row:     dispensation,
	}, nil
}
