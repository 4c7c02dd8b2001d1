package commission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements Store with overridable functions.
type fakeStore struct {
	orderWithLinesFunc      func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	productFunc             func(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	affiliateExistsFunc     func(ctx context.Context, affiliateID uuid.UUID) (bool, error)
	countByOrderFunc        func(ctx context.Context, orderID uuid.UUID) (int64, error)
	createFunc              func(ctx context.Context, c *models.Commission) error
	promoteEligibleFunc     func(ctx context.Context, cutoff, now time.Time) (int64, error)
	eligibleByAffiliateFunc func(ctx context.Context, affiliateID uuid.UUID) ([]models.Commission, error)
	getFunc                 func(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	updateStatusFunc        func(ctx context.Context, id uuid.UUID, from, to models.CommissionStatus, stamps map[string]interface{}) (bool, error)
}

func (f *fakeStore) OrderWithLines(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if f.orderWithLinesFunc != nil {
		return f.orderWithLinesFunc(ctx, orderID)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Product(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if f.productFunc != nil {
		return f.productFunc(ctx, productID)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeStore) AffiliateExists(ctx context.Context, affiliateID uuid.UUID) (bool, error) {
	if f.affiliateExistsFunc != nil {
		return f.affiliateExistsFunc(ctx, affiliateID)
	}
	return true, nil
}

func (f *fakeStore) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	if f.countByOrderFunc != nil {
		return f.countByOrderFunc(ctx, orderID)
	}
	return 0, nil
}

func (f *fakeStore) Create(ctx context.Context, c *models.Commission) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, c)
	}
	return nil
}

func (f *fakeStore) PromoteEligible(ctx context.Context, cutoff, now time.Time) (int64, error) {
	if f.promoteEligibleFunc != nil {
		return f.promoteEligibleFunc(ctx, cutoff, now)
	}
	return 0, nil
}

func (f *fakeStore) EligibleByAffiliate(ctx context.Context, affiliateID uuid.UUID) ([]models.Commission, error) {
	if f.eligibleByAffiliateFunc != nil {
		return f.eligibleByAffiliateFunc(ctx, affiliateID)
	}
	return nil, nil
}

func (f *fakeStore) Get(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CommissionStatus, stamps map[string]interface{}) (bool, error) {
	if f.updateStatusFunc != nil {
		return f.updateStatusFunc(ctx, id, from, to, stamps)
	}
	return true, nil
}

func deliveredOrder(lines ...models.OrderLine) *models.Order {
	return &models.Order{
		ID:       uuid.New(),
		Status:   models.OrderStatusDelivered,
		Currency: "EUR",
		Lines:    lines,
	}
}

func TestCreateForDeliveredOrder(t *testing.T) {
	affiliateID := uuid.New()
	productID := uuid.New()
	order := deliveredOrder(models.OrderLine{
		ID:          uuid.New(),
		ProductID:   productID,
		AffiliateID: &affiliateID,
		SalePrice:   150,
		Quantity:    2,
	})

	var created []*models.Commission
	store := &fakeStore{
		orderWithLinesFunc: func(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
			return order, nil
		},
		productFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: productID, CostPrice: 100, RecommendedPrice: 150}, nil
		},
		createFunc: func(ctx context.Context, c *models.Commission) error {
			created = append(created, c)
			return nil
		},
	}

	ledger := NewLedger(store, nil, 14*24*time.Hour)
	result, err := ledger.CreateForDeliveredOrder(context.Background(), order.ID, "order_delivered", nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 1, result.Created)
	require.Len(t, created, 1)
	assert.Equal(t, 100.00, created[0].Amount)
	assert.Equal(t, RuleRecommendedMargin, created[0].RuleCode)
	assert.Equal(t, models.CommissionTypeNormal, created[0].Type)
	assert.Equal(t, models.CommissionStatusCalculated, created[0].Status)
	assert.Equal(t, "EUR", created[0].Currency)
	assert.Equal(t, "order_delivered", created[0].MetaData["trigger"])
}

func TestCreateForDeliveredOrderIdempotent(t *testing.T) {
	orderID := uuid.New()
	store := &fakeStore{
		countByOrderFunc: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 2, nil
		},
		createFunc: func(ctx context.Context, c *models.Commission) error {
			t.Fatal("no commission may be created for an already-processed order")
			return nil
		},
	}

	ledger := NewLedger(store, nil, 14*24*time.Hour)
	result, err := ledger.CreateForDeliveredOrder(context.Background(), orderID, "order_delivered", nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyExists, result.Outcome)
	assert.Equal(t, 0, result.Created)
}

func TestCreateForDeliveredOrderSkipsBadLines(t *testing.T) {
	affiliateID := uuid.New()
	ghostAffiliate := uuid.New()
	goodProduct := uuid.New()
	missingProduct := uuid.New()

	order := deliveredOrder(
		models.OrderLine{ID: uuid.New(), ProductID: goodProduct, SalePrice: 100, Quantity: 1}, // no affiliate
		models.OrderLine{ID: uuid.New(), ProductID: goodProduct, AffiliateID: &ghostAffiliate, SalePrice: 100, Quantity: 1},
		models.OrderLine{ID: uuid.New(), ProductID: missingProduct, AffiliateID: &affiliateID, SalePrice: 100, Quantity: 1},
		models.OrderLine{ID: uuid.New(), ProductID: goodProduct, AffiliateID: &affiliateID, SalePrice: 100, Quantity: 1},
	)

	var created int
	store := &fakeStore{
		orderWithLinesFunc: func(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
			return order, nil
		},
		affiliateExistsFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
			return id == affiliateID, nil
		},
		productFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			if id == missingProduct {
				return nil, errors.New("record not found")
			}
			return &models.Product{ID: id, CostPrice: 60, RecommendedPrice: 100}, nil
		},
		createFunc: func(ctx context.Context, c *models.Commission) error {
			created++
			return nil
		},
	}

	ledger := NewLedger(store, nil, 14*24*time.Hour)
	result, err := ledger.CreateForDeliveredOrder(context.Background(), order.ID, "order_delivered", nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCreated, result.Outcome)
	assert.Equal(t, 1, created)
	assert.Len(t, result.Skipped, 3)
}

func TestCreateForDeliveredOrderDuplicateLineRace(t *testing.T) {
	affiliateID := uuid.New()
	productID := uuid.New()
	order := deliveredOrder(models.OrderLine{
		ID:          uuid.New(),
		ProductID:   productID,
		AffiliateID: &affiliateID,
		SalePrice:   100,
		Quantity:    1,
	})

	store := &fakeStore{
		orderWithLinesFunc: func(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
			return order, nil
		},
		productFunc: func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: productID, CostPrice: 60, RecommendedPrice: 100}, nil
		},
		createFunc: func(ctx context.Context, c *models.Commission) error {
			return ErrDuplicateCommission
		},
	}

	ledger := NewLedger(store, nil, 14*24*time.Hour)
	result, err := ledger.CreateForDeliveredOrder(context.Background(), order.ID, "order_delivered", nil)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoLines, result.Outcome)
	assert.Equal(t, 0, result.Created)
	assert.Len(t, result.Skipped, 1)
}

func TestPromoteEligibleUsesHoldingWindow(t *testing.T) {
	now := time.Now()
	var gotCutoff time.Time
	store := &fakeStore{
		promoteEligibleFunc: func(ctx context.Context, cutoff, n time.Time) (int64, error) {
			gotCutoff = cutoff
			return 3, nil
		},
	}

	ledger := NewLedger(store, nil, 14*24*time.Hour)
	result, err := ledger.PromoteEligible(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Promoted)
	assert.Equal(t, now.Add(-14*24*time.Hour), gotCutoff)
}

func TestApproveRequiresEligibleStatus(t *testing.T) {
	id := uuid.New()
	store := &fakeStore{
		updateStatusFunc: func(ctx context.Context, id uuid.UUID, from, to models.CommissionStatus, stamps map[string]interface{}) (bool, error) {
			return false, nil
		},
	}

	ledger := NewLedger(store, nil, time.Hour)
	err := ledger.Approve(context.Background(), id, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelRefusesPaidCommission(t *testing.T) {
	id := uuid.New()
	withdrawalID := uuid.New()
	store := &fakeStore{
		getFunc: func(ctx context.Context, cid uuid.UUID) (*models.Commission, error) {
			return &models.Commission{
				ID:               id,
				Status:           models.CommissionStatusPaid,
				PaidWithdrawalID: &withdrawalID,
			}, nil
		},
		updateStatusFunc: func(ctx context.Context, id uuid.UUID, from, to models.CommissionStatus, stamps map[string]interface{}) (bool, error) {
			t.Fatal("paid commissions must not be updated")
			return false, nil
		},
	}

	ledger := NewLedger(store, nil, time.Hour)
	err := ledger.Cancel(context.Background(), id, "fraud")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
