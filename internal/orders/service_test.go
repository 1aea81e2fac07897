package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type gormTx struct{ db *gorm.DB }

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type testHarness struct {
	db  *gorm.DB
	svc Service
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	db := setupOrdersTestDB(t)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)
	engine, err := pricing.NewEngine(pricing.Rates{InstantDiscount: 100})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Tx:     gormTx{db: db},
		Ledger: ledgerSvc,
		Engine: engine,
		Outbox: outbox.NewService(outbox.NewRepository(db), nil),
	})
	require.NoError(t, err)
	return &testHarness{db: db, svc: svc}
}

func (h *testHarness) seedBalance(t *testing.T, customerID uuid.UUID, points int64) {
	t.Helper()
	require.NoError(t, h.db.Create(&models.LoyaltyAccount{CustomerID: customerID, PointsBalance: points}).Error)
}

func (h *testHarness) balance(t *testing.T, customerID uuid.UUID) int64 {
	t.Helper()
	profile, err := h.svc.Profile(context.Background(), customerID)
	require.NoError(t, err)
	return profile.LoyaltyPoints
}

func (h *testHarness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func butterChickenOrder(customerID uuid.UUID) PlaceOrderRequest {
	return PlaceOrderRequest{
		CustomerID:     customerID,
		CustomerName:   "Asha Patel",
		Items:          []PlaceOrderItem{{Name: "Butter Chicken", Category: "Mains", Quantity: 2, Price: 1250}},
		Total:          2300,
		PointsUsed:     200,
		RedemptionMode: enums.RedemptionModeStandard,
		PaymentMethod:  enums.PaymentMethodCash,
		DeliveryMethod: enums.DeliveryMethodPickup,
		IdempotencyKey: uuid.NewString(),
	}
}

func TestPlaceOrderAppliesPointsAndEmitsEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := uuid.New()
	h.seedBalance(t, customerID, 250)

	order, err := h.svc.PlaceOrder(ctx, butterChickenOrder(customerID))
	require.NoError(t, err)
	assert.False(t, order.Replayed)
	assert.Equal(t, "23.00", order.Total.String())
	assert.Equal(t, int64(200), order.PointsRedeemed)
	assert.Equal(t, int64(25), order.PointsEarned)
	assert.Equal(t, enums.OrderStatusPending, order.Status)

	assert.Equal(t, int64(75), h.balance(t, customerID))
	assert.Equal(t, int64(2), h.count(t, &models.OutboxEvent{}))
	assert.Equal(t, int64(2), h.count(t, &models.LoyaltyLedgerEvent{}))
}

func TestProfileReportsLifetimeCounters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := uuid.New()
	h.seedBalance(t, customerID, 250)

	_, err := h.svc.PlaceOrder(ctx, butterChickenOrder(customerID))
	require.NoError(t, err)

	profile, err := h.svc.Profile(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), profile.LoyaltyPoints)
	assert.Equal(t, int64(25), profile.LifetimeEarned)
	assert.Equal(t, int64(200), profile.LifetimeSpent)

	empty, err := h.svc.Profile(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, empty.LoyaltyPoints)
	assert.Zero(t, empty.LifetimeEarned)
}

func TestPlaceOrderIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := uuid.New()
	h.seedBalance(t, customerID, 250)
	req := butterChickenOrder(customerID)

	first, err := h.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	second, err := h.svc.PlaceOrder(ctx, req)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, int64(1), h.count(t, &models.Order{}))
	assert.Equal(t, int64(2), h.count(t, &models.LoyaltyLedgerEvent{}))
	assert.Equal(t, int64(75), h.balance(t, customerID))

	changed := req
	changed.Items = append(changed.Items, PlaceOrderItem{Name: "Naan", Category: "Breads", Quantity: 1, Price: 300})
	changed.Total = 2600
	_, err = h.svc.PlaceOrder(ctx, changed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeIdempotency), "got %v", err)
}

func TestPlaceOrderRejectsTotalMismatch(t *testing.T) {
	h := newHarness(t)
	customerID := uuid.New()
	h.seedBalance(t, customerID, 250)
	req := butterChickenOrder(customerID)
	req.Total = 2500

	_, err := h.svc.PlaceOrder(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePricingInvariant), "got %v", err)
	assert.Equal(t, int64(0), h.count(t, &models.Order{}))
	assert.Equal(t, int64(250), h.balance(t, customerID))
}

func TestPlaceOrderRejectsStaleBalance(t *testing.T) {
	h := newHarness(t)
	customerID := uuid.New()
	h.seedBalance(t, customerID, 150)

	_, err := h.svc.PlaceOrder(context.Background(), butterChickenOrder(customerID))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientPoints), "got %v", err)
	assert.Equal(t, int64(0), h.count(t, &models.OutboxEvent{}))
}

func TestPlaceOrderInstantRedemption(t *testing.T) {
	h := newHarness(t)
	customerID := uuid.New()
	h.seedBalance(t, customerID, 50)

	req := PlaceOrderRequest{
		CustomerID:     customerID,
		CustomerName:   "Ravi",
		Items:          []PlaceOrderItem{{Name: "Thali", Category: "Mains", Quantity: 2, Price: 6000}},
		Total:          11900,
		RedemptionMode: enums.RedemptionModeInstant,
		PointsUsed:     100,
		PaymentMethod:  enums.PaymentMethodCard,
		DeliveryMethod: enums.DeliveryMethodHome,
		Address:        "1 High St",
		City:           "York",
		PostalCode:     "YO1 7HH",
		IdempotencyKey: uuid.NewString(),
	}
	order, err := h.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1.00", order.Totals.InstantDiscount.String())
	require.NotNil(t, order.DeliveryAddress)
	// 50 + 120 earned - 100 spent
	assert.Equal(t, int64(70), h.balance(t, customerID))
}

func TestPlaceOrderValidatesShape(t *testing.T) {
	h := newHarness(t)
	req := butterChickenOrder(uuid.New())
	req.DeliveryMethod = enums.DeliveryMethodHome
	req.Items = nil

	_, err := h.svc.PlaceOrder(context.Background(), req)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "items")
	assert.Contains(t, details, "address")
	assert.Contains(t, details, "postalCode")
}

func TestGetAndListScopedToCustomer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customerID := uuid.New()
	h.seedBalance(t, customerID, 250)

	order, err := h.svc.PlaceOrder(ctx, butterChickenOrder(customerID))
	require.NoError(t, err)

	got, err := h.svc.Get(ctx, customerID, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, got.OrderID)

	_, err = h.svc.Get(ctx, uuid.New(), order.OrderID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := h.svc.List(ctx, customerID, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)

	_, err = h.svc.List(ctx, customerID, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
