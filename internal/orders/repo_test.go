package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  idempotency_key TEXT NOT NULL,
  request_hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  delivery_method TEXT NOT NULL,
  delivery_address TEXT,
  payment_method TEXT NOT NULL,
  redemption_mode TEXT NOT NULL DEFAULT 'none',
  subtotal_cents INTEGER NOT NULL,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  standard_discount_cents INTEGER NOT NULL DEFAULT 0,
  instant_discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL CHECK (total_cents >= 0),
  points_earned INTEGER NOT NULL DEFAULT 0,
  points_redeemed INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_customer_idempotency_key ON orders (customer_id, idempotency_key);`,
		`
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME
);`,
		`
CREATE TABLE IF NOT EXISTS loyalty_accounts (
  customer_id TEXT PRIMARY KEY,
  points_balance INTEGER NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
  lifetime_earned INTEGER NOT NULL DEFAULT 0,
  lifetime_spent INTEGER NOT NULL DEFAULT 0,
  version INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`
CREATE TABLE IF NOT EXISTS loyalty_ledger_events (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  order_id TEXT,
  type TEXT NOT NULL,
  points INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
		`
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  ordering_key TEXT,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newOrderRow(customerID uuid.UUID, createdAt time.Time, key string) *models.Order {
	id := uuid.New()
	return &models.Order{
		ID:             id,
		CustomerID:     customerID,
		CustomerName:   "Asha",
		IdempotencyKey: key,
		RequestHash:    "hash-" + key,
		Status:         enums.OrderStatusPending,
		DeliveryMethod: enums.DeliveryMethodHome,
		DeliveryAddress: &types.DeliveryAddress{
			Line1: "12 Curry Lane", City: "Leeds", PostalCode: "LS1 4AP",
		},
		PaymentMethod:  enums.PaymentMethodCash,
		RedemptionMode: enums.RedemptionModeNone,
		SubtotalCents:  1000,
		TotalCents:     1000,
		PointsEarned:   10,
		CreatedAt:      createdAt,
		Items: []models.OrderLineItem{
			{ID: uuid.New(), OrderID: id, Position: 1, Name: "Naan", Category: "Breads", UnitPriceCents: 250, Qty: 2, TotalCents: 500},
			{ID: uuid.New(), OrderID: id, Position: 0, Name: "Dal", Category: "Mains", UnitPriceCents: 500, Qty: 1, TotalCents: 500},
		},
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customerID := uuid.New()

	order := newOrderRow(customerID, time.Now().UTC(), "key-1")
	require.NoError(t, repo.Create(ctx, order))

	found, err := repo.FindByIdempotencyKey(ctx, customerID, "key-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	require.Len(t, found.Items, 2)
	assert.Equal(t, "Dal", found.Items[0].Name)
	require.NotNil(t, found.DeliveryAddress)
	assert.Equal(t, "LS1 4AP", found.DeliveryAddress.PostalCode)

	_, err = repo.FindByID(ctx, uuid.New(), order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	dup := newOrderRow(customerID, time.Now().UTC(), "key-1")
	assert.Error(t, repo.Create(ctx, dup))
}

func TestRepositoryListByCustomerPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customerID := uuid.New()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newOrderRow(customerID, base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("k-%d", i))))
	}
	require.NoError(t, repo.Create(ctx, newOrderRow(uuid.New(), base, "other")))

	page, next, err := repo.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "k-2", page[0].IdempotencyKey)
	assert.NotEmpty(t, next)

	rest, next, err := repo.ListByCustomer(ctx, customerID, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "k-0", rest[0].IdempotencyKey)
	assert.Empty(t, next)
}
