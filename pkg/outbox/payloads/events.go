package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderConfirmedItem mirrors an order line in the confirmation event.
type OrderConfirmedItem struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// OrderConfirmedEvent is emitted once per order, in the transaction that
// created it.
type OrderConfirmedEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	Status         enums.OrderStatus    `json:"status"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method"`
	Items          []OrderConfirmedItem `json:"items"`
	SubtotalCents  int64                `json:"subtotal_cents"`
	DiscountCents  int64                `json:"discount_cents"`
	TotalCents     int64                `json:"total_cents"`
	CreatedAt      time.Time            `json:"created_at"`
}

// LoyaltyPointsAppliedEvent reports the points movement that accompanied an order.
type LoyaltyPointsAppliedEvent struct {
	CustomerID     uuid.UUID            `json:"customer_id"`
	OrderID        uuid.UUID            `json:"order_id"`
	RedemptionMode enums.RedemptionMode `json:"redemption_mode"`
	PointsEarned   int64                `json:"points_earned"`
	PointsRedeemed int64                `json:"points_redeemed"`
	BalanceAfter   int64                `json:"balance_after"`
}
