package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is a confirmed storefront order. Rows are immutable once written apart
// from the admin-owned status column.
type Order struct {
	ID                    uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID            uuid.UUID              `gorm:"column:customer_id;type:uuid;not null"`
	CustomerName          string                 `gorm:"column:customer_name;not null"`
	IdempotencyKey        string                 `gorm:"column:idempotency_key;not null"`
	RequestHash           string                 `gorm:"column:request_hash;not null"`
	Status                enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'pending'"`
	DeliveryMethod        enums.DeliveryMethod   `gorm:"column:delivery_method;type:delivery_method;not null"`
	DeliveryAddress       *types.DeliveryAddress `gorm:"column:delivery_address;type:jsonb"`
	PaymentMethod         enums.PaymentMethod    `gorm:"column:payment_method;type:payment_method;not null"`
	RedemptionMode        enums.RedemptionMode   `gorm:"column:redemption_mode;type:redemption_mode;not null;default:'none'"`
	SubtotalCents         int64                  `gorm:"column:subtotal_cents;not null"`
	TaxCents              int64                  `gorm:"column:tax_cents;not null;default:0"`
	DeliveryFeeCents      int64                  `gorm:"column:delivery_fee_cents;not null;default:0"`
	StandardDiscountCents int64                  `gorm:"column:standard_discount_cents;not null;default:0"`
	InstantDiscountCents  int64                  `gorm:"column:instant_discount_cents;not null;default:0"`
	TotalCents            int64                  `gorm:"column:total_cents;not null"`
	PointsEarned          int64                  `gorm:"column:points_earned;not null;default:0"`
	PointsRedeemed        int64                  `gorm:"column:points_redeemed;not null;default:0"`
	Items                 []OrderLineItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
