package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLineItem snapshots a cart line at the moment the order was confirmed.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	Position       int       `gorm:"column:position;not null"`
	Name           string    `gorm:"column:name;not null"`
	Category       string    `gorm:"column:category;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	TotalCents     int64     `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
