package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// LoyaltyLedgerEvent records an immutable points movement. Points is signed:
// earns are positive and redemptions negative.
type LoyaltyLedgerEvent struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID   uuid.UUID             `gorm:"column:customer_id;type:uuid;not null"`
	OrderID      *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	Type         enums.LedgerEventType `gorm:"column:type;type:loyalty_ledger_event_type;not null"`
	Points       int64                 `gorm:"column:points;not null"`
	BalanceAfter int64                 `gorm:"column:balance_after;not null"`
	Metadata     json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
