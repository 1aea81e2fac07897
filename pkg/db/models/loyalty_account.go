package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount holds the authoritative points balance for a customer.
type LoyaltyAccount struct {
	CustomerID     uuid.UUID `gorm:"column:customer_id;type:uuid;primaryKey"`
	PointsBalance  int64     `gorm:"column:points_balance;not null;default:0"`
	LifetimeEarned int64     `gorm:"column:lifetime_earned;not null;default:0"`
	LifetimeSpent  int64     `gorm:"column:lifetime_spent;not null;default:0"`
	Version        int64     `gorm:"column:version;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
