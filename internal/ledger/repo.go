package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ErrVersionConflict is returned when an account changed underneath an update.
var ErrVersionConflict = errors.New("loyalty account version conflict")

// Repository manages loyalty accounts and their immutable ledger events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error)
	LockAccount(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error)
	SaveBalance(ctx context.Context, account *models.LoyaltyAccount) error
	CreateEvents(ctx context.Context, events []models.LoyaltyLedgerEvent) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyLedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccount(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// LockAccount creates the account row when missing and returns it locked FOR UPDATE.
func (r *repository) LockAccount(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	seed := models.LoyaltyAccount{CustomerID: customerID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}

	var account models.LoyaltyAccount
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// SaveBalance writes balance and lifetime counters, bumping the version.
func (r *repository) SaveBalance(ctx context.Context, account *models.LoyaltyAccount) error {
	res := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("customer_id = ? AND version = ?", account.CustomerID, account.Version).
		Updates(map[string]any{
			"points_balance":  account.PointsBalance,
			"lifetime_earned": account.LifetimeEarned,
			"lifetime_spent":  account.LifetimeSpent,
			"version":         account.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	account.Version++
	return nil
}

func (r *repository) CreateEvents(ctx context.Context, events []models.LoyaltyLedgerEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyLedgerEvent, error) {
	var events []models.LoyaltyLedgerEvent
	q := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
