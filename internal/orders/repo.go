package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (*models.Order, error)
	FindByID(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, customerID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("customer_id = ? AND idempotency_key = ?", customerID, key).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("id = ? AND customer_id = ?", orderID, customerID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomer pages newest first using a (created_at, id) cursor.
func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Order, string, error) {
	cursor, err := params.Position()
	if err != nil {
		return nil, "", err
	}

	q := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where("customer_id = ?", customerID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := q.
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.FetchSize()).
		Find(&rows).Error; err != nil {
		return nil, "", err
	}

	page, next := pagination.Split(rows, params, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
