// Package cart holds each owner's pending line items.
package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Service exposes cart operations scoped to one owner.
type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, ownerID uuid.UUID, item LineItem, qty int) (*Cart, error)
	RemoveItem(ctx context.Context, ownerID uuid.UUID, key Key) (*Cart, error)
	SetQuantity(ctx context.Context, ownerID uuid.UUID, key Key, qty int) (*Cart, error)
	Empty(ctx context.Context, ownerID uuid.UUID) error
}

// ServiceParams wires the cart service.
type ServiceParams struct {
	Cache        Cache
	Acknowledger Acknowledger
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	cache Cache
	ack   Acknowledger
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds a cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("cart cache required")
	}
	ack := params.Acknowledger
	if ack == nil {
		ack = noopAcknowledger{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		cache: params.Cache,
		ack:   ack,
		logg:  params.Logger,
		now:   now,
	}, nil
}

func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*Cart, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	items, err := s.cache.Load(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if items == nil {
		items = []LineItem{}
	}
	return &Cart{OwnerID: ownerID, Items: items, UpdatedAt: s.now().UTC()}, nil
}

// AddItem merges by key or appends. A zero qty means one.
func (s *service) AddItem(ctx context.Context, ownerID uuid.UUID, item LineItem, qty int) (*Cart, error) {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if item.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if item.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}

	cart, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if idx := cart.indexOf(item.Key()); idx >= 0 {
		cart.Items[idx].Quantity += qty
	} else {
		item.Quantity = qty
		cart.Items = append(cart.Items, item.clone())
	}
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}

	s.ack.Acknowledge(ctx, Ack{OwnerID: ownerID, Name: item.Name, Quantity: qty})
	return cart, nil
}

func (s *service) RemoveItem(ctx context.Context, ownerID uuid.UUID, key Key) (*Cart, error) {
	cart, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	idx := cart.indexOf(key)
	if idx < 0 {
		return nil, notInCart(key)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// SetQuantity replaces a line's quantity. Removal goes through RemoveItem.
func (s *service) SetQuantity(ctx context.Context, ownerID uuid.UUID, key Key, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1; remove the item instead").
			WithDetails(map[string]any{"quantity": qty})
	}
	cart, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	idx := cart.indexOf(key)
	if idx < 0 {
		return nil, notInCart(key)
	}
	cart.Items[idx].Quantity = qty
	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Empty(ctx context.Context, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "empty cart")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithOwnerID(ctx, ownerID.String()), "cart emptied")
	}
	return nil
}

func (s *service) save(ctx context.Context, cart *Cart) error {
	if err := s.cache.Save(ctx, cart.OwnerID, cart.Items); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func notInCart(key Key) error {
	key = key.Normalize()
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart").
		WithDetails(map[string]any{"name": key.Name, "category": key.Category})
}
