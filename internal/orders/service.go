// Package orders is the authoritative order boundary: it re-prices every
// submission, applies the points movement and deduplicates on the
// idempotency key.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/ledger"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.Event) error
}

// Service defines the order boundary.
type Service interface {
	PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*ConfirmedOrder, error)
	Get(ctx context.Context, customerID, orderID uuid.UUID) (*ConfirmedOrder, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	Profile(ctx context.Context, customerID uuid.UUID) (*Profile, error)
	LoyaltyPoints(ctx context.Context, customerID uuid.UUID) (int64, error)
}

// ServiceParams wires the order boundary.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Ledger  ledger.Service
	Engine  *pricing.Engine
	Outbox  outboxPublisher
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  ledger.Service
	engine  *pricing.Engine
	outbox  outboxPublisher
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

var errDuplicateSubmission = errors.New("duplicate order submission")

// NewService builds the order boundary with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		ledger:  params.Ledger,
		engine:  params.Engine,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// PlaceOrder creates the order exactly once per (customer, idempotency key).
// A replay with an identical request returns the stored order without
// touching the ledger.
func (s *service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*ConfirmedOrder, error) {
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := req.Hash()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash order request")
	}

	var result *ConfirmedOrder
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByIdempotencyKey(ctx, req.CustomerID, req.IdempotencyKey)
		switch {
		case err == nil:
			result, err = replay(existing, hash, req.IdempotencyKey)
			return err
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup idempotency key")
		}

		account, err := s.ledger.Lock(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		totals, err := s.engine.Compute(pricing.Input{
			Lines:          req.PricingLines(),
			Selection:      req.Selection(),
			PointsBalance:  account.PointsBalance,
			DeliveryMethod: req.DeliveryMethod,
		})
		if err != nil {
			return err
		}
		if totals.Total != req.Total {
			return pkgerrors.New(pkgerrors.CodePricingInvariant, "submitted total does not match server pricing").
				WithDetails(map[string]any{
					"clientTotal": req.Total.String(),
					"serverTotal": totals.Total.String(),
				})
		}
		if totals.PointsRedeemed != req.PointsUsed && req.RedemptionMode.OrNone() != enums.RedemptionModeInstant {
			return pkgerrors.New(pkgerrors.CodeValidation, "points used does not match redemption").
				WithDetails(map[string]any{"pointsUsed": req.PointsUsed})
		}

		order := buildOrder(req, hash, totals)
		if err := repo.Create(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return errDuplicateSubmission
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		events, err := s.ledger.ApplyOrder(ctx, tx, account, ledger.ApplyOrderInput{
			OrderID:   order.ID,
			Earned:    totals.PointsEarned,
			Redeemed:  totals.PointsRedeemed,
			EarnFirst: totals.Mode == enums.RedemptionModeInstant,
			Metadata:  ledgerMetadata(totals),
		})
		if err != nil {
			return err
		}
		if err := s.emit(ctx, tx, order, totals, events, account.PointsBalance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order events")
		}

		result = toConfirmed(order)
		return nil
	})
	if errors.Is(err, errDuplicateSubmission) {
		existing, ferr := s.repo.FindByIdempotencyKey(ctx, req.CustomerID, req.IdempotencyKey)
		if ferr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ferr, "reload concurrent order")
		}
		result, err = replay(existing, hash, req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	if !result.Replayed {
		s.metrics.IncOrder(string(result.PaymentMethod), string(result.Totals.Mode))
		s.metrics.AddPoints(result.PointsEarned, result.PointsRedeemed)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":        result.OrderID.String(),
			"customer_id":     result.CustomerID.String(),
			"total":           result.Total.String(),
			"points_earned":   result.PointsEarned,
			"points_redeemed": result.PointsRedeemed,
			"replayed":        result.Replayed,
		})
		s.logg.Info(logCtx, "order placed")
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, customerID, orderID uuid.UUID) (*ConfirmedOrder, error) {
	order, err := s.repo.FindByID(ctx, customerID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return toConfirmed(order), nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if _, err := params.Position(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := &OrderList{Orders: make([]ConfirmedOrder, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Orders = append(out.Orders, *toConfirmed(&rows[i]))
	}
	return out, nil
}

func (s *service) Profile(ctx context.Context, customerID uuid.UUID) (*Profile, error) {
	account, err := s.ledger.Account(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		CustomerID:     customerID,
		LoyaltyPoints:  account.PointsBalance,
		LifetimeEarned: account.LifetimeEarned,
		LifetimeSpent:  account.LifetimeSpent,
	}, nil
}

func (s *service) LoyaltyPoints(ctx context.Context, customerID uuid.UUID) (int64, error) {
	return s.ledger.Balance(ctx, customerID)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, order *models.Order, totals *pricing.Totals, events []models.LoyaltyLedgerEvent, balanceAfter int64) error {
	actor := &outbox.Actor{CustomerID: order.CustomerID, Role: enums.CustomerRoleCustomer}
	orderingKey := order.CustomerID.String()

	items := make([]payloads.OrderConfirmedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, payloads.OrderConfirmedItem{
			Name:           item.Name,
			Category:       item.Category,
			Quantity:       item.Qty,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	queued := []outbox.Event{{
		Type:          enums.EventOrderConfirmed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OrderingKey:   orderingKey,
		Actor:         actor,
		Data: payloads.OrderConfirmedEvent{
			OrderID:        order.ID,
			CustomerID:     order.CustomerID,
			Status:         order.Status,
			DeliveryMethod: order.DeliveryMethod,
			PaymentMethod:  order.PaymentMethod,
			Items:          items,
			SubtotalCents:  int64(totals.Subtotal),
			DiscountCents:  int64(totals.Discount()),
			TotalCents:     int64(totals.Total),
			CreatedAt:      order.CreatedAt,
		},
	}}
	if len(events) > 0 {
		queued = append(queued, outbox.Event{
			Type:          enums.EventLoyaltyPointsApplied,
			AggregateType: enums.AggregateLoyaltyAccount,
			AggregateID:   order.CustomerID,
			OrderingKey:   orderingKey,
			Actor:         actor,
			Data: payloads.LoyaltyPointsAppliedEvent{
				CustomerID:     order.CustomerID,
				OrderID:        order.ID,
				RedemptionMode: totals.Mode,
				PointsEarned:   totals.PointsEarned,
				PointsRedeemed: totals.PointsRedeemed,
				BalanceAfter:   balanceAfter,
			},
		})
	}
	return s.outbox.Emit(ctx, tx, queued...)
}

func replay(existing *models.Order, hash, key string) (*ConfirmedOrder, error) {
	if existing.RequestHash != hash {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different order").
			WithDetails(map[string]any{"idempotencyKey": key, "orderId": existing.ID.String()})
	}
	out := toConfirmed(existing)
	out.Replayed = true
	return out, nil
}

func buildOrder(req PlaceOrderRequest, hash string, totals *pricing.Totals) *models.Order {
	order := &models.Order{
		ID:                    uuid.New(),
		CustomerID:            req.CustomerID,
		CustomerName:          strings.TrimSpace(req.CustomerName),
		IdempotencyKey:        req.IdempotencyKey,
		RequestHash:           hash,
		Status:                enums.OrderStatusPending,
		DeliveryMethod:        req.DeliveryMethod,
		DeliveryAddress:       req.DeliveryAddress(),
		PaymentMethod:         req.PaymentMethod,
		RedemptionMode:        totals.Mode,
		SubtotalCents:         int64(totals.Subtotal),
		TaxCents:              int64(totals.Tax),
		DeliveryFeeCents:      int64(totals.DeliveryFee),
		StandardDiscountCents: int64(totals.StandardDiscount),
		InstantDiscountCents:  int64(totals.InstantDiscount),
		TotalCents:            int64(totals.Total),
		PointsEarned:          totals.PointsEarned,
		PointsRedeemed:        totals.PointsRedeemed,
		CreatedAt:             time.Now().UTC(),
	}
	order.Items = make([]models.OrderLineItem, 0, len(req.Items))
	for i, item := range req.Items {
		order.Items = append(order.Items, models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			Position:       i,
			Name:           strings.TrimSpace(item.Name),
			Category:       strings.TrimSpace(item.Category),
			UnitPriceCents: int64(item.Price),
			Qty:            item.Quantity,
			TotalCents:     int64(item.Price.Times(item.Quantity)),
		})
	}
	return order
}

func ledgerMetadata(totals *pricing.Totals) json.RawMessage {
	payload, err := json.Marshal(map[string]any{
		"redemptionMode": totals.Mode,
		"subtotal":       totals.Subtotal,
		"total":          totals.Total,
	})
	if err != nil {
		return nil
	}
	return payload
}
