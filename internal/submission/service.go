// Package submission sends a checkout draft to the order boundary exactly once
// and settles the local caches afterwards.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type orderPlacer interface {
	PlaceOrder(ctx context.Context, req orders.PlaceOrderRequest) (*orders.ConfirmedOrder, error)
}

type cartEmptier interface {
	Empty(ctx context.Context, ownerID uuid.UUID) error
}

type balanceRefresher interface {
	Refresh(ctx context.Context, ownerID uuid.UUID) (loyalty.Snapshot, error)
}

type Params struct {
	Orders  orderPlacer
	Cart    cartEmptier
	Loyalty balanceRefresher
	Timeout time.Duration
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
}

// Submitter implements checkout.Submitter.
type Submitter struct {
	orders  orderPlacer
	cart    cartEmptier
	loyalty balanceRefresher
	timeout time.Duration
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

var _ checkout.Submitter = (*Submitter)(nil)

func New(params Params) (*Submitter, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order placer required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Loyalty == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	return &Submitter{
		orders:  params.Orders,
		cart:    params.Cart,
		loyalty: params.Loyalty,
		timeout: params.Timeout,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

// Submit refreshes the balance, re-checks the redemption against it and makes
// a single boundary call. Only a successful call clears the cart. An unsettled
// draft skips the balance check: its points may already be spent by the order
// the boundary is about to replay.
func (s *Submitter) Submit(ctx context.Context, ownerID uuid.UUID, draft *checkout.Draft) (*orders.ConfirmedOrder, error) {
	start := time.Now()
	order, err := s.submit(ctx, ownerID, draft)
	s.observe(ctx, ownerID, order, err, time.Since(start))
	return order, err
}

func (s *Submitter) submit(ctx context.Context, ownerID uuid.UUID, draft *checkout.Draft) (*orders.ConfirmedOrder, error) {
	req, err := BuildRequest(ownerID, draft)
	if err != nil {
		return nil, err
	}

	if !draft.Unsettled {
		fresh, err := s.loyalty.Refresh(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		subtotal := (&cart.Cart{Items: draft.CartSnapshot}).Subtotal()
		if err := pricing.ValidateSelection(draft.Redemption, fresh.PointsBalance, subtotal); err != nil {
			return nil, err
		}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	order, err := s.orders.PlaceOrder(callCtx, req)
	if err != nil {
		return nil, mapBoundaryError(err)
	}

	ctx = context.WithoutCancel(ctx)
	if err := s.cart.Empty(ctx, ownerID); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithOwnerID(ctx, ownerID.String()), "empty cart after order", err)
	}
	if _, err := s.loyalty.Refresh(ctx, ownerID); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithOwnerID(ctx, ownerID.String()), "refresh loyalty after order", err)
	}
	return order, nil
}

// BuildRequest converts a frozen draft into the boundary request.
func BuildRequest(ownerID uuid.UUID, draft *checkout.Draft) (orders.PlaceOrderRequest, error) {
	if draft == nil || len(draft.CartSnapshot) == 0 {
		return orders.PlaceOrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "nothing to submit")
	}
	if draft.Info == nil {
		return orders.PlaceOrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "customer info missing")
	}
	if draft.Totals == nil {
		return orders.PlaceOrderRequest{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order must be priced before submission")
	}
	if draft.IdempotencyToken == uuid.Nil {
		return orders.PlaceOrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "idempotency token missing")
	}

	items := make([]orders.PlaceOrderItem, 0, len(draft.CartSnapshot))
	for _, line := range draft.CartSnapshot {
		items = append(items, orders.PlaceOrderItem{
			Name:     line.Name,
			Category: line.Category,
			Quantity: line.Quantity,
			Price:    line.UnitPrice,
		})
	}

	sel := draft.Redemption.Normalized()
	req := orders.PlaceOrderRequest{
		CustomerID:     ownerID,
		CustomerName:   draft.Info.Name,
		Items:          items,
		Total:          draft.Totals.Total,
		PointsUsed:     pricing.PointsSpent(sel),
		RedemptionMode: sel.Mode,
		PaymentMethod:  draft.PaymentMethod,
		DeliveryMethod: draft.DeliveryMethod(),
		IdempotencyKey: draft.IdempotencyToken.String(),
	}
	if addr := draft.Info.DeliveryAddress; addr != nil && req.DeliveryMethod.RequiresAddress() {
		req.Address = addr.Line1
		req.AddressLine2 = addr.Line2
		req.City = addr.City
		req.PostalCode = addr.PostalCode
		req.DeliveryNotes = addr.Notes
	}
	return req, nil
}

// mapBoundaryError keeps typed errors and turns transport failures into a
// retryable dependency error.
func mapBoundaryError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order service timed out")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order service unavailable")
}

func (s *Submitter) observe(ctx context.Context, ownerID uuid.UUID, order *orders.ConfirmedOrder, err error, took time.Duration) {
	outcome := metrics.OutcomeSuccess
	code := ""
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailure
		if typed := pkgerrors.As(err); typed != nil {
			code = string(typed.Code())
		}
	case order != nil && order.Replayed:
		outcome = metrics.OutcomeReplay
	}
	s.metrics.ObserveSubmission(outcome, code, took)

	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(s.logg.WithOwnerID(ctx, ownerID.String()), map[string]any{
		"outcome":     outcome,
		"duration_ms": took.Milliseconds(),
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "code", code), "checkout.submission_failed")
		return
	}
	s.logg.Info(s.logg.WithField(logCtx, "order_id", order.OrderID.String()), "checkout.submitted")
}
