// Package pricing turns cart lines and a redemption choice into a totals
// breakdown. It performs no I/O.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Line is the priced part of a cart line.
type Line struct {
	UnitPrice money.Cents
	Quantity  int
}

// Input is everything Compute needs.
type Input struct {
	Lines          []Line
	Selection      Selection
	PointsBalance  int64
	DeliveryMethod enums.DeliveryMethod
}

// Rates are the externally supplied pricing inputs.
type Rates struct {
	TaxRate         decimal.Decimal
	DeliveryFee     money.Cents
	InstantDiscount money.Cents
}

// RatesFromConfig builds Rates from the pricing config section.
func RatesFromConfig(cfg config.PricingConfig) Rates {
	return Rates{
		TaxRate:         cfg.TaxRateDecimal(),
		DeliveryFee:     money.Cents(cfg.DeliveryFeeCents),
		InstantDiscount: money.Cents(cfg.InstantDiscountCents),
	}
}

// Engine computes totals with a fixed set of rates.
type Engine struct {
	rates Rates
}

// NewEngine validates the rates and returns an engine.
func NewEngine(rates Rates) (*Engine, error) {
	if rates.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative")
	}
	if rates.DeliveryFee.IsNegative() {
		return nil, fmt.Errorf("delivery fee must be non-negative")
	}
	if rates.InstantDiscount.IsNegative() {
		return nil, fmt.Errorf("instant discount must be non-negative")
	}
	return &Engine{rates: rates}, nil
}

// Rates returns the engine's rates.
func (e *Engine) Rates() Rates {
	return e.rates
}

// Subtotal sums unitPrice×quantity over lines.
func Subtotal(lines []Line) money.Cents {
	var subtotal money.Cents
	for _, line := range lines {
		subtotal += line.UnitPrice.Times(line.Quantity)
	}
	return subtotal
}

// Compute prices the input. A negative total before clamping is reported as
// PRICING_INVARIANT and never clamped away.
func (e *Engine) Compute(in Input) (*Totals, error) {
	for i, line := range in.Lines {
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"line": i, "quantity": line.Quantity})
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative").
				WithDetails(map[string]any{"line": i, "unitPrice": line.UnitPrice.String()})
		}
	}

	sel := in.Selection.Normalized()
	subtotal := Subtotal(in.Lines)
	if err := ValidateSelection(sel, in.PointsBalance, subtotal); err != nil {
		return nil, err
	}

	totals := &Totals{
		Subtotal:       subtotal,
		Tax:            subtotal.ApplyRate(e.rates.TaxRate),
		Mode:           sel.Mode,
		PointsEarned:   PointsEarned(subtotal),
		PointsRedeemed: PointsSpent(sel),
	}
	if in.DeliveryMethod == enums.DeliveryMethodHome {
		totals.DeliveryFee = e.rates.DeliveryFee
	}
	switch sel.Mode {
	case enums.RedemptionModeStandard:
		totals.StandardDiscount = money.Cents(sel.PointsRequested * 100 / PointsPerUnit)
	case enums.RedemptionModeInstant:
		totals.InstantDiscount = e.rates.InstantDiscount
	}

	raw := totals.Subtotal + totals.Tax + totals.DeliveryFee - totals.StandardDiscount - totals.InstantDiscount
	if raw.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodePricingInvariant, "computed total is negative").
			WithDetails(totals.breakdown(raw))
	}
	totals.Total = raw
	if err := totals.Verify(); err != nil {
		return nil, err
	}
	return totals, nil
}
