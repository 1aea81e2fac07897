package pricing

import (
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

const (
	// PointsBlock is the redemption granularity for standard mode.
	PointsBlock int64 = 100
	// PointsPerUnit is how many points buy one currency unit.
	PointsPerUnit int64 = 100
	// InstantThreshold is the balance the order must push the account across.
	InstantThreshold int64 = 100
	// InstantPointsCost is what an instant redemption spends.
	InstantPointsCost int64 = 100
)

// Selection is the customer's redemption choice.
type Selection struct {
	Mode            enums.RedemptionMode `json:"mode"`
	PointsRequested int64                `json:"pointsRequested"`
}

// None is the empty selection.
var None = Selection{Mode: enums.RedemptionModeNone}

// Normalized maps the empty mode to none.
func (s Selection) Normalized() Selection {
	s.Mode = s.Mode.OrNone()
	if s.Mode == enums.RedemptionModeNone {
		s.PointsRequested = 0
	}
	return s
}

// MaxRedeemable is min(balance, floor(subtotal)×100).
func MaxRedeemable(balance int64, subtotal money.Cents) int64 {
	if balance < 0 {
		balance = 0
	}
	units := subtotal.WholeUnits()
	if units < 0 {
		units = 0
	}
	capBySubtotal := units * PointsPerUnit
	if balance < capBySubtotal {
		return balance
	}
	return capBySubtotal
}

// StandardAvailable reports whether the balance covers at least one block.
func StandardAvailable(balance int64) bool {
	return balance >= PointsBlock
}

// InstantEligible is true when the balance is below the threshold, the
// subtotal is at least 100.00, and the points this order earns carry the
// balance to the threshold.
func InstantEligible(balance int64, subtotal money.Cents) bool {
	if balance < 0 {
		return false
	}
	return balance < InstantThreshold &&
		subtotal >= money.FromUnits(InstantThreshold) &&
		balance+PointsEarned(subtotal) >= InstantThreshold
}

// PointsEarned is one point per whole currency unit of the pre-discount subtotal.
func PointsEarned(subtotal money.Cents) int64 {
	units := subtotal.WholeUnits()
	if units < 0 {
		return 0
	}
	return units
}

// PointsSpent is what a validated selection deducts from the account.
func PointsSpent(sel Selection) int64 {
	switch sel.Mode {
	case enums.RedemptionModeStandard:
		return sel.PointsRequested
	case enums.RedemptionModeInstant:
		return InstantPointsCost
	default:
		return 0
	}
}

// ClampSelection returns the largest valid standard request not above the
// original request. Other modes are returned unchanged.
func ClampSelection(sel Selection, balance int64, subtotal money.Cents) Selection {
	sel = sel.Normalized()
	if sel.Mode != enums.RedemptionModeStandard {
		return sel
	}
	limit := MaxRedeemable(balance, subtotal)
	if sel.PointsRequested < limit {
		limit = sel.PointsRequested
	}
	if limit < 0 {
		limit = 0
	}
	sel.PointsRequested = (limit / PointsBlock) * PointsBlock
	if sel.PointsRequested == 0 {
		return None
	}
	return sel
}

// ValidateSelection checks a selection against the balance and subtotal.
// Oversized requests fail with INSUFFICIENT_POINTS carrying the cap and a
// clamped suggestion.
func ValidateSelection(sel Selection, balance int64, subtotal money.Cents) error {
	sel = sel.Normalized()
	switch sel.Mode {
	case enums.RedemptionModeNone:
		return nil
	case enums.RedemptionModeStandard:
		if sel.PointsRequested <= 0 || sel.PointsRequested%PointsBlock != 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("points must be a positive multiple of %d", PointsBlock)).
				WithDetails(map[string]any{"pointsRequested": sel.PointsRequested})
		}
		maxPoints := MaxRedeemable(balance, subtotal)
		if !StandardAvailable(balance) || sel.PointsRequested > maxPoints {
			suggested := ClampSelection(sel, balance, subtotal).PointsRequested
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "requested points exceed what can be redeemed").
				WithDetails(map[string]any{
					"requested":      sel.PointsRequested,
					"max_redeemable": maxPoints,
					"suggested":      suggested,
				})
		}
		return nil
	case enums.RedemptionModeInstant:
		if !InstantEligible(balance, subtotal) {
			return pkgerrors.New(pkgerrors.CodeValidation, "order is not eligible for instant redemption").
				WithDetails(map[string]any{"mode": "not eligible"})
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown redemption mode %q", sel.Mode))
	}
}
