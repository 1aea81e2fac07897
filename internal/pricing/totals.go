package pricing

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Totals is the priced breakdown of an order.
type Totals struct {
	Subtotal         money.Cents          `json:"subtotal"`
	Tax              money.Cents          `json:"tax"`
	DeliveryFee      money.Cents          `json:"deliveryFee"`
	StandardDiscount money.Cents          `json:"standardDiscount"`
	InstantDiscount  money.Cents          `json:"instantDiscount"`
	Total            money.Cents          `json:"total"`
	Mode             enums.RedemptionMode `json:"redemptionMode"`
	PointsRedeemed   int64                `json:"pointsRedeemed"`
	PointsEarned     int64                `json:"pointsEarned"`
}

// Discount is the combined discount.
func (t Totals) Discount() money.Cents {
	return t.StandardDiscount + t.InstantDiscount
}

// Verify checks the breakdown is internally consistent.
func (t Totals) Verify() error {
	for _, c := range []money.Cents{t.Subtotal, t.Tax, t.DeliveryFee, t.StandardDiscount, t.InstantDiscount, t.Total} {
		if c.IsNegative() {
			return t.invariant("negative component")
		}
	}
	if t.StandardDiscount > 0 && t.InstantDiscount > 0 {
		return t.invariant("standard and instant discounts are exclusive")
	}
	if t.Total != t.Subtotal+t.Tax+t.DeliveryFee-t.StandardDiscount-t.InstantDiscount {
		return t.invariant("total does not match its components")
	}
	if t.PointsEarned != PointsEarned(t.Subtotal) {
		return t.invariant("points earned does not match subtotal")
	}
	return nil
}

// Equal compares the monetary fields and points of two breakdowns.
func (t Totals) Equal(other Totals) bool {
	return t.Subtotal == other.Subtotal &&
		t.Tax == other.Tax &&
		t.DeliveryFee == other.DeliveryFee &&
		t.StandardDiscount == other.StandardDiscount &&
		t.InstantDiscount == other.InstantDiscount &&
		t.Total == other.Total &&
		t.PointsRedeemed == other.PointsRedeemed &&
		t.PointsEarned == other.PointsEarned
}

func (t Totals) invariant(reason string) error {
	return pkgerrors.New(pkgerrors.CodePricingInvariant, reason).WithDetails(t.breakdown(t.Total))
}

func (t Totals) breakdown(total money.Cents) map[string]any {
	return map[string]any{
		"subtotal":         t.Subtotal.String(),
		"tax":              t.Tax.String(),
		"deliveryFee":      t.DeliveryFee.String(),
		"standardDiscount": t.StandardDiscount.String(),
		"instantDiscount":  t.InstantDiscount.String(),
		"total":            total.String(),
	}
}
