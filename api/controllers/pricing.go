package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type quoteRequest struct {
	Redemption     pricing.Selection    `json:"redemption"`
	DeliveryMethod enums.DeliveryMethod `json:"deliveryMethod"`
}

type quoteResponse struct {
	Totals  *pricing.Totals `json:"totals"`
	Loyalty loyalty.Summary `json:"loyalty"`
}

// PricingQuote prices the owner's current cart without touching checkout state.
func PricingQuote(carts cartsvc.Service, loyaltySvc loyalty.Service, engine *pricing.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quoteRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.DeliveryMethod != "" && !payload.DeliveryMethod.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method").
				WithDetails(map[string]string{"deliveryMethod": "must be home or pickup"}))
			return
		}

		c, err := carts.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := loyaltySvc.Balance(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := engine.Compute(pricing.Input{
			Lines:          c.PricingLines(),
			Selection:      payload.Redemption,
			PointsBalance:  snap.PointsBalance,
			DeliveryMethod: payload.DeliveryMethod,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quoteResponse{Totals: totals, Loyalty: loyalty.Summarize(snap, *totals)})
	}
}
