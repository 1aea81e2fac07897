package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// LoyaltyFetch returns the cached balance summarized against the current cart.
func LoyaltyFetch(loyaltySvc loyalty.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return loyaltyHandler(logg, carts, loyaltySvc.Balance)
}

// LoyaltyRefresh re-reads the authoritative balance before summarizing.
func LoyaltyRefresh(loyaltySvc loyalty.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return loyaltyHandler(logg, carts, loyaltySvc.Refresh)
}

func loyaltyHandler(logg *logger.Logger, carts cartsvc.Service, read func(context.Context, uuid.UUID) (loyalty.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := read(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := carts.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals := pricing.Totals{
			Subtotal:     c.Subtotal(),
			PointsEarned: pricing.PointsEarned(c.Subtotal()),
		}
		responses.WriteSuccess(w, loyalty.Summarize(snap, totals))
	}
}
