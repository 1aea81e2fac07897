package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type sessionStep func(ctx context.Context, ownerID uuid.UUID) (*checkout.Session, error)

func CheckoutFetch(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, svc.Get)
}

func CheckoutBegin(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, svc.Begin)
}

func CheckoutRetry(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return submitStep(logg, svc.Retry)
}

func CheckoutBack(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, svc.Back)
}

func CheckoutCancel(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return checkoutStep(logg, svc.Cancel)
}

func CheckoutInfo(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkout.Info
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.Name = validators.SanitizeString(payload.Name, 120)
		checkoutStep(logg, func(ctx context.Context, owner uuid.UUID) (*checkout.Session, error) {
			return svc.SubmitInfo(ctx, owner, payload)
		})(w, r)
	}
}

func CheckoutRedemption(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload pricing.Selection
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		checkoutStep(logg, func(ctx context.Context, owner uuid.UUID) (*checkout.Session, error) {
			return svc.SelectRedemption(ctx, owner, payload)
		})(w, r)
	}
}

// CheckoutPayment submits the order. A submission failure is not an HTTP
// error: the session comes back with lastError set so the client can retry.
func CheckoutPayment(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkout.PaymentInput
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		submitStep(logg, func(ctx context.Context, owner uuid.UUID) (*checkout.Session, error) {
			return svc.Pay(ctx, owner, payload)
		})(w, r)
	}
}

func checkoutStep(logg *logger.Logger, step sessionStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := step(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess)
	}
}

// submitStep answers a failure that the workflow recorded on the session with
// that session. Failures before anything was recorded stay HTTP errors.
func submitStep(logg *logger.Logger, step sessionStep) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sess, err := step(r.Context(), owner)
		if err != nil && (sess == nil || sess.LastError == nil) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess)
	}
}
