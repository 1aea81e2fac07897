package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// HistoryReader lists ledger events newest first.
type HistoryReader interface {
	History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyLedgerEvent, error)
}

type ledgerEventResponse struct {
	ID           uuid.UUID             `json:"id"`
	OrderID      *uuid.UUID            `json:"orderId,omitempty"`
	Type         enums.LedgerEventType `json:"type"`
	Points       int64                 `json:"points"`
	BalanceAfter int64                 `json:"balanceAfter"`
	Metadata     json.RawMessage       `json:"metadata,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// LoyaltyHistory lists the caller's own ledger events.
func LoyaltyHistory(ledger HistoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeHistory(w, r, logg, ledger, owner)
	}
}

// AdminLoyaltyHistory lists any customer's ledger events.
func AdminLoyaltyHistory(ledger HistoryReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}
		writeHistory(w, r, logg, ledger, customerID)
	}
}

func writeHistory(w http.ResponseWriter, r *http.Request, logg *logger.Logger, ledger HistoryReader, customerID uuid.UUID) {
	limit, err := validators.ParseLimit(r, 50, 200)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	events, err := ledger.History(r.Context(), customerID, limit)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	out := make([]ledgerEventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, ledgerEventResponse{
			ID:           ev.ID,
			OrderID:      ev.OrderID,
			Type:         ev.Type,
			Points:       ev.Points,
			BalanceAfter: ev.BalanceAfter,
			Metadata:     ev.Metadata,
			CreatedAt:    ev.CreatedAt,
		})
	}
	responses.WriteSuccess(w, map[string]any{"events": out})
}
