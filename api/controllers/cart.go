package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

const maxItemTextLen = 120

type cartResponse struct {
	Items     []cartsvc.LineItem `json:"items"`
	ItemCount int                `json:"itemCount"`
	Subtotal  money.Cents        `json:"subtotal"`
}

func newCartResponse(c *cartsvc.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cartsvc.LineItem{}
	}
	return cartResponse{Items: items, ItemCount: c.ItemCount(), Subtotal: c.Subtotal()}
}

type addItemRequest struct {
	Name        string      `json:"name" validate:"required"`
	Category    string      `json:"category"`
	Price       money.Cents `json:"price" validate:"min=0"`
	Quantity    int         `json:"quantity"`
	Tags        []string    `json:"tags"`
	Description string      `json:"description"`
}

type itemKeyRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category"`
}

func (k itemKeyRequest) key() cartsvc.Key {
	return cartsvc.Key{
		Name:     validators.SanitizeString(k.Name, maxItemTextLen),
		Category: validators.SanitizeString(k.Category, maxItemTextLen),
	}
}

type setQuantityRequest struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

func CartFetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

func CartEmpty(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Empty(r.Context(), owner); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(&cartsvc.Cart{OwnerID: owner}))
	}
}

// CartAddItem merges the item into the cart. A zero quantity adds one.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload addItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item := cartsvc.LineItem{
			Name:        validators.SanitizeString(payload.Name, maxItemTextLen),
			Category:    validators.SanitizeString(payload.Category, maxItemTextLen),
			UnitPrice:   payload.Price,
			Tags:        payload.Tags,
			Description: validators.SanitizeString(payload.Description, 500),
		}
		c, err := svc.AddItem(r.Context(), owner, item, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key := itemKeyRequest{Name: payload.Name, Category: payload.Category}.key()
		c, err := svc.SetQuantity(r.Context(), owner, key, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload itemKeyRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveItem(r.Context(), owner, payload.key())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}
