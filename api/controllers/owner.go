package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// ownerID reads the authenticated customer from the request context.
func ownerID(r *http.Request) (uuid.UUID, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing")
	}
	return p.CustomerID, nil
}
