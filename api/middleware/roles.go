package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RequireRole admits only callers whose token carries one of roles.
func RequireRole(logg *logger.Logger, roles ...enums.CustomerRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer context missing"))
				return
			}
			if !slices.Contains(roles, p.Role) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "role %q may not access this resource", p.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
