package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type principalKey struct{}

// Principal is the authenticated caller attached by Auth.
type Principal struct {
	CustomerID uuid.UUID
	Role       enums.CustomerRole
}

// WithPrincipal attaches the caller to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.CustomerID != uuid.Nil
}

// CustomerIDFromContext returns the caller's id as a string, or "" when the
// request is anonymous.
func CustomerIDFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.CustomerID.String()
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.CustomerRole {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}
