package redis

import "strings"

const (
	keyNamespace      = "sf"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
)

// Per-owner keys keep the flat names storefront clients already read.
const (
	cartKeyPrefix     = "cart_"
	loyaltyKeyPrefix  = "loyalty_"
	checkoutKeyPrefix = "checkout_"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return namespaced(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return namespaced(rateLimitPrefix, scope)
}

func CartKey(ownerID string) string {
	return cartKeyPrefix + strings.TrimSpace(ownerID)
}

// LoyaltyKey holds the cached points balance.
func LoyaltyKey(ownerID string) string {
	return loyaltyKeyPrefix + strings.TrimSpace(ownerID)
}

func CheckoutKey(ownerID string) string {
	return checkoutKeyPrefix + strings.TrimSpace(ownerID)
}

// namespaced joins the non-empty parts under the service namespace.
func namespaced(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ":")
}
