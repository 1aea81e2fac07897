package cart

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

// Key identifies a line within a cart.
type Key struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Normalize trims surrounding whitespace; comparison is otherwise exact.
func (k Key) Normalize() Key {
	return Key{Name: strings.TrimSpace(k.Name), Category: strings.TrimSpace(k.Category)}
}

// LineItem is one menu item with its quantity.
type LineItem struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	UnitPrice   money.Cents `json:"price"`
	Quantity    int         `json:"quantity"`
	Tags        []string    `json:"tags,omitempty"`
	Description string      `json:"description,omitempty"`
}

// Key returns the normalized identity of the line.
func (l LineItem) Key() Key {
	return Key{Name: l.Name, Category: l.Category}.Normalize()
}

// LineTotal is unitPrice×quantity.
func (l LineItem) LineTotal() money.Cents {
	return l.UnitPrice.Times(l.Quantity)
}

func (l LineItem) clone() LineItem {
	if l.Tags != nil {
		l.Tags = append([]string(nil), l.Tags...)
	}
	return l
}

// Cart is an owner's pending selection.
type Cart struct {
	OwnerID   uuid.UUID  `json:"ownerId"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Subtotal sums every line total.
func (c *Cart) Subtotal() money.Cents {
	var subtotal money.Cents
	for _, item := range c.Items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// ItemCount is the total quantity across lines.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a deep copy that shares nothing with c.
func (c *Cart) Clone() *Cart {
	out := &Cart{OwnerID: c.OwnerID, UpdatedAt: c.UpdatedAt}
	if c.Items != nil {
		out.Items = make([]LineItem, len(c.Items))
		for i, item := range c.Items {
			out.Items[i] = item.clone()
		}
	}
	return out
}

// Equal reports whether two carts hold the same lines in the same order.
func (c *Cart) Equal(other *Cart) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.Items) != len(other.Items) {
		return false
	}
	for i := range c.Items {
		a, b := c.Items[i], other.Items[i]
		if a.Key() != b.Key() || a.UnitPrice != b.UnitPrice || a.Quantity != b.Quantity {
			return false
		}
	}
	return true
}

// PricingLines converts the cart into pricing input.
func (c *Cart) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, pricing.Line{UnitPrice: item.UnitPrice, Quantity: item.Quantity})
	}
	return lines
}

func (c *Cart) indexOf(key Key) int {
	key = key.Normalize()
	for i, item := range c.Items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}
