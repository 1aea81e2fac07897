package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// PlaceOrderItem is one submitted line.
type PlaceOrderItem struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Quantity int         `json:"quantity"`
	Price    money.Cents `json:"price"`
}

// PlaceOrderRequest is the submission contract. Total is what the client
// priced and must match the server's re-price exactly.
type PlaceOrderRequest struct {
	CustomerID     uuid.UUID            `json:"customerId"`
	CustomerName   string               `json:"customerName"`
	Items          []PlaceOrderItem     `json:"items"`
	Total          money.Cents          `json:"total"`
	PointsUsed     int64                `json:"pointsUsed"`
	RedemptionMode enums.RedemptionMode `json:"redemptionMode"`
	PaymentMethod  enums.PaymentMethod  `json:"paymentMethod"`
	DeliveryMethod enums.DeliveryMethod `json:"deliveryMethod"`
	Address        string               `json:"address,omitempty"`
	AddressLine2   *string              `json:"addressLine2,omitempty"`
	City           string               `json:"city,omitempty"`
	PostalCode     string               `json:"postalCode,omitempty"`
	DeliveryNotes  *string              `json:"deliveryNotes,omitempty"`
	IdempotencyKey string               `json:"idempotencyKey"`
}

// Selection derives the redemption choice the request implies.
func (r PlaceOrderRequest) Selection() pricing.Selection {
	mode := r.RedemptionMode.OrNone()
	if mode == enums.RedemptionModeStandard {
		return pricing.Selection{Mode: mode, PointsRequested: r.PointsUsed}
	}
	return pricing.Selection{Mode: mode}
}

// DeliveryAddress returns the address for home delivery, nil otherwise.
func (r PlaceOrderRequest) DeliveryAddress() *types.DeliveryAddress {
	if r.DeliveryMethod != enums.DeliveryMethodHome {
		return nil
	}
	return &types.DeliveryAddress{
		Line1:      strings.TrimSpace(r.Address),
		Line2:      r.AddressLine2,
		City:       strings.TrimSpace(r.City),
		PostalCode: strings.TrimSpace(r.PostalCode),
		Notes:      r.DeliveryNotes,
	}
}

// PricingLines converts the submitted items into pricing input.
func (r PlaceOrderRequest) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, pricing.Line{UnitPrice: item.Price, Quantity: item.Quantity})
	}
	return lines
}

// Hash fingerprints every field except the idempotency key.
func (r PlaceOrderRequest) Hash() (string, error) {
	r.IdempotencyKey = ""
	r.RedemptionMode = r.RedemptionMode.OrNone()
	payload, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// Validate checks shape only; amounts are checked by re-pricing.
func (r PlaceOrderRequest) Validate() error {
	fields := map[string]string{}
	if r.CustomerID == uuid.Nil {
		fields["customerId"] = "is required"
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		fields["customerName"] = "is required"
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		fields["idempotencyKey"] = "is required"
	}
	if len(r.Items) == 0 {
		fields["items"] = "must contain at least one item"
	}
	for _, item := range r.Items {
		if strings.TrimSpace(item.Name) == "" {
			fields["items.name"] = "is required"
		}
		if item.Quantity < 1 {
			fields["items.quantity"] = "must be at least 1"
		}
		if item.Price.IsNegative() {
			fields["items.price"] = "must be non-negative"
		}
	}
	if r.Total.IsNegative() {
		fields["total"] = "must be non-negative"
	}
	if r.PointsUsed < 0 {
		fields["pointsUsed"] = "must be non-negative"
	}
	if !r.RedemptionMode.OrNone().IsValid() {
		fields["redemptionMode"] = "is invalid"
	}
	if r.RedemptionMode.OrNone() == enums.RedemptionModeNone && r.PointsUsed != 0 {
		fields["pointsUsed"] = "must be zero without a redemption"
	}
	if !r.PaymentMethod.IsValid() {
		fields["paymentMethod"] = "is invalid"
	}
	if !r.DeliveryMethod.IsValid() {
		fields["deliveryMethod"] = "is invalid"
	} else if addr := r.DeliveryAddress(); addr != nil {
		for _, missing := range addr.Missing() {
			switch missing {
			case "line1":
				fields["address"] = "is required for home delivery"
			default:
				fields[missing] = "is required for home delivery"
			}
		}
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order request invalid").WithDetails(fields)
	}
	return nil
}

// OrderItem is a confirmed line.
type OrderItem struct {
	Name      string      `json:"name"`
	Category  string      `json:"category"`
	Quantity  int         `json:"quantity"`
	Price     money.Cents `json:"price"`
	LineTotal money.Cents `json:"lineTotal"`
}

// ConfirmedOrder is the immutable result of a successful submission.
type ConfirmedOrder struct {
	OrderID         uuid.UUID              `json:"orderId"`
	CustomerID      uuid.UUID              `json:"customerId"`
	Items           []OrderItem            `json:"items"`
	Totals          pricing.Totals         `json:"totals"`
	Total           money.Cents            `json:"total"`
	PointsEarned    int64                  `json:"pointsEarned"`
	PointsRedeemed  int64                  `json:"pointsRedeemed"`
	Status          enums.OrderStatus      `json:"status"`
	DeliveryMethod  enums.DeliveryMethod   `json:"deliveryMethod"`
	DeliveryAddress *types.DeliveryAddress `json:"deliveryAddress,omitempty"`
	PaymentMethod   enums.PaymentMethod    `json:"paymentMethod"`
	CreatedAt       time.Time              `json:"createdAt"`

	// Replayed is set when the order came from an earlier submission with the
	// same idempotency key.
	Replayed bool `json:"-"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []ConfirmedOrder `json:"orders"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// Profile is the loyalty portion of the customer profile.
type Profile struct {
	CustomerID     uuid.UUID `json:"customerId"`
	LoyaltyPoints  int64     `json:"loyaltyPoints"`
	LifetimeEarned int64     `json:"lifetimeEarned"`
	LifetimeSpent  int64     `json:"lifetimeSpent"`
}

func toConfirmed(order *models.Order) *ConfirmedOrder {
	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItem{
			Name:      item.Name,
			Category:  item.Category,
			Quantity:  item.Qty,
			Price:     money.Cents(item.UnitPriceCents),
			LineTotal: money.Cents(item.TotalCents),
		})
	}
	totals := pricing.Totals{
		Subtotal:         money.Cents(order.SubtotalCents),
		Tax:              money.Cents(order.TaxCents),
		DeliveryFee:      money.Cents(order.DeliveryFeeCents),
		StandardDiscount: money.Cents(order.StandardDiscountCents),
		InstantDiscount:  money.Cents(order.InstantDiscountCents),
		Total:            money.Cents(order.TotalCents),
		Mode:             order.RedemptionMode,
		PointsRedeemed:   order.PointsRedeemed,
		PointsEarned:     order.PointsEarned,
	}
	var addr *types.DeliveryAddress
	if order.DeliveryAddress != nil {
		clone := order.DeliveryAddress.Clone()
		addr = &clone
	}
	return &ConfirmedOrder{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		Items:           items,
		Totals:          totals,
		Total:           totals.Total,
		PointsEarned:    order.PointsEarned,
		PointsRedeemed:  order.PointsRedeemed,
		Status:          order.Status,
		DeliveryMethod:  order.DeliveryMethod,
		DeliveryAddress: addr,
		PaymentMethod:   order.PaymentMethod,
		CreatedAt:       order.CreatedAt,
	}
}
