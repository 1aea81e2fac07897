package enums

import "slices"

// PaymentMethod describes how a customer intends to settle an order.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodPayPal PaymentMethod = "paypal"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodCash,
	PaymentMethodPayPal,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return slices.Contains(validPaymentMethods, p)
}

// RequiresCardFields reports whether the method is validated by the card validators.
func (p PaymentMethod) RequiresCardFields() bool {
	return p == PaymentMethodCard
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", validPaymentMethods, value)
}
