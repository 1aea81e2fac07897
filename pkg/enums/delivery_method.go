package enums

import "slices"

// DeliveryMethod selects how a confirmed order reaches the customer.
type DeliveryMethod string

const (
	DeliveryMethodHome   DeliveryMethod = "home"
	DeliveryMethodPickup DeliveryMethod = "pickup"
)

var validDeliveryMethods = []DeliveryMethod{
	DeliveryMethodHome,
	DeliveryMethodPickup,
}

// String implements fmt.Stringer.
func (d DeliveryMethod) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryMethod.
func (d DeliveryMethod) IsValid() bool {
	return slices.Contains(validDeliveryMethods, d)
}

// RequiresAddress reports whether a delivery address must be selected.
func (d DeliveryMethod) RequiresAddress() bool {
	return d == DeliveryMethodHome
}

// ParseDeliveryMethod converts raw input into a DeliveryMethod.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	return parse("delivery method", validDeliveryMethods, value)
}
