package enums

import "slices"

// CheckoutState is a step of the checkout workflow.
type CheckoutState string

const (
	CheckoutStateCartReview        CheckoutState = "cart_review"
	CheckoutStateInfoCollection    CheckoutState = "info_collection"
	CheckoutStatePaymentCollection CheckoutState = "payment_collection"
	CheckoutStateSubmitting        CheckoutState = "submitting"
	CheckoutStateConfirmed         CheckoutState = "confirmed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateCartReview,
	CheckoutStateInfoCollection,
	CheckoutStatePaymentCollection,
	CheckoutStateSubmitting,
	CheckoutStateConfirmed,
}

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutState.
func (s CheckoutState) IsValid() bool {
	return slices.Contains(validCheckoutStates, s)
}

// IsTerminal reports whether no further transition is possible.
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateConfirmed
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	return parse("checkout state", validCheckoutStates, value)
}
