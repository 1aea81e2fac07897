package checkout

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var emailValidator = validator.New()

// PaymentDetails carries the method-specific fields. Only the fields of the
// selected method are inspected.
type PaymentDetails struct {
	Card        *CardInput `json:"card,omitempty"`
	PayPalEmail string     `json:"paypalEmail,omitempty"`
}

// Redacted strips secrets, keeping only what is safe to store in a session.
func (d PaymentDetails) Redacted() PaymentDetails {
	out := PaymentDetails{PayPalEmail: d.PayPalEmail}
	if d.Card != nil {
		out.Card = &CardInput{
			Number:     MaskCardNumber(d.Card.Number),
			Expiry:     d.Card.Expiry,
			HolderName: d.Card.HolderName,
		}
	}
	return out
}

// ValidatePayment checks the fields required by method and returns a
// VALIDATION_ERROR whose details map field names to messages.
func ValidatePayment(method enums.PaymentMethod, details PaymentDetails, now time.Time) error {
	var err error
	switch method {
	case enums.PaymentMethodCard:
		if details.Card == nil {
			err = fieldErr("card", "is required")
		} else {
			err = ValidateCard(*details.Card, now)
		}
	case enums.PaymentMethodCash:
	case enums.PaymentMethodPayPal:
		err = validatePayPalEmail(details.PayPalEmail)
	default:
		err = fieldErr("paymentMethod", "unsupported payment method %q", method)
	}
	if err == nil {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "payment details invalid").WithDetails(FieldErrors(err))
}

func validatePayPalEmail(email string) error {
	raw := strings.TrimSpace(email)
	if raw == "" {
		return fieldErr("paypalEmail", "is required")
	}
	if verr := emailValidator.Var(raw, "email"); verr != nil {
		return fieldErr("paypalEmail", "must be a valid email")
	}
	return nil
}
