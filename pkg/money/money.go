// Package money keeps currency amounts as integer cents and converts them to
// and from decimal representations at the edges.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in the smallest currency unit.
type Cents int64

const centsExponent = 2

// Zero is the zero amount.
const Zero Cents = 0

// FromDecimal converts a currency amount to cents, rounding half away from zero
// to two places.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Shift(centsExponent).Round(0).IntPart())
}

// FromString parses a decimal currency string such as "12.50".
func FromString(value string) (Cents, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// FromUnits returns the amount for a number of whole currency units.
func FromUnits(units int64) Cents {
	return Cents(units * 100)
}

// Decimal returns the amount as a currency decimal with two places.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(c)).Shift(-centsExponent)
}

// String renders the amount with exactly two decimals.
func (c Cents) String() string {
	return c.Decimal().StringFixed(centsExponent)
}

// WholeUnits returns floor(amount) in currency units.
func (c Cents) WholeUnits() int64 {
	return c.Decimal().Floor().IntPart()
}

// Times multiplies the amount by an integer quantity.
func (c Cents) Times(qty int) Cents {
	return c * Cents(qty)
}

// ApplyRate returns round(amount × rate) in cents.
func (c Cents) ApplyRate(rate decimal.Decimal) Cents {
	return FromDecimal(c.Decimal().Mul(rate))
}

// IsNegative reports whether the amount is below zero.
func (c Cents) IsNegative() bool {
	return c < 0
}

// Sum adds the provided amounts.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, amount := range amounts {
		total += amount
	}
	return total
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*c = 0
		return nil
	}
	parsed, err := FromString(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
