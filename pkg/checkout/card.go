package checkout

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/multierr"
)

const (
	minCardDigits = 13
	maxCardDigits = 19
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// CardInput holds raw card fields as entered by the customer.
type CardInput struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holderName"`
}

// ValidateCard runs every card validator and returns all failures combined
// with multierr. Use FieldErrors to split the result.
func ValidateCard(in CardInput, now time.Time) error {
	return multierr.Combine(
		ValidateCardNumber(in.Number),
		ValidateExpiry(in.Expiry, now),
		ValidateCVV(in.CVV),
		ValidateHolderName(in.HolderName),
	)
}

// FieldErrors flattens a combined validation error into field messages.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	for _, e := range multierr.Errors(err) {
		if fe, ok := e.(*FieldError); ok {
			out[fe.Field] = fe.Message
			continue
		}
		out["_"] = e.Error()
	}
	return out
}

// ValidateCardNumber checks length and the Luhn checksum.
func ValidateCardNumber(number string) error {
	digits := DigitsOnly(number)
	if digits == "" {
		return fieldErr("number", "is required")
	}
	if hasForeignChars(number) {
		return fieldErr("number", "must contain only digits")
	}
	if len(digits) < minCardDigits || len(digits) > maxCardDigits {
		return fieldErr("number", "must be between %d and %d digits", minCardDigits, maxCardDigits)
	}
	if !LuhnValid(digits) {
		return fieldErr("number", "failed checksum")
	}
	return nil
}

// LuhnValid reports whether digits passes the mod-10 checksum.
func LuhnValid(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateExpiry accepts MM/YY or MM/YYYY. A card is valid through the last
// day of its expiry month.
func ValidateExpiry(expiry string, now time.Time) error {
	month, year, err := parseExpiry(expiry)
	if err != nil {
		return err
	}
	endOfMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(endOfMonth) {
		return fieldErr("expiry", "card has expired")
	}
	return nil
}

func parseExpiry(expiry string) (int, int, error) {
	raw := strings.TrimSpace(expiry)
	if raw == "" {
		return 0, 0, fieldErr("expiry", "is required")
	}
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return 0, 0, fieldErr("expiry", "must be MM/YY")
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fieldErr("expiry", "month must be 01-12")
	}
	yearRaw := strings.TrimSpace(parts[1])
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return 0, 0, fieldErr("expiry", "year must be numeric")
	}
	switch len(yearRaw) {
	case 2:
		year += 2000
	case 4:
	default:
		return 0, 0, fieldErr("expiry", "year must be YY or YYYY")
	}
	return month, year, nil
}

// ValidateCVV accepts three or four digits.
func ValidateCVV(cvv string) error {
	raw := strings.TrimSpace(cvv)
	if raw == "" {
		return fieldErr("cvv", "is required")
	}
	if len(raw) < 3 || len(raw) > 4 || DigitsOnly(raw) != raw {
		return fieldErr("cvv", "must be 3 or 4 digits")
	}
	return nil
}

// ValidateHolderName requires at least two letters; hyphens, apostrophes,
// dots and spaces are allowed between them.
func ValidateHolderName(name string) error {
	raw := strings.TrimSpace(name)
	if raw == "" {
		return fieldErr("holderName", "is required")
	}
	letters := 0
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == ' ' || r == '-' || r == '\'' || r == '.':
		default:
			return fieldErr("holderName", "contains invalid character %q", r)
		}
	}
	if letters < 2 {
		return fieldErr("holderName", "is too short")
	}
	return nil
}

// DigitsOnly strips everything except ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hasForeignChars reports characters other than digits, spaces and dashes.
func hasForeignChars(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != ' ' && r != '-' {
			return true
		}
	}
	return false
}
