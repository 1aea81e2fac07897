package checkout

import "strings"

// FormatCardNumber groups digits in blocks of four for display while typing.
func FormatCardNumber(raw string) string {
	digits := DigitsOnly(raw)
	if len(digits) > maxCardDigits {
		digits = digits[:maxCardDigits]
	}
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiry turns partial digit input into MM/YY.
func FormatExpiry(raw string) string {
	digits := DigitsOnly(raw)
	if len(digits) > 4 {
		digits = digits[:4]
	}
	if len(digits) <= 2 {
		return digits
	}
	return digits[:2] + "/" + digits[2:]
}

// MaskCardNumber keeps only the last four digits visible.
func MaskCardNumber(raw string) string {
	digits := DigitsOnly(raw)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// LastFour returns the trailing four digits or the whole input when shorter.
func LastFour(raw string) string {
	digits := DigitsOnly(raw)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
