package enums

import "slices"

// RedemptionMode selects how loyalty points are applied to an order.
type RedemptionMode string

const (
	RedemptionModeNone     RedemptionMode = "none"
	RedemptionModeStandard RedemptionMode = "standard"
	RedemptionModeInstant  RedemptionMode = "instant"
)

var validRedemptionModes = []RedemptionMode{
	RedemptionModeNone,
	RedemptionModeStandard,
	RedemptionModeInstant,
}

// String implements fmt.Stringer.
func (m RedemptionMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known RedemptionMode.
func (m RedemptionMode) IsValid() bool {
	return slices.Contains(validRedemptionModes, m)
}

// OrNone maps the empty value to RedemptionModeNone.
func (m RedemptionMode) OrNone() RedemptionMode {
	if m == "" {
		return RedemptionModeNone
	}
	return m
}

// ParseRedemptionMode converts raw input into a RedemptionMode. Empty input is none.
func ParseRedemptionMode(value string) (RedemptionMode, error) {
	if value == "" {
		return RedemptionModeNone, nil
	}
	return parse("redemption mode", validRedemptionModes, value)
}
