package enums

import "slices"

// LedgerEventType maps to the loyalty_ledger_event_type enum in Postgres.
type LedgerEventType string

const (
	LedgerEventTypePointsEarned   LedgerEventType = "points_earned"
	LedgerEventTypePointsRedeemed LedgerEventType = "points_redeemed"
	LedgerEventTypeAdjustment     LedgerEventType = "adjustment"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypePointsEarned,
	LedgerEventTypePointsRedeemed,
	LedgerEventTypeAdjustment,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	return slices.Contains(validLedgerEventTypes, t)
}

// Sign returns +1 for credits and -1 for debits; adjustments carry their own sign.
func (t LedgerEventType) Sign() int64 {
	if t == LedgerEventTypePointsRedeemed {
		return -1
	}
	return 1
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	return parse("ledger event type", validLedgerEventTypes, value)
}
