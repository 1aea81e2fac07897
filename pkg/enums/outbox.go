package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregateLoyaltyAccount OutboxAggregateType = "loyalty_account"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateLoyaltyAccount,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", validAggregateTypes, value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderConfirmed       OutboxEventType = "order_confirmed"
	EventLoyaltyPointsApplied OutboxEventType = "loyalty_points_applied"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderConfirmed,
	EventLoyaltyPointsApplied,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", validOutboxEventTypes, value)
}
