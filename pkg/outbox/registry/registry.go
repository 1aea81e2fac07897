// Package registry maps outbox event types to their Pub/Sub topic and payload
// type, and decodes stored rows for the publisher.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// describe binds an event type to payload type T.
func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			payload := new(T)
			if err := json.Unmarshal(raw, payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
	}
}

// ResolvedEvent is a row ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.Envelope
	Payload    any
}

// PermanentError marks a row that will never publish. Reason is recorded on
// the dead-letter entry.
type PermanentError struct {
	Reason enums.OutboxDLQErrorReason
	Err    error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(reason enums.OutboxDLQErrorReason, err error) error {
	return &PermanentError{Reason: reason, Err: err}
}

// AsPermanent finds a PermanentError in err's chain.
func AsPermanent(err error) (*PermanentError, bool) {
	var perm *PermanentError
	ok := errors.As(err, &perm)
	return perm, ok
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry wires every event type this service emits to its topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	for _, desc := range []EventDescriptor{
		describe[payloads.OrderConfirmedEvent](enums.EventOrderConfirmed, enums.AggregateOrder, cfg.OrdersTopic),
		describe[payloads.LoyaltyPointsAppliedEvent](enums.EventLoyaltyPointsApplied, enums.AggregateLoyaltyAccount, cfg.OrdersTopic),
	} {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is permanent: retrying cannot change a stored row.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(enums.OutboxDLQReasonNonRetryable, fmt.Errorf("unsupported event type %q", event.EventType))
	case desc.AggregateType != event.AggregateType:
		return nil, Permanent(enums.OutboxDLQReasonNonRetryable,
			fmt.Errorf("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(enums.OutboxDLQReasonNonRetryable, errors.New("missing aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, Permanent(enums.OutboxDLQReasonDecodeFailed, fmt.Errorf("envelope: %w", err))
	}
	if !env.HasData() {
		return nil, Permanent(enums.OutboxDLQReasonDecodeFailed, fmt.Errorf("%s: empty payload", event.EventType))
	}
	payload, err := desc.decode(env.Data)
	if err != nil {
		return nil, Permanent(enums.OutboxDLQReasonDecodeFailed, fmt.Errorf("%s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
