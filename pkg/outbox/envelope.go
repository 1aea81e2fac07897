package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// EnvelopeVersion is bumped when the envelope shape changes.
const EnvelopeVersion = 1

// Actor is the customer whose action produced the event.
type Actor struct {
	CustomerID uuid.UUID          `json:"customerId"`
	Role       enums.CustomerRole `json:"role,omitempty"`
}

// Envelope wraps every stored payload; it is also the Pub/Sub message body.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(data any, actor *Actor, occurredAt time.Time) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode event data: %w", err)
	}
	return Envelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       raw,
	}, nil
}

// DecodeEnvelope parses a stored payload column.
func DecodeEnvelope(raw json.RawMessage) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// HasData reports whether the envelope carries a non-null payload.
func (e Envelope) HasData() bool {
	s := string(e.Data)
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\n' || s[0] == '\t' || s[0] == '\r') {
		s = s[1:]
	}
	return s != "" && s != "null"
}
