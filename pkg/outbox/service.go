// Package outbox writes domain events into outbox_events inside the caller's
// transaction; cmd/outbox-publisher later forwards them to Pub/Sub.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Event is one row to queue.
type Event struct {
	Type          enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	// OrderingKey groups related events; consumers receive it as a message attribute.
	OrderingKey string
	Actor       *Actor
	Data        any
}

func (e Event) validate() error {
	switch {
	case !e.Type.IsValid():
		return fmt.Errorf("unknown outbox event type %q", e.Type)
	case e.AggregateID == uuid.Nil:
		return fmt.Errorf("%s: aggregate id is required", e.Type)
	case e.Data == nil:
		return fmt.Errorf("%s: data is required", e.Type)
	}
	return nil
}

type inserter interface {
	Insert(tx *gorm.DB, event models.OutboxEvent) error
}

type Service struct {
	repo inserter
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit queues events in tx, which must be the transaction that persists the
// change they describe. Either every event is written or none is.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, events ...Event) error {
	if tx == nil {
		return errors.New("outbox: transaction required")
	}
	occurredAt := s.now()
	for _, event := range events {
		if err := event.validate(); err != nil {
			return err
		}
		env, err := newEnvelope(event.Data, event.Actor, occurredAt)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(env)
		if err != nil {
			return err
		}
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     event.Type,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       payload,
		}
		if event.OrderingKey != "" {
			key := event.OrderingKey
			row.OrderingKey = &key
		}
		if err := s.repo.Insert(tx.WithContext(ctx), row); err != nil {
			return fmt.Errorf("queue %s: %w", event.Type, err)
		}
		if s.logg != nil {
			s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
				"event_id":     env.EventID,
				"event_type":   event.Type,
				"aggregate_id": event.AggregateID.String(),
			}), "outbox.queued")
		}
	}
	return nil
}
