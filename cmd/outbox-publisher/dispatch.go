package main

import (
	"context"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const outcomeDeadLetter = "dead_letter"

// dispatch moves one row forward. Publish failures are recorded on the row or
// in the DLQ; only bookkeeping failures are returned, aborting the batch.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	d := delivery{event: event, fields: eventFields(event)}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return s.deadLetter(ctx, tx, d, err)
	}
	d.resolve(resolved)

	claimed, err := s.claim(ctx, d)
	if err != nil {
		return s.retryLater(ctx, tx, d, fmt.Errorf("claim publish: %w", err))
	}
	if !claimed {
		s.logg.Info(s.logg.WithFields(ctx, d.fields), "outbox.event.already_published")
		s.metrics.IncOutbox(string(event.EventType), metrics.OutcomeReplay)
		return s.markPublished(tx, event)
	}

	if err := s.publish(ctx, d); err != nil {
		s.release(ctx, d)
		if _, permanent := registry.AsPermanent(err); permanent {
			return s.deadLetter(ctx, tx, d, err)
		}
		return s.retryLater(ctx, tx, d, err)
	}

	if err := s.markPublished(tx, event); err != nil {
		return err
	}
	s.metrics.IncOutbox(string(event.EventType), metrics.OutcomeSuccess)
	s.logg.Info(s.logg.WithFields(ctx, d.fields), "outbox.event.published")
	return nil
}

// delivery carries one row through dispatch along with its log fields.
type delivery struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	fields   map[string]any
}

func (d *delivery) resolve(r *registry.ResolvedEvent) {
	d.resolved = r
	d.fields["topic"] = r.Descriptor.Topic
	if env := r.Envelope; env.EventID != "" {
		d.fields["event_id"] = env.EventID
		d.fields["occurred_at"] = env.OccurredAt.Format(time.RFC3339Nano)
		if env.Actor != nil {
			d.fields["customer_id"] = env.Actor.CustomerID.String()
		}
	}
}

func (d *delivery) topic() string {
	if d.resolved == nil {
		return ""
	}
	return d.resolved.Descriptor.Topic
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.OrderingKey != nil {
		fields["ordering_key"] = *event.OrderingKey
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) retryLater(ctx context.Context, tx *gorm.DB, d delivery, cause error) error {
	attempt := d.event.AttemptCount + 1
	d.fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		return s.deadLetter(ctx, tx, d, registry.Permanent(enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", attempt, cause)))
	}

	s.metrics.IncOutbox(string(d.event.EventType), metrics.OutcomeFailure)
	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, d.fields), "error", cause.Error()), "outbox.publish.failed")
	if err := s.repo.MarkFailedTx(tx, d.event.ID, cause); err != nil {
		return fmt.Errorf("mark failure %s: %w", d.event.ID, err)
	}
	return nil
}

// deadLetter parks the row. The reason comes from a PermanentError in cause;
// anything else counts as non-retryable.
func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, d delivery, cause error) error {
	reason := enums.OutboxDLQReasonNonRetryable
	if perm, ok := registry.AsPermanent(cause); ok {
		reason = perm.Reason
	}
	d.fields["error_reason"] = reason
	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, d.fields), "error", cause.Error()), "outbox.event.dead_lettered")
	s.metrics.IncOutbox(string(d.event.EventType), outcomeDeadLetter)

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       d.event.ID,
		EventType:     d.event.EventType,
		AggregateType: d.event.AggregateType,
		AggregateID:   d.event.AggregateID,
		Payload:       d.event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  d.event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if topic := d.topic(); topic != "" {
		entry.Topic = &topic
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", d.event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, d.event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", d.event.ID, err)
	}
	return nil
}

func (s *Service) markPublished(tx *gorm.DB, event models.OutboxEvent) error {
	if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) claim(ctx context.Context, d delivery) (bool, error) {
	if s.guard == nil {
		return true, nil
	}
	return s.guard.Claim(ctx, d.topic(), d.event.ID)
}

func (s *Service) release(ctx context.Context, d delivery) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, d.topic(), d.event.ID); err != nil {
		s.logg.Error(s.logg.WithFields(ctx, d.fields), "outbox.claim.release_failed", err)
	}
}

// publish sends the stored envelope unchanged; routing metadata travels as
// message attributes.
func (s *Service) publish(ctx context.Context, d delivery) error {
	topic := d.topic()
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.Permanent(enums.OutboxDLQReasonNonRetryable, fmt.Errorf("%w for topic %s", errNilPublisher, topic))
	}

	event := d.event
	attrs := map[string]string{
		"event_id":       d.resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
	}
	if event.OrderingKey != nil {
		attrs["ordering_key"] = *event.OrderingKey
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, &gcppubsub.Message{Data: event.Payload, Attributes: attrs})
	if result == nil {
		return registry.Permanent(enums.OutboxDLQReasonNonRetryable, fmt.Errorf("publisher returned no result for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}
