package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

// DeadLetterLister returns the newest dead-lettered outbox events.
type DeadLetterLister interface {
	List(ctx context.Context, q outbox.DLQQuery) ([]models.OutboxDLQ, error)
}

type deadLetterResponse struct {
	ID           uuid.UUID                  `json:"id"`
	EventID      uuid.UUID                  `json:"eventId"`
	EventType    enums.OutboxEventType      `json:"eventType"`
	AggregateID  uuid.UUID                  `json:"aggregateId"`
	Topic        *string                    `json:"topic,omitempty"`
	Reason       enums.OutboxDLQErrorReason `json:"reason"`
	ErrorMessage *string                    `json:"errorMessage,omitempty"`
	AttemptCount int                        `json:"attemptCount"`
	Payload      json.RawMessage            `json:"payload"`
	FailedAt     time.Time                  `json:"failedAt"`
}

// AdminDeadLetters lists outbox events the publisher gave up on, optionally
// filtered by ?reason= and ?eventType=.
func AdminDeadLetters(dlq DeadLetterLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseDeadLetterQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := dlq.List(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letters"))
			return
		}
		out := make([]deadLetterResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, deadLetterResponse{
				ID:           row.ID,
				EventID:      row.EventID,
				EventType:    row.EventType,
				AggregateID:  row.AggregateID,
				Topic:        row.Topic,
				Reason:       row.ErrorReason,
				ErrorMessage: row.ErrorMessage,
				AttemptCount: row.AttemptCount,
				Payload:      row.Payload,
				FailedAt:     row.FailedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{"deadLetters": out})
	}
}

func parseDeadLetterQuery(r *http.Request) (outbox.DLQQuery, error) {
	limit, err := validators.ParseLimit(r, 50, 200)
	if err != nil {
		return outbox.DLQQuery{}, err
	}
	q := outbox.DLQQuery{Limit: limit}
	fields := map[string]string{}
	if raw := r.URL.Query().Get("reason"); raw != "" {
		if q.Reason, err = enums.ParseOutboxDLQErrorReason(raw); err != nil {
			fields["reason"] = "is invalid"
		}
	}
	if raw := r.URL.Query().Get("eventType"); raw != "" {
		if q.EventType, err = enums.ParseOutboxEventType(raw); err != nil {
			fields["eventType"] = "is invalid"
		}
	}
	if len(fields) > 0 {
		return outbox.DLQQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid dead letter filter").WithDetails(fields)
	}
	return q, nil
}
