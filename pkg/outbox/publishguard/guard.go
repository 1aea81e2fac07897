// Package publishguard remembers which outbox events were handed to Pub/Sub so
// a publisher that crashed between publish and commit does not send them twice.
package publishguard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const markScope = "evt:published"

// Store is the Redis surface the guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Guard claims events on behalf of one publisher process. Marks carry the
// process token, so a release only removes marks this process wrote.
type Guard struct {
	store Store
	ttl   time.Duration
	token string
}

func New(store Store, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("publish guard store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl, token: uuid.NewString()}, nil
}

// Claim reports whether this caller is first to publish eventID on topic.
func (g *Guard) Claim(ctx context.Context, topic string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(topic, eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, g.token, g.ttl)
}

// Release drops a claim after a failed publish so the next poll retries it.
func (g *Guard) Release(ctx context.Context, topic string, eventID uuid.UUID) error {
	key, err := g.key(topic, eventID)
	if err != nil {
		return err
	}
	_, err = g.store.CompareAndDelete(ctx, key, g.token)
	return err
}

func (g *Guard) key(topic string, eventID uuid.UUID) (string, error) {
	if topic == "" {
		return "", errors.New("topic is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(markScope+":"+topic, eventID.String()), nil
}
