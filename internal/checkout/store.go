package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// SessionStore persists one session per owner.
type SessionStore interface {
	Load(ctx context.Context, ownerID uuid.UUID) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, ownerID uuid.UUID) error
}

// RedisSessionStore keeps checkout_<ownerId> as JSON.
type RedisSessionStore struct {
	kv  redis.KV
	ttl time.Duration
}

func NewRedisSessionStore(kv redis.KV, ttl time.Duration) (*RedisSessionStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &RedisSessionStore{kv: kv, ttl: ttl}, nil
}

// Load returns nil when no session exists.
func (s *RedisSessionStore) Load(ctx context.Context, ownerID uuid.UUID) (*Session, error) {
	raw, err := s.kv.Get(ctx, redis.CheckoutKey(ownerID.String()))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkout session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode checkout session: %w", err)
	}
	if err := s.kv.Set(ctx, redis.CheckoutKey(session.OwnerID.String()), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save checkout session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, ownerID uuid.UUID) error {
	return s.kv.Del(ctx, redis.CheckoutKey(ownerID.String()))
}

// MemorySessionStore round-trips sessions through JSON so callers never share state.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: map[uuid.UUID][]byte{}}
}

func (s *MemorySessionStore) Load(_ context.Context, ownerID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	raw, ok := s.sessions[ownerID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.OwnerID] = raw
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ownerID)
	return nil
}
