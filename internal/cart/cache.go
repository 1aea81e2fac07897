package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Cache persists an owner's line items.
type Cache interface {
	Load(ctx context.Context, ownerID uuid.UUID) ([]LineItem, error)
	Save(ctx context.Context, ownerID uuid.UUID, items []LineItem) error
	Delete(ctx context.Context, ownerID uuid.UUID) error
}

// RedisCache stores cart_<ownerId> as a JSON array of line items.
type RedisCache struct {
	kv  redis.KV
	ttl time.Duration
}

// NewRedisCache builds a Redis-backed cart cache.
func NewRedisCache(kv redis.KV, ttl time.Duration) (*RedisCache, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &RedisCache{kv: kv, ttl: ttl}, nil
}

func (c *RedisCache) Load(ctx context.Context, ownerID uuid.UUID) ([]LineItem, error) {
	raw, err := c.kv.Get(ctx, redis.CartKey(ownerID.String()))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (c *RedisCache) Save(ctx context.Context, ownerID uuid.UUID, items []LineItem) error {
	if len(items) == 0 {
		return c.Delete(ctx, ownerID)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.kv.Set(ctx, redis.CartKey(ownerID.String()), string(payload), c.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, ownerID uuid.UUID) error {
	if err := c.kv.Del(ctx, redis.CartKey(ownerID.String())); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// MemoryCache keeps carts in process memory.
type MemoryCache struct {
	mu    sync.Mutex
	carts map[uuid.UUID][]LineItem
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{carts: map[uuid.UUID][]LineItem{}}
}

func (c *MemoryCache) Load(_ context.Context, ownerID uuid.UUID) ([]LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.carts[ownerID]), nil
}

func (c *MemoryCache) Save(_ context.Context, ownerID uuid.UUID, items []LineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(items) == 0 {
		delete(c.carts, ownerID)
		return nil
	}
	c.carts[ownerID] = cloneItems(items)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, ownerID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, ownerID)
	return nil
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.clone()
	}
	return out
}
