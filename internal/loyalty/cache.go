package loyalty

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Cache stores the last fetched balance for an owner.
type Cache interface {
	Load(ctx context.Context, ownerID uuid.UUID) (Snapshot, bool, error)
	Store(ctx context.Context, snap Snapshot) error
	MarkStale(ctx context.Context, ownerID uuid.UUID) error
}

const fetchedAtSuffix = "_fetched_at"

// RedisCache keeps loyalty_<ownerId> as a bare integer. A companion key holds
// the fetch time; its absence marks the value stale.
type RedisCache struct {
	kv  redis.KV
	ttl time.Duration
}

func NewRedisCache(kv redis.KV, ttl time.Duration) (*RedisCache, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis store required")
	}
	return &RedisCache{kv: kv, ttl: ttl}, nil
}

func (c *RedisCache) Load(ctx context.Context, ownerID uuid.UUID) (Snapshot, bool, error) {
	key := redis.LoyaltyKey(ownerID.String())
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("load loyalty balance: %w", err)
	}
	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("decode loyalty balance %q: %w", raw, err)
	}
	snap := Snapshot{OwnerID: ownerID, PointsBalance: balance, Stale: true}

	fetched, err := c.kv.Get(ctx, key+fetchedAtSuffix)
	switch {
	case err == nil:
		if unix, perr := strconv.ParseInt(fetched, 10, 64); perr == nil {
			snap.FetchedAt = time.Unix(0, unix).UTC()
			snap.Stale = false
		}
	case !redis.IsNil(err):
		return Snapshot{}, false, fmt.Errorf("load loyalty fetch time: %w", err)
	}
	return snap, true, nil
}

func (c *RedisCache) Store(ctx context.Context, snap Snapshot) error {
	key := redis.LoyaltyKey(snap.OwnerID.String())
	if err := c.kv.Set(ctx, key, strconv.FormatInt(snap.PointsBalance, 10), c.ttl); err != nil {
		return fmt.Errorf("store loyalty balance: %w", err)
	}
	if err := c.kv.Set(ctx, key+fetchedAtSuffix, strconv.FormatInt(snap.FetchedAt.UnixNano(), 10), c.ttl); err != nil {
		return fmt.Errorf("store loyalty fetch time: %w", err)
	}
	return nil
}

func (c *RedisCache) MarkStale(ctx context.Context, ownerID uuid.UUID) error {
	if err := c.kv.Del(ctx, redis.LoyaltyKey(ownerID.String())+fetchedAtSuffix); err != nil {
		return fmt.Errorf("mark loyalty stale: %w", err)
	}
	return nil
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu    sync.Mutex
	snaps map[uuid.UUID]Snapshot
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{snaps: map[uuid.UUID]Snapshot{}}
}

func (c *MemoryCache) Load(_ context.Context, ownerID uuid.UUID) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[ownerID]
	return snap, ok, nil
}

func (c *MemoryCache) Store(_ context.Context, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[snap.OwnerID] = snap
	return nil
}

func (c *MemoryCache) MarkStale(_ context.Context, ownerID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap, ok := c.snaps[ownerID]; ok {
		snap.Stale = true
		c.snaps[ownerID] = snap
	}
	return nil
}
