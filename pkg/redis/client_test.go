package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "ip:orders:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, allowed, "hit %d", i+1)
		assert.EqualValues(t, i+1, count)
	}

	key := client.RateLimitKey("ip:orders:1.2.3.4")
	assert.Equal(t, time.Minute, mock.ttl[key])
	assert.Equal(t, 1, mock.expires[key], "window must start at the first hit only")
}

func TestFixedWindowRestoresLostTTL(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("customer:orders:abc")
	mock.counters[key] = 5

	_, count, err := client.FixedWindowAllow(ctx, "customer:orders:abc", 10, time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)
	assert.Equal(t, time.Second, mock.ttl[key])
}

func TestSetGetDelRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	key := CartKey("owner-1")
	require.NoError(t, client.Set(ctx, key, `[{"name":"Naan"}]`, time.Hour))
	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Naan"}]`, got)

	created, err := client.SetNX(ctx, key, "other", time.Hour)
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.True(t, IsNil(err))
}

func TestUninitializedClientErrors(t *testing.T) {
	var nilClient *Client
	for _, client := range []*Client{{}, nilClient} {
		assert.ErrorIs(t, client.Set(context.Background(), "k", "v", 0), errNotInitialized)
		assert.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
		_, _, err := client.FixedWindowAllow(context.Background(), "s", 1, time.Second)
		assert.ErrorIs(t, err, errNotInitialized)
		assert.NoError(t, client.Close())
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "sf:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "sf:idempotency:id", client.IdempotencyKey(" ", "id"))
	assert.Equal(t, "sf:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "cart_42", CartKey("42"))
	assert.Equal(t, "loyalty_42", LoyaltyKey(" 42 "))
	assert.Equal(t, "checkout_42", CheckoutKey("42"))
}

func TestCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}
	mock.data["lock"] = "owner-a"

	removed, err := client.CompareAndDelete(ctx, "lock", "owner-b")
	require.NoError(t, err)
	assert.False(t, removed, "foreign owner must not remove the key")

	removed, err = client.CompareAndDelete(ctx, "lock", "owner-a")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NotContains(t, mock.data, "lock")
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/2", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB, "url db wins over config")
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 3})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)

	_, err = optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	_, err = optionsFromConfig(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

// mockCmdable keeps strings and counters in memory and runs this package's
// scripts natively.
type mockCmdable struct {
	data     map[string]string
	counters map[string]int64
	ttl      map[string]time.Duration
	expires  map[string]int
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     map[string]string{},
		counters: map[string]int64{},
		ttl:      map[string]time.Duration{},
		expires:  map[string]int{},
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) EvalSha(_ context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	key := keys[0]
	switch sha {
	case compareAndDelete.Hash():
		if v, ok := m.data[key]; ok && v == fmt.Sprint(args[0]) {
			delete(m.data, key)
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	case fixedWindow.Hash():
		m.counters[key]++
		if _, hasTTL := m.ttl[key]; m.counters[key] == 1 || !hasTTL {
			ms, err := strconv.ParseInt(fmt.Sprint(args[0]), 10, 64)
			if err != nil {
				return redis.NewCmdResult(nil, err)
			}
			m.ttl[key] = time.Duration(ms) * time.Millisecond
			m.expires[key]++
		}
		return redis.NewCmdResult(m.counters[key], nil)
	}
	return redis.NewCmdResult(nil, errors.New("NOSCRIPT unknown script"))
}

func (m *mockCmdable) Eval(context.Context, string, []string, ...any) *redis.Cmd {
	return redis.NewCmdResult(nil, errors.New("eval not supported"))
}

func (m *mockCmdable) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return m.Eval(ctx, script, keys, args...)
}

func (m *mockCmdable) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return m.EvalSha(ctx, sha, keys, args...)
}

func (m *mockCmdable) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (m *mockCmdable) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}
