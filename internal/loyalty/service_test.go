package loyalty

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type stubSource struct {
	points int64
	err    error
	calls  int
}

func (s *stubSource) LoyaltyPoints(context.Context, uuid.UUID) (int64, error) {
	s.calls++
	return s.points, s.err
}

func newTestService(t *testing.T, source BalanceSource, cache Cache) Service {
	t.Helper()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{Cache: cache, Source: source, Now: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestBalanceFetchesOnceThenServesCache(t *testing.T) {
	t.Parallel()

	source := &stubSource{points: 250}
	svc := newTestService(t, source, NewMemoryCache())
	owner := uuid.New()
	ctx := context.Background()

	snap, err := svc.Balance(ctx, owner)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if snap.PointsBalance != 250 || snap.Stale {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	source.points = 75
	snap, err = svc.Balance(ctx, owner)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if snap.PointsBalance != 250 || source.calls != 1 {
		t.Fatalf("expected cached value, got %+v after %d calls", snap, source.calls)
	}

	snap, err = svc.Refresh(ctx, owner)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.PointsBalance != 75 {
		t.Fatalf("expected refreshed balance 75, got %d", snap.PointsBalance)
	}
}

type gatedSource struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedSource) LoyaltyPoints(context.Context, uuid.UUID) (int64, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	return 90, nil
}

func TestConcurrentRefreshesShareOneFetch(t *testing.T) {
	t.Parallel()

	source := &gatedSource{entered: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(t, source, NewMemoryCache())
	owner := uuid.New()

	var wg sync.WaitGroup
	results := make([]int64, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := svc.Refresh(context.Background(), owner)
			if err != nil {
				t.Errorf("Refresh: %v", err)
				return
			}
			results[i] = snap.PointsBalance
		}(i)
	}
	<-source.entered
	time.Sleep(50 * time.Millisecond)
	close(source.release)
	wg.Wait()

	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected one authoritative fetch, got %d", got)
	}
	for _, points := range results {
		if points != 90 {
			t.Fatalf("unexpected balances %v", results)
		}
	}
}

// ctxGatedSource fails if the context it was handed is done by the time the
// gate opens.
type ctxGatedSource struct {
	gatedSource
}

func (g *ctxGatedSource) LoyaltyPoints(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	points, _ := g.gatedSource.LoyaltyPoints(ctx, ownerID)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return points, nil
}

func TestSharedRefreshSurvivesFirstCallerLeaving(t *testing.T) {
	t.Parallel()

	source := &ctxGatedSource{gatedSource{entered: make(chan struct{}), release: make(chan struct{})}}
	svc := newTestService(t, source, NewMemoryCache())
	owner := uuid.New()

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(first, owner)
		firstErr <- err
	}()
	<-source.entered

	second := make(chan Snapshot, 1)
	go func() {
		snap, err := svc.Refresh(context.Background(), owner)
		if err != nil {
			t.Errorf("Refresh: %v", err)
		}
		second <- snap
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the departed caller to see its own cancellation, got %v", err)
	}
	close(source.release)

	if snap := <-second; snap.PointsBalance != 90 {
		t.Fatalf("expected shared fetch to complete, got %+v", snap)
	}
	if got := source.calls.Load(); got != 1 {
		t.Fatalf("expected one authoritative fetch, got %d", got)
	}
}

func TestInvalidateMarksStale(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubSource{points: 120}, NewMemoryCache())
	owner := uuid.New()
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, owner); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := svc.Invalidate(ctx, owner); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	snap, err := svc.Balance(ctx, owner)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !snap.Stale || snap.PointsBalance != 120 {
		t.Fatalf("expected stale cached balance, got %+v", snap)
	}
}

func TestRefreshFailureLeavesCacheUntouched(t *testing.T) {
	t.Parallel()

	source := &stubSource{points: 300}
	cache := NewMemoryCache()
	svc := newTestService(t, source, cache)
	owner := uuid.New()
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, owner); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	source.err = errors.New("connection reset")
	if _, err := svc.Refresh(ctx, owner); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	snap, _, _ := cache.Load(ctx, owner)
	if snap.PointsBalance != 300 {
		t.Fatalf("cache should be unchanged, got %d", snap.PointsBalance)
	}
}

func TestEstimateAfterOrder(t *testing.T) {
	t.Parallel()

	snap := Snapshot{PointsBalance: 250}
	totals := pricing.Totals{Subtotal: 2500, PointsRedeemed: 200, PointsEarned: 25}
	if got := EstimateAfterOrder(snap, totals); got != 75 {
		t.Fatalf("expected 75, got %d", got)
	}
	if EarnedPoints(2599) != 25 {
		t.Fatal("expected floor of subtotal")
	}
}

func TestSummarizeInstantEligibility(t *testing.T) {
	t.Parallel()

	summary := Summarize(Snapshot{PointsBalance: 50}, pricing.Totals{Subtotal: 12000})
	if summary.StandardAvailable || !summary.InstantEligible {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.EarnPreview != 120 || summary.EstimatedAfter != 170 {
		t.Fatalf("unexpected preview %+v", summary)
	}
}

type mapKV map[string]string

func (m mapKV) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m mapKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m[key] = value.(string)
	return nil
}

func (m mapKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m, k)
	}
	return nil
}

func TestRedisCacheStoresBareInteger(t *testing.T) {
	t.Parallel()

	kv := mapKV{}
	cache, err := NewRedisCache(kv, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	owner := uuid.New()
	ctx := context.Background()
	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := cache.Store(ctx, Snapshot{OwnerID: owner, PointsBalance: 250, FetchedAt: fetched}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if kv["loyalty_"+owner.String()] != "250" {
		t.Fatalf("unexpected cached value %q", kv["loyalty_"+owner.String()])
	}

	snap, ok, err := cache.Load(ctx, owner)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if snap.Stale || !snap.FetchedAt.Equal(fetched) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := cache.MarkStale(ctx, owner); err != nil {
		t.Fatalf("MarkStale: %v", err)
	}
	snap, _, _ = cache.Load(ctx, owner)
	if !snap.Stale || snap.PointsBalance != 250 {
		t.Fatalf("expected stale snapshot with balance, got %+v", snap)
	}
}
