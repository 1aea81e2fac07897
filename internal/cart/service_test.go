package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/money"
)

type recordingAck struct {
	acks []Ack
}

func (r *recordingAck) Acknowledge(_ context.Context, ack Ack) {
	r.acks = append(r.acks, ack)
}

func newTestService(t *testing.T, ack Acknowledger) (Service, *MemoryCache) {
	t.Helper()
	cache := NewMemoryCache()
	svc, err := NewService(ServiceParams{Cache: cache, Acknowledger: ack})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, cache
}

func butterChicken() LineItem {
	return LineItem{Name: "Butter Chicken", Category: "Mains", UnitPrice: 1250}
}

func TestAddItemMergesByKey(t *testing.T) {
	t.Parallel()

	ack := &recordingAck{}
	svc, _ := newTestService(t, ack)
	owner := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, owner, butterChicken(), 0); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	item := butterChicken()
	item.Name = "  Butter Chicken "
	cart, err := svc.AddItem(ctx, owner, item, 2)
	if err != nil {
		t.Fatalf("AddItem merge: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one merged line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", cart.Items[0].Quantity)
	}
	if cart.Subtotal() != 3750 {
		t.Fatalf("expected subtotal 37.50, got %s", cart.Subtotal())
	}
	if len(ack.acks) != 2 || ack.acks[1].Quantity != 2 {
		t.Fatalf("unexpected acks %+v", ack.acks)
	}
}

func TestAddItemAppendsDistinctCategory(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	owner := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, owner, butterChicken(), 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	lunch := butterChicken()
	lunch.Category = "Lunch Specials"
	cart, err := svc.AddItem(ctx, owner, lunch, 1)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected two lines, got %d", len(cart.Items))
	}
}

func TestAddItemRejectsNegativeQuantity(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	_, err := svc.AddItem(context.Background(), uuid.New(), butterChicken(), -1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetQuantityAndRemove(t *testing.T) {
	t.Parallel()

	svc, cache := newTestService(t, nil)
	owner := uuid.New()
	ctx := context.Background()
	key := butterChicken().Key()

	if _, err := svc.AddItem(ctx, owner, butterChicken(), 1); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	cart, err := svc.SetQuantity(ctx, owner, key, 4)
	if err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	if cart.Items[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", cart.Items[0].Quantity)
	}

	if _, err := svc.SetQuantity(ctx, owner, key, 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	cart, err = svc.RemoveItem(ctx, owner, key)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("expected empty cart, got %+v", cart.Items)
	}
	if stored, _ := cache.Load(ctx, owner); stored != nil {
		t.Fatalf("expected cache entry removed, got %+v", stored)
	}

	if _, err := svc.RemoveItem(ctx, owner, key); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEmptyClearsCart(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	owner := uuid.New()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, owner, butterChicken(), 2); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := svc.Empty(ctx, owner); err != nil {
		t.Fatalf("Empty: %v", err)
	}
	cart, err := svc.Get(ctx, owner)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !cart.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestSubtotalLaw(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil)
	owner := uuid.New()
	ctx := context.Background()

	items := []LineItem{
		{Name: "Samosa", Category: "Starters", UnitPrice: 499},
		{Name: "Naan", Category: "Breads", UnitPrice: 299},
		{Name: "Lassi", Category: "Drinks", UnitPrice: 0},
	}
	var want money.Cents
	for i, item := range items {
		if _, err := svc.AddItem(ctx, owner, item, i+1); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		want += item.UnitPrice.Times(i + 1)
	}
	cart, err := svc.Get(ctx, owner)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cart.Subtotal() != want {
		t.Fatalf("expected subtotal %s, got %s", want, cart.Subtotal())
	}
}

type failingCache struct{ *MemoryCache }

func (f *failingCache) Save(context.Context, uuid.UUID, []LineItem) error {
	return errors.New("redis down")
}

func TestAddItemSurfacesCacheFailure(t *testing.T) {
	t.Parallel()

	svc, err := NewService(ServiceParams{Cache: &failingCache{MemoryCache: NewMemoryCache()}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	_, err = svc.AddItem(context.Background(), uuid.New(), butterChicken(), 1)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCartCloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := &Cart{Items: []LineItem{{Name: "Dal", Category: "Mains", UnitPrice: 900, Quantity: 1, Tags: []string{"vegan"}}}}
	copied := original.Clone()
	copied.Items[0].Quantity = 5
	copied.Items[0].Tags[0] = "spicy"

	if original.Items[0].Quantity != 1 || original.Items[0].Tags[0] != "vegan" {
		t.Fatalf("clone shares state with original: %+v", original.Items[0])
	}
	if original.Equal(copied) {
		t.Fatal("expected carts to differ after mutation")
	}
}

func TestLogAcknowledgerNeverBlocks(t *testing.T) {
	t.Parallel()

	ack := &LogAcknowledger{ch: make(chan Ack, 1), done: make(chan struct{})}
	dropped := 0
	ack.dropped = func(Ack) { dropped++ }

	for i := 0; i < 5; i++ {
		ack.Acknowledge(context.Background(), Ack{Name: "Naan", Quantity: 1})
	}
	if dropped != 4 {
		t.Fatalf("expected 4 dropped acks, got %d", dropped)
	}

	go ack.run()
	ack.Close()
	ack.Acknowledge(context.Background(), Ack{Name: "after close"})
}
