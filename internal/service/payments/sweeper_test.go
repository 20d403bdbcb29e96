package payments

import (
	"context"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func seedSweeperOrder(t *testing.T, store *memory.Store, expiresAt time.Time) domain.Order {
	t.Helper()

	product := store.SeedProduct(domain.Product{Name: "Collar", PriceMinor: 100, Stock: 100})
	order, err := store.CreateOrder(context.Background(), domain.CheckoutDraft{
		Identity:        domain.GuestIdentity("guest@example.com"),
		GuestItems:      []domain.CartSelection{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: "Av. Providencia 1234",
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestSweepOnce_CancelsExpiredPending(t *testing.T) {
	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	expired := seedSweeperOrder(t, store, now.Add(-time.Minute))
	fresh := seedSweeperOrder(t, store, now.Add(time.Hour))
	paid := seedSweeperOrder(t, store, now.Add(-time.Minute))
	if err := store.UpdateStatus(context.Background(), paid.ID, domain.OrderStatusPending, domain.OrderStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	sweeper := NewSweeper(store, outbox,
		WithSweepLogger(loggerForTests()),
		WithSweepClock(func() time.Time { return now }),
	)

	canceled, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if canceled != 1 {
		t.Fatalf("expected 1 canceled order, got %d", canceled)
	}

	assertStatus := func(id int64, want domain.OrderStatus) {
		t.Helper()
		order, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get order %d: %v", id, err)
		}
		if order.Status != want {
			t.Fatalf("order %d: expected %s, got %s", id, want, order.Status)
		}
	}
	assertStatus(expired.ID, domain.OrderStatusCancelled)
	assertStatus(fresh.ID, domain.OrderStatusPending)
	assertStatus(paid.ID, domain.OrderStatusPaid)

	events, err := outbox.PullPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pull outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "OrderExpired" {
		t.Fatalf("expected one OrderExpired event, got %v", events)
	}
}

func TestSweepOnce_DrainsInBatches(t *testing.T) {
	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedSweeperOrder(t, store, now.Add(-time.Minute))
	}

	sweeper := NewSweeper(store, outbox,
		WithSweepLogger(loggerForTests()),
		WithSweepClock(func() time.Time { return now }),
		WithSweepBatchSize(2),
	)

	canceled, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if canceled != 5 {
		t.Fatalf("expected all 5 orders canceled, got %d", canceled)
	}
}

func TestSweepOnce_DoesNotReplenishStock(t *testing.T) {
	store := memory.NewStore()
	outbox := memory.NewOutboxRepository()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	order := seedSweeperOrder(t, store, now.Add(-time.Minute))
	productID := order.Items[0].ProductID
	before := store.ProductStock(productID)

	sweeper := NewSweeper(store, outbox,
		WithSweepLogger(loggerForTests()),
		WithSweepClock(func() time.Time { return now }),
	)
	if _, err := sweeper.SweepOnce(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// Экспирация не трогает склад: PENDING-заказ ничего не списывал.
	if got := store.ProductStock(productID); got != before {
		t.Fatalf("expected stock %d, got %d", before, got)
	}
}
