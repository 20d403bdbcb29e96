package app

import "testing"

func TestNewDependencies_InMemory(t *testing.T) {
	t.Parallel()

	deps := NewDependencies(nil)

	if deps.Checkout == nil {
		t.Fatal("expected checkout repository")
	}
	if deps.Orders == nil {
		t.Fatal("expected order repository")
	}
	if deps.Products == nil {
		t.Fatal("expected product repository")
	}
	if deps.Stock == nil {
		t.Fatal("expected stock ledger")
	}
	if deps.Carts == nil {
		t.Fatal("expected cart repository")
	}
	if deps.Payments == nil {
		t.Fatal("expected payment repository")
	}
	if deps.Outbox == nil {
		t.Fatal("expected outbox repository")
	}
	if deps.GuestCarts == nil {
		t.Fatal("expected guest cart store")
	}
	if deps.Logger == nil {
		t.Fatal("expected fallback logger")
	}
}
