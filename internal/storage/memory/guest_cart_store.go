package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// GuestCartStore — in-memory замена Redis-хранилища гостевых корзин.
// TTL здесь не моделируется: тестам достаточно семантики add/list/clear.
type GuestCartStore struct {
	mu    sync.RWMutex
	carts map[string]map[int64]int32
}

// NewGuestCartStore создаёт пустое хранилище гостевых корзин.
func NewGuestCartStore() *GuestCartStore {
	return &GuestCartStore{carts: make(map[string]map[int64]int32)}
}

// Add увеличивает количество товара в гостевой корзине.
func (g *GuestCartStore) Add(_ context.Context, guestID string, productID int64, qty int32) error {
	if qty <= 0 {
		return domain.ErrQuantityInvalid
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cart, ok := g.carts[guestID]
	if !ok {
		cart = make(map[int64]int32)
		g.carts[guestID] = cart
	}
	cart[productID] += qty
	return nil
}

// List возвращает содержимое гостевой корзины в детерминированном порядке.
func (g *GuestCartStore) List(_ context.Context, guestID string) ([]domain.CartSelection, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cart := g.carts[guestID]
	result := make([]domain.CartSelection, 0, len(cart))
	for productID, qty := range cart {
		result = append(result, domain.CartSelection{ProductID: productID, Quantity: qty})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result, nil
}

// Clear удаляет гостевую корзину.
func (g *GuestCartStore) Clear(_ context.Context, guestID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.carts, guestID)
	return nil
}

var _ domain.GuestCartStore = (*GuestCartStore)(nil)
