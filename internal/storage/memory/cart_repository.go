package memory

import (
	"context"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// List возвращает позиции корзины пользователя с живым состоянием товаров.
func (s *Store) List(_ context.Context, userID int64) ([]domain.ResolvedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.cartItems[userID]
	result := make([]domain.ResolvedItem, 0, len(items))
	for _, item := range items {
		product, ok := s.products[item.ProductID]
		if !ok {
			continue
		}
		result = append(result, domain.ResolvedItem{Product: product, Quantity: item.Quantity})
	}
	return result, nil
}

// Upsert вставляет позицию корзины или перезаписывает её количество.
func (s *Store) Upsert(_ context.Context, item domain.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = s.now()
	}
	items := s.cartItems[item.UserID]
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i] = item
			s.cartItems[item.UserID] = items
			return nil
		}
	}
	s.cartItems[item.UserID] = append(items, item)
	return nil
}

// Remove удаляет позицию корзины или возвращает ErrCartItemNotFound.
func (s *Store) Remove(_ context.Context, userID, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.cartItems[userID]
	for i := range items {
		if items[i].ProductID == productID {
			s.cartItems[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrCartItemNotFound
}

// Clear удаляет все позиции корзины пользователя.
func (s *Store) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cartItems, userID)
	return nil
}

var _ domain.CartRepository = (*Store)(nil)
