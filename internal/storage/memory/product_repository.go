package memory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// GetByID возвращает товар или ErrProductNotFound.
func (s *Store) GetByID(_ context.Context, id int64) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: id=%d", domain.ErrProductNotFound, id)
	}
	return product, nil
}

// GetByIDs возвращает найденные товары; отсутствующие id молча пропускаются.
func (s *Store) GetByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

// Deduct списывает сток по позициям заказа. Всё или ничего: нехватка по
// любому товару оставляет остатки в исходном состоянии.
func (s *Store) Deduct(_ context.Context, items []domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Фаза проверки под «блокировкой» (мьютекс играет роль FOR UPDATE).
	for _, item := range items {
		product, ok := s.products[item.ProductID]
		if !ok {
			return fmt.Errorf("%w: id=%d", domain.ErrProductNotFound, item.ProductID)
		}
		if product.Stock < item.Quantity {
			return fmt.Errorf("%w: product %q has %d left, requested %d",
				domain.ErrInsufficientStock, product.Name, product.Stock, item.Quantity)
		}
	}
	for _, item := range items {
		product := s.products[item.ProductID]
		product.Stock -= item.Quantity
		s.products[item.ProductID] = product
	}
	return nil
}

// Replenish возвращает сток по позициям заказа.
func (s *Store) Replenish(_ context.Context, items []domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		product, ok := s.products[item.ProductID]
		if !ok {
			return fmt.Errorf("%w: id=%d", domain.ErrProductNotFound, item.ProductID)
		}
		product.Stock += item.Quantity
		s.products[item.ProductID] = product
	}
	return nil
}

var (
	_ domain.ProductRepository = (*Store)(nil)
	_ domain.StockLedger       = (*Store)(nil)
)
