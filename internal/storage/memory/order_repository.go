package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Get возвращает заказ с позициями или ErrOrderNotFound.
func (s *Store) Get(_ context.Context, id int64) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (s *Store) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.UserID != nil && *order.UserID == userID {
			result = append(result, cloneOrder(order))
		}
	}
	sortOrdersDesc(result)
	return result, nil
}

// ListAll возвращает все заказы, новые первыми.
func (s *Store) ListAll(_ context.Context) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, cloneOrder(order))
	}
	sortOrdersDesc(result)
	return result, nil
}

// ListExpiredPending возвращает PENDING-заказы с истёкшим дедлайном оплаты.
func (s *Store) ListExpiredPending(_ context.Context, before time.Time, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.Status != domain.OrderStatusPending {
			continue
		}
		if !order.ExpiresAt.Before(before) {
			continue
		}
		result = append(result, cloneOrder(order))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateStatus атомарно переводит заказ from → to.
func (s *Store) UpdateStatus(_ context.Context, orderID int64, from, to domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if order.Status != from {
		return domain.ErrOrderStateConflict
	}
	order.Status = to
	s.orders[orderID] = order
	return nil
}

// UpdateDeliveryStatus меняет логистический статус заказа.
func (s *Store) UpdateDeliveryStatus(_ context.Context, orderID int64, status domain.DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.DeliveryStatus = status
	s.orders[orderID] = order
	return nil
}

func sortOrdersDesc(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// cloneOrder копирует заказ вместе со слайсом позиций, чтобы вызывающая
// сторона не могла мутировать содержимое хранилища.
func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	if order.UserID != nil {
		id := *order.UserID
		order.UserID = &id
	}
	return order
}

var _ domain.OrderRepository = (*Store)(nil)
