package memory

import (
	"context"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Create сохраняет платёжную транзакцию по её токену.
func (s *Store) Create(_ context.Context, txn domain.PaymentTransaction) (domain.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTxnID++
	txn.ID = s.nextTxnID
	now := s.now()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	s.transactions[txn.Token] = txn
	return txn, nil
}

// GetByToken возвращает транзакцию или ErrTransactionNotFound.
func (s *Store) GetByToken(_ context.Context, token string) (domain.PaymentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions[token]
	if !ok {
		return domain.PaymentTransaction{}, domain.ErrTransactionNotFound
	}
	return txn, nil
}

// UpdateStatusByToken синхронизирует статус транзакции со статусом заказа.
func (s *Store) UpdateStatusByToken(_ context.Context, token string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[token]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	txn.Status = status
	txn.UpdatedAt = s.now()
	s.transactions[token] = txn
	return nil
}

var _ domain.PaymentRepository = (*Store)(nil)
