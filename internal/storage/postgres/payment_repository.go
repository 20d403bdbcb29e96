package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

func (r *paymentRepository) Create(ctx context.Context, txn domain.PaymentTransaction) (domain.PaymentTransaction, error) {
	if err := txn.Validate(); err != nil {
		return domain.PaymentTransaction{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := time.Now().UTC()
	txn.CreatedAt = now
	txn.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payment_transactions (order_id, token, amount_minor, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, txn.OrderID, txn.Token, txn.AmountMinor, string(txn.Status), txn.CreatedAt, txn.UpdatedAt).Scan(&txn.ID)
	if err != nil {
		return domain.PaymentTransaction{}, fmt.Errorf("insert payment transaction: %w", err)
	}

	return txn, nil
}

func (r *paymentRepository) GetByToken(ctx context.Context, token string) (domain.PaymentTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		txn    domain.PaymentTransaction
		status string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, token, amount_minor, status, created_at, updated_at
		FROM payment_transactions
		WHERE token = $1
	`, token).Scan(&txn.ID, &txn.OrderID, &txn.Token, &txn.AmountMinor, &status, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentTransaction{}, domain.ErrTransactionNotFound
		}
		return domain.PaymentTransaction{}, fmt.Errorf("select payment transaction: %w", err)
	}
	txn.Status = domain.OrderStatus(status)

	return txn, nil
}

func (r *paymentRepository) UpdateStatusByToken(ctx context.Context, token string, status domain.OrderStatus) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status = $1,
		    updated_at = NOW()
		WHERE token = $2
	`, string(status), token)
	if err != nil {
		return fmt.Errorf("update payment transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
