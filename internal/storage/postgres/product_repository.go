package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const productColumns = `
	id, code, name, price_minor, offer_price_minor, stock, purchase_limit, created_at, updated_at
`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
// Репозиторий также служит складской книгой (StockLedger): списание и
// возврат остатков выполняются транзакционно под блокировкой строк.
func NewProductRepository(store *Store) *productRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var p domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id).Scan(
		&p.ID, &p.Code, &p.Name, &p.PriceMinor, &p.OfferPriceMinor,
		&p.Stock, &p.PurchaseLimit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return p, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	if len(ids) == 0 {
		return map[int64]domain.Product{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.Code, &p.Name, &p.PriceMinor, &p.OfferPriceMinor,
			&p.Stock, &p.PurchaseLimit, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// Deduct списывает остатки по всем позициям заказа или не списывает ничего.
// Строки товаров блокируются в порядке возрастания id во избежание взаимных
// блокировок между конкурирующими подтверждениями.
func (r *productRepository) Deduct(ctx context.Context, items []domain.OrderItem) error {
	return r.adjust(ctx, items, -1)
}

// Replenish возвращает остатки по позициям заказа.
func (r *productRepository) Replenish(ctx context.Context, items []domain.OrderItem) error {
	return r.adjust(ctx, items, +1)
}

func (r *productRepository) adjust(ctx context.Context, items []domain.OrderItem, sign int32) error {
	if len(items) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	ordered := make([]domain.OrderItem, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ProductID < ordered[j].ProductID })

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stock tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, item := range ordered {
		var (
			name  string
			stock int32
		)
		err = tx.QueryRowContext(ctx, `
			SELECT name, stock
			FROM products
			WHERE id = $1
			FOR UPDATE
		`, item.ProductID).Scan(&name, &stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = fmt.Errorf("product %d: %w", item.ProductID, domain.ErrProductNotFound)
			} else {
				err = fmt.Errorf("select product for stock: %w", err)
			}
			return err
		}

		delta := sign * item.Quantity
		if stock+delta < 0 {
			err = fmt.Errorf("%s: need %d, in stock %d: %w",
				name, item.Quantity, stock, domain.ErrInsufficientStock)
			return err
		}

		if _, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1,
			    updated_at = NOW()
			WHERE id = $2
		`, delta, item.ProductID); err != nil {
			err = fmt.Errorf("update stock: %w", err)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit stock tx: %w", err)
	}

	return nil
}

var (
	_ domain.ProductRepository = (*productRepository)(nil)
	_ domain.StockLedger       = (*productRepository)(nil)
)
