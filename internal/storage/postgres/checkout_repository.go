package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type checkoutRepository struct {
	db *sql.DB
}

// NewCheckoutRepository создаёт PostgreSQL-реализацию CheckoutRepository.
// Весь чекаут выполняется в одной транзакции: валидация позиций под
// блокировкой строк товара, создание заказа и очистка корзины либо
// происходят целиком, либо не происходят вовсе.
func NewCheckoutRepository(store *Store) domain.CheckoutRepository {
	return &checkoutRepository{db: store.DB()}
}

func (r *checkoutRepository) CreateOrder(ctx context.Context, draft domain.CheckoutDraft) (domain.Order, error) {
	if err := draft.Identity.Validate(); err != nil {
		return domain.Order{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin checkout tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var order domain.Order
	order, err = r.createOrderTx(ctx, tx, draft)
	if err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit checkout tx: %w", err)
	}

	return order, nil
}

func (r *checkoutRepository) createOrderTx(ctx context.Context, tx *sql.Tx, draft domain.CheckoutDraft) (domain.Order, error) {
	var (
		userID        *int64
		guestEmail    string
		customerEmail string
		selections    []domain.CartSelection
	)

	switch draft.Identity.Kind {
	case domain.IdentityUser:
		id := draft.Identity.UserID
		email, err := r.userEmailTx(ctx, tx, id)
		if err != nil {
			return domain.Order{}, err
		}
		userID = &id
		customerEmail = email

		selections, err = r.cartSelectionsTx(ctx, tx, id)
		if err != nil {
			return domain.Order{}, err
		}

	case domain.IdentityGuest:
		guestEmail = draft.Identity.Email
		customerEmail = draft.Identity.Email
		selections = draft.GuestItems

		if draft.NewAccount != nil {
			id, err := r.insertUserTx(ctx, tx, *draft.NewAccount)
			if err != nil {
				return domain.Order{}, err
			}
			userID = &id
			guestEmail = ""
		}
	}

	if len(selections) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	items := make([]domain.OrderItem, 0, len(selections))
	for _, sel := range selections {
		item, err := r.buildItemTx(ctx, tx, sel)
		if err != nil {
			return domain.Order{}, err
		}
		items = append(items, item)
	}

	regionID, communeID, shippingCost, err := r.resolveShippingTx(ctx, tx, draft.RegionName, draft.CommuneName)
	if err != nil {
		return domain.Order{}, err
	}

	now := time.Now().UTC()
	order := domain.Order{
		UserID:            userID,
		GuestEmail:        guestEmail,
		CustomerEmail:     customerEmail,
		ShippingAddress:   draft.ShippingAddress,
		RegionID:          regionID,
		CommuneID:         communeID,
		Items:             items,
		ShippingCostMinor: shippingCost,
		Status:            domain.OrderStatusPending,
		DeliveryStatus:    domain.DeliveryStatusPreparing,
		CreatedAt:         now,
		ExpiresAt:         draft.ExpiresAt,
	}
	order.TotalMinor = order.SubtotalMinor() + shippingCost

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, guest_email, customer_email, shipping_address,
			region_id, commune_id, shipping_cost_minor, total_minor,
			status, delivery_status, created_at, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`,
		order.UserID, order.GuestEmail, order.CustomerEmail, order.ShippingAddress,
		order.RegionID, order.CommuneID, order.ShippingCostMinor, order.TotalMinor,
		string(order.Status), string(order.DeliveryStatus), order.CreatedAt, order.ExpiresAt,
	).Scan(&order.ID); err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, price_minor)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.PriceMinor).Scan(&item.ID); err != nil {
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}

	if draft.Identity.Kind == domain.IdentityUser {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, draft.Identity.UserID); err != nil {
			return domain.Order{}, fmt.Errorf("clear cart: %w", err)
		}
	}

	return order, nil
}

// buildItemTx валидирует позицию под блокировкой строки товара и
// фиксирует цену на момент оформления. Склад здесь не списывается,
// резерв мягкий: окончательное списание происходит при подтверждении оплаты.
func (r *checkoutRepository) buildItemTx(ctx context.Context, tx *sql.Tx, sel domain.CartSelection) (domain.OrderItem, error) {
	if sel.Quantity <= 0 {
		return domain.OrderItem{}, fmt.Errorf("product %d: %w", sel.ProductID, domain.ErrQuantityInvalid)
	}

	var product domain.Product
	err := tx.QueryRowContext(ctx, `
		SELECT id, name, price_minor, offer_price_minor, stock, purchase_limit
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, sel.ProductID).Scan(
		&product.ID, &product.Name, &product.PriceMinor, &product.OfferPriceMinor,
		&product.Stock, &product.PurchaseLimit,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderItem{}, fmt.Errorf("product %d: %w", sel.ProductID, domain.ErrProductNotFound)
		}
		return domain.OrderItem{}, fmt.Errorf("select product for checkout: %w", err)
	}

	if product.PurchaseLimit > 0 && sel.Quantity > product.PurchaseLimit {
		return domain.OrderItem{}, fmt.Errorf("%s: at most %d per order: %w",
			product.Name, product.PurchaseLimit, domain.ErrPurchaseLimitExceeded)
	}
	if sel.Quantity > product.Stock {
		return domain.OrderItem{}, fmt.Errorf("%s: requested %d, in stock %d: %w",
			product.Name, sel.Quantity, product.Stock, domain.ErrInsufficientStock)
	}

	return domain.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    sel.Quantity,
		PriceMinor:  product.EffectivePriceMinor(),
	}, nil
}

// resolveShippingTx резолвит регион и коммуну независимо друг от друга:
// регион чисто информационный и неизвестное имя заказ не блокирует,
// коммуна же определяет стоимость доставки и при неизвестном имени
// checkout завершается ошибкой.
func (r *checkoutRepository) resolveShippingTx(ctx context.Context, tx *sql.Tx, regionName, communeName string) (*int64, *int64, int64, error) {
	var regionID *int64
	if regionName != "" {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM regions WHERE name = $1`, regionName).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, nil, 0, fmt.Errorf("select region: %w", err)
		default:
			regionID = &id
		}
	}

	if communeName == "" {
		return regionID, nil, 0, nil
	}

	var (
		communeID int64
		fixedCost sql.NullInt64
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, fixed_shipping_cost_minor
		FROM communes
		WHERE name = $1
		ORDER BY id
		LIMIT 1
	`, communeName).Scan(&communeID, &fixedCost)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, 0, fmt.Errorf("commune %q: %w", communeName, domain.ErrCommuneNotFound)
		}
		return nil, nil, 0, fmt.Errorf("select commune: %w", err)
	}

	cost := int64(0)
	if fixedCost.Valid {
		cost = fixedCost.Int64
	}

	return regionID, &communeID, cost, nil
}

func (r *checkoutRepository) userEmailTx(ctx context.Context, tx *sql.Tx, userID int64) (string, error) {
	var email string
	err := tx.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrUserNotFound
		}
		return "", fmt.Errorf("select user: %w", err)
	}
	return email, nil
}

func (r *checkoutRepository) cartSelectionsTx(ctx context.Context, tx *sql.Tx, userID int64) ([]domain.CartSelection, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY product_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	defer rows.Close()

	selections := make([]domain.CartSelection, 0)
	for rows.Next() {
		var sel domain.CartSelection
		if err := rows.Scan(&sel.ProductID, &sel.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}

	return selections, nil
}

func (r *checkoutRepository) insertUserTx(ctx context.Context, tx *sql.Tx, account domain.NewAccount) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, rut, phone, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		RETURNING id
	`, account.Email, account.PasswordHash, account.Name, account.RUT, account.Phone).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrEmailTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.CheckoutRepository = (*checkoutRepository)(nil)
