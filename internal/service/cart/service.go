package cart

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Service реализует операции с корзиной покупателя.
// Корзина ограничена суммарным количеством единиц (MaxCartQuantity),
// а каждая позиция дополнительно проверяется на остатки склада.
type Service struct {
	products   domain.ProductRepository
	carts      domain.CartRepository
	guestCarts domain.GuestCartStore
	logger     *log.Entry
}

// NewService создаёт сервис корзины.
func NewService(
	products domain.ProductRepository,
	carts domain.CartRepository,
	guestCarts domain.GuestCartStore,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart")
	}
	return &Service{
		products:   products,
		carts:      carts,
		guestCarts: guestCarts,
		logger:     logger,
	}
}

// List возвращает корзину пользователя с актуальными данными товаров.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.ResolvedItem, error) {
	return s.carts.List(ctx, userID)
}

// Add добавляет quantity единиц товара к текущей позиции корзины.
func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int32) error {
	if quantity <= 0 {
		return domain.ErrQuantityInvalid
	}

	items, err := s.carts.List(ctx, userID)
	if err != nil {
		return err
	}

	current := int32(0)
	total := int32(0)
	for _, item := range items {
		total += item.Quantity
		if item.Product.ID == productID {
			current = item.Quantity
		}
	}

	if err := s.validateQuantity(ctx, productID, current, quantity, total); err != nil {
		return err
	}

	if err := s.carts.Upsert(ctx, domain.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  current + quantity,
	}); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   current + quantity,
	}).Debug("cart item updated")

	return nil
}

// SetQuantity выставляет точное количество единиц товара в корзине.
// quantity=0 удаляет позицию.
func (s *Service) SetQuantity(ctx context.Context, userID, productID int64, quantity int32) error {
	if quantity < 0 {
		return domain.ErrQuantityInvalid
	}
	if quantity == 0 {
		return s.carts.Remove(ctx, userID, productID)
	}

	items, err := s.carts.List(ctx, userID)
	if err != nil {
		return err
	}

	current := int32(0)
	total := int32(0)
	for _, item := range items {
		total += item.Quantity
		if item.Product.ID == productID {
			current = item.Quantity
		}
	}

	if err := s.validateQuantity(ctx, productID, current, quantity-current, total); err != nil {
		return err
	}

	return s.carts.Upsert(ctx, domain.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

// Remove удаляет позицию из корзины.
func (s *Service) Remove(ctx context.Context, userID, productID int64) error {
	return s.carts.Remove(ctx, userID, productID)
}

// Clear очищает корзину пользователя.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.carts.Clear(ctx, userID)
}

// GuestAdd добавляет товар в гостевую корзину с теми же проверками лимитов.
func (s *Service) GuestAdd(ctx context.Context, cartID string, productID int64, quantity int32) error {
	if quantity <= 0 {
		return domain.ErrQuantityInvalid
	}

	selections, err := s.guestCarts.List(ctx, cartID)
	if err != nil {
		return err
	}

	current := int32(0)
	total := int32(0)
	for _, sel := range selections {
		total += sel.Quantity
		if sel.ProductID == productID {
			current = sel.Quantity
		}
	}

	if err := s.validateQuantity(ctx, productID, current, quantity, total); err != nil {
		return err
	}

	return s.guestCarts.Add(ctx, cartID, productID, quantity)
}

// GuestList возвращает содержимое гостевой корзины с данными товаров.
// Позиции с уже удалёнными товарами пропускаются.
func (s *Service) GuestList(ctx context.Context, cartID string) ([]domain.ResolvedItem, error) {
	selections, err := s.guestCarts.List(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if len(selections) == 0 {
		return []domain.ResolvedItem{}, nil
	}

	ids := make([]int64, 0, len(selections))
	for _, sel := range selections {
		ids = append(ids, sel.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]domain.ResolvedItem, 0, len(selections))
	for _, sel := range selections {
		product, ok := products[sel.ProductID]
		if !ok {
			continue
		}
		items = append(items, domain.ResolvedItem{Product: product, Quantity: sel.Quantity})
	}

	return items, nil
}

// GuestClear очищает гостевую корзину.
func (s *Service) GuestClear(ctx context.Context, cartID string) error {
	return s.guestCarts.Clear(ctx, cartID)
}

// validateQuantity проверяет добавление delta единиц к позиции с текущим
// количеством current при суммарном объёме корзины total.
func (s *Service) validateQuantity(ctx context.Context, productID int64, current, delta, total int32) error {
	if total+delta > domain.MaxCartQuantity {
		room := domain.MaxCartQuantity - total
		if room < 0 {
			room = 0
		}
		return fmt.Errorf("cart holds at most %d units, you can add %d more: %w",
			domain.MaxCartQuantity, room, domain.ErrCartLimitExceeded)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	want := current + delta
	if want > product.Stock {
		room := product.Stock - current
		if room < 0 {
			room = 0
		}
		return fmt.Errorf("%s: only %d more available: %w", product.Name, room, domain.ErrInsufficientStock)
	}
	if product.PurchaseLimit > 0 && want > product.PurchaseLimit {
		return fmt.Errorf("%s: at most %d per order: %w",
			product.Name, product.PurchaseLimit, domain.ErrPurchaseLimitExceeded)
	}

	return nil
}
