package memory

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// CreateOrder выполняет checkout-транзакцию целиком под мьютексом —
// поведенчески эквивалентно одной SQL-транзакции: любая ошибка оставляет
// хранилище нетронутым, потому что все мутации выполняются в самом конце.
func (s *Store) CreateOrder(_ context.Context, draft domain.CheckoutDraft) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		owner      *domain.User
		selections []domain.CartSelection
		newUser    *domain.User
	)

	switch draft.Identity.Kind {
	case domain.IdentityUser:
		u, ok := s.users[draft.Identity.UserID]
		if !ok {
			return domain.Order{}, domain.ErrUserNotFound
		}
		owner = &u
		for _, item := range s.cartItems[u.ID] {
			selections = append(selections, domain.CartSelection{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	case domain.IdentityGuest:
		if draft.NewAccount != nil {
			if _, taken := s.usersByEmail[draft.NewAccount.Email]; taken {
				return domain.Order{}, domain.ErrEmailTaken
			}
			created := domain.User{
				Email:        draft.NewAccount.Email,
				PasswordHash: draft.NewAccount.PasswordHash,
				Name:         draft.NewAccount.Name,
				RUT:          draft.NewAccount.RUT,
				Phone:        draft.NewAccount.Phone,
			}
			newUser = &created
		}
		selections = draft.GuestItems
	default:
		return domain.Order{}, domain.ErrInvalidGuestData
	}

	if len(selections) == 0 {
		return domain.Order{}, domain.ErrEmptyCart
	}

	// Валидация стока и лимитов. Сток не списывается: до подтверждения
	// оплаты заказ удерживает его только своим PENDING-окном.
	items := make([]domain.OrderItem, 0, len(selections))
	for _, sel := range selections {
		product, ok := s.products[sel.ProductID]
		if !ok {
			return domain.Order{}, fmt.Errorf("%w: id=%d", domain.ErrProductNotFound, sel.ProductID)
		}
		if sel.Quantity <= 0 {
			return domain.Order{}, fmt.Errorf("%w: product %q", domain.ErrQuantityInvalid, product.Name)
		}
		if product.PurchaseLimit > 0 && sel.Quantity > product.PurchaseLimit {
			return domain.Order{}, fmt.Errorf("%w: product %q allows at most %d per order",
				domain.ErrPurchaseLimitExceeded, product.Name, product.PurchaseLimit)
		}
		if product.Stock < sel.Quantity {
			return domain.Order{}, fmt.Errorf("%w: product %q has %d left, requested %d",
				domain.ErrInsufficientStock, product.Name, product.Stock, sel.Quantity)
		}
		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    sel.Quantity,
			PriceMinor:  product.EffectivePriceMinor(),
		})
	}

	order := domain.Order{
		ShippingAddress: draft.ShippingAddress,
		Status:          domain.OrderStatusPending,
		DeliveryStatus:  domain.DeliveryStatusPreparing,
		CreatedAt:       s.now(),
		ExpiresAt:       draft.ExpiresAt,
	}

	if draft.RegionName != "" {
		if region, ok := s.regions[draft.RegionName]; ok {
			order.RegionID = &region.ID
		}
	}
	if draft.CommuneName != "" {
		commune, ok := s.communes[draft.CommuneName]
		if !ok {
			return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrCommuneNotFound, draft.CommuneName)
		}
		order.CommuneID = &commune.ID
		order.ShippingCostMinor = commune.ShippingCostMinor()
	}

	// Точка невозврата: дальше только мутации, ошибок больше не бывает.
	if newUser != nil {
		created := s.insertUserLocked(*newUser)
		owner = &created
	}
	if owner != nil {
		id := owner.ID
		order.UserID = &id
		order.CustomerEmail = owner.Email
	} else {
		order.GuestEmail = draft.Identity.Email
		order.CustomerEmail = draft.Identity.Email
	}

	s.nextOrderID++
	order.ID = s.nextOrderID
	for i := range items {
		s.nextItemID++
		items[i].ID = s.nextItemID
		items[i].OrderID = order.ID
	}
	order.Items = items
	order.TotalMinor = order.SubtotalMinor() + order.ShippingCostMinor

	s.orders[order.ID] = order
	if draft.Identity.Kind == domain.IdentityUser {
		delete(s.cartItems, draft.Identity.UserID)
	}

	return order, nil
}

var _ domain.CheckoutRepository = (*Store)(nil)
