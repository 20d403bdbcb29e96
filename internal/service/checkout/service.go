package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

const defaultOrderTTL = 30 * time.Minute

// GuestAccount — данные для inline-регистрации аккаунта при гостевом checkout.
type GuestAccount struct {
	Password string
	Name     string
	RUT      string
	Phone    string
}

// CreateOrderInput — вход операции оформления заказа со стороны транспорта.
type CreateOrderInput struct {
	// UserID задан для заказов авторизованных пользователей.
	UserID *int64
	// GuestEmail и GuestCartID задаются для гостевого checkout.
	GuestEmail  string
	GuestCartID string
	// GuestItems — корзина, переданная гостем прямо в запросе.
	// Когда список непустой, Redis-корзина не читается.
	GuestItems []domain.CartSelection
	// Account != nil означает, что гость попросил создать аккаунт.
	Account *GuestAccount

	ShippingAddress string
	RegionName      string
	CommuneName     string
}

// Service оформляет заказы: резолвит идентичность покупателя, собирает
// корзину, выполняет транзакцию создания заказа и эмитит order.created.
type Service struct {
	checkout   domain.CheckoutRepository
	orders     domain.OrderRepository
	stock      domain.StockLedger
	guestCarts domain.GuestCartStore
	outbox     domain.OutboxRepository
	logger     *log.Entry
	metrics    *metrics.CheckoutMetrics
	orderTTL   time.Duration
	now        func() time.Time
}

// Option настраивает сервис оформления заказов.
type Option func(*Service)

// WithOrderTTL задаёт время жизни неоплаченного заказа.
func WithOrderTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.orderTTL = ttl
		}
	}
}

// WithMetrics подключает метрики чекаута.
func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService создаёт сервис оформления заказов.
func NewService(
	checkoutRepo domain.CheckoutRepository,
	orders domain.OrderRepository,
	stock domain.StockLedger,
	guestCarts domain.GuestCartStore,
	outbox domain.OutboxRepository,
	logger *log.Entry,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	s := &Service{
		checkout:   checkoutRepo,
		orders:     orders,
		stock:      stock,
		guestCarts: guestCarts,
		outbox:     outbox,
		logger:     logger,
		orderTTL:   defaultOrderTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder оформляет заказ. Сток при этом не списывается: заказ получает
// статус PENDING и дедлайн оплаты, списание происходит при подтверждении.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (domain.Order, error) {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	if input.ShippingAddress == "" {
		return domain.Order{}, domain.ErrShippingAddressRequired
	}

	draft, err := s.buildDraft(ctx, input)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.checkout.CreateOrder(ctx, draft)
	if err != nil {
		return domain.Order{}, err
	}

	if draft.Identity.Kind == domain.IdentityGuest && input.GuestCartID != "" {
		if err := s.guestCarts.Clear(ctx, input.GuestCartID); err != nil {
			// Заказ уже создан: неудачная очистка гостевой корзины не фатальна.
			s.logger.WithError(err).WithField("guest_cart_id", input.GuestCartID).
				Warn("failed to clear guest cart after checkout")
		}
	}

	s.emitOrderEvent(ctx, order, "OrderCreated", map[string]interface{}{
		"total_minor": order.TotalMinor,
		"items_count": len(order.Items),
		"expires_at":  order.ExpiresAt.Format(time.RFC3339Nano),
	})
	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"total_minor": order.TotalMinor,
		"items":       len(order.Items),
	}).Info("order created")

	return order, nil
}

// Get возвращает заказ по идентификатору.
func (s *Service) Get(ctx context.Context, orderID int64) (domain.Order, error) {
	return s.orders.Get(ctx, orderID)
}

// ListByUser возвращает заказы пользователя, новые первыми.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll возвращает все заказы (административная выборка).
func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListAll(ctx)
}

// SetStatus выполняет административный переход платёжного статуса.
// Отмена оплаченного заказа возвращает остатки на склад.
func (s *Service) SetStatus(ctx context.Context, orderID int64, to domain.OrderStatus) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}

	if !domain.CanTransition(order.Status, to) {
		return fmt.Errorf("transition %s -> %s: %w", order.Status, to, domain.ErrOrderStateConflict)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, order.Status, to); err != nil {
		return err
	}

	if order.Status == domain.OrderStatusPaid && to == domain.OrderStatusCancelled {
		if err := s.stock.Replenish(ctx, order.Items); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).
				Error("failed to replenish stock after cancel")
		}
	}
	if to == domain.OrderStatusCancelled {
		s.emitOrderEvent(ctx, order, "OrderCanceled", map[string]interface{}{
			"previous_status": string(order.Status),
		})
		if s.metrics != nil {
			s.metrics.RecordOrderCanceled()
		}
	}

	return nil
}

// SetDeliveryStatus меняет логистический статус заказа.
func (s *Service) SetDeliveryStatus(ctx context.Context, orderID int64, status domain.DeliveryStatus) error {
	if !domain.ValidDeliveryStatus(status) {
		return fmt.Errorf("%q: %w", status, domain.ErrInvalidDeliveryStatus)
	}
	return s.orders.UpdateDeliveryStatus(ctx, orderID, status)
}

func (s *Service) buildDraft(ctx context.Context, input CreateOrderInput) (domain.CheckoutDraft, error) {
	draft := domain.CheckoutDraft{
		ShippingAddress: input.ShippingAddress,
		RegionName:      input.RegionName,
		CommuneName:     input.CommuneName,
		ExpiresAt:       s.now().Add(s.orderTTL),
	}

	switch {
	case input.UserID != nil:
		draft.Identity = domain.UserIdentity(*input.UserID)

	case input.GuestEmail != "":
		draft.Identity = domain.GuestIdentity(input.GuestEmail)

		if len(input.GuestItems) > 0 {
			draft.GuestItems = input.GuestItems
		} else {
			items, err := s.guestCarts.List(ctx, input.GuestCartID)
			if err != nil {
				return domain.CheckoutDraft{}, err
			}
			draft.GuestItems = items
		}

		if input.Account != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(input.Account.Password), bcrypt.DefaultCost)
			if err != nil {
				return domain.CheckoutDraft{}, fmt.Errorf("hash password: %w", err)
			}
			draft.NewAccount = &domain.NewAccount{
				Email:        input.GuestEmail,
				PasswordHash: string(hash),
				Name:         input.Account.Name,
				RUT:          input.Account.RUT,
				Phone:        input.Account.Phone,
			}
		}

	default:
		return domain.CheckoutDraft{}, domain.ErrInvalidGuestData
	}

	return draft, nil
}

func (s *Service) emitOrderEvent(ctx context.Context, order domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID
	payload["status"] = string(order.Status)

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(ctx, msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
