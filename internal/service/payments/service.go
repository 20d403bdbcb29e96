package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
)

// commerceOrderPattern извлекает идентификатор заказа из ссылки вида
// order-<id>-<unixMillis>. Суффикс после id не разбирается: он нужен лишь
// для уникальности ссылки на стороне шлюза.
var commerceOrderPattern = regexp.MustCompile(`^order-(\d+)-`)

// StatusResult — ответ операции просмотра платежа: локальная транзакция
// плюс свежее состояние на стороне шлюза.
type StatusResult struct {
	Transaction domain.PaymentTransaction
	Gateway     domain.GatewayPayment
}

// Service управляет платёжными сессиями и сверкой статусов со шлюзом.
// Авторитетный источник статуса платежа — шлюз: webhook лишь повод
// запросить состояние, а не носитель истины.
type Service struct {
	payments domain.PaymentRepository
	orders   domain.OrderRepository
	stock    domain.StockLedger
	gateway  domain.PaymentGateway
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
	now      func() time.Time
}

// Option настраивает платёжный сервис.
type Option func(*Service)

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

// NewService создаёт платёжный сервис.
func NewService(
	payments domain.PaymentRepository,
	orders domain.OrderRepository,
	stock domain.StockLedger,
	gateway domain.PaymentGateway,
	outbox domain.OutboxRepository,
	logger *log.Entry,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "payments")
	}
	s := &Service{
		payments: payments,
		orders:   orders,
		stock:    stock,
		gateway:  gateway,
		outbox:   outbox,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePayment регистрирует платёжную сессию для PENDING-заказа
// и возвращает URL, на который нужно перенаправить покупателя.
func (s *Service) CreatePayment(ctx context.Context, orderID int64) (domain.PaymentSession, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return domain.PaymentSession{}, err
	}
	if order.Status != domain.OrderStatusPending {
		return domain.PaymentSession{}, fmt.Errorf("order %d is %s: %w",
			orderID, order.Status, domain.ErrOrderNotPending)
	}

	req := domain.PaymentRequest{
		CommerceOrder: s.commerceOrder(orderID),
		Subject:       fmt.Sprintf("Order #%d", orderID),
		Email:         order.CustomerEmail,
		AmountMinor:   order.TotalMinor,
	}

	session, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		return domain.PaymentSession{}, err
	}

	if _, err := s.payments.Create(ctx, domain.PaymentTransaction{
		OrderID:     orderID,
		Token:       session.Token,
		AmountMinor: order.TotalMinor,
		Status:      domain.OrderStatusPending,
	}); err != nil {
		return domain.PaymentSession{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentCreated()
	}
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"token":    session.Token,
		"amount":   order.TotalMinor,
	}).Info("payment session created")

	return session, nil
}

// Confirm обрабатывает webhook шлюза по токену платежа. Операция
// идемпотентна: повторное подтверждение уже оплаченного заказа ничего
// не меняет, а списание стока выполняется ровно один раз.
func (s *Service) Confirm(ctx context.Context, token string) error {
	start := s.now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordConfirmDuration(time.Since(start))
		}
	}()

	payment, err := s.gateway.GetStatus(ctx, token)
	if err != nil {
		return fmt.Errorf("query gateway status: %w", err)
	}

	orderID, err := parseCommerceOrder(payment.CommerceOrder)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordConfirmMalformed()
		}
		s.logger.WithFields(log.Fields{
			"token":          token,
			"commerce_order": payment.CommerceOrder,
		}).Warn("unparseable commerce order reference")
		return err
	}

	logger := s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"token":    token,
		"status":   payment.Status,
	})

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		logger.WithError(err).Warn("order referenced by gateway not found")
		return err
	}

	switch order.Status {
	case domain.OrderStatusPending:
		// Продолжаем сверку ниже.
	case domain.OrderStatusPaid:
		logger.Debug("order already paid, confirmation is a no-op")
		return nil
	default:
		logger.WithField("order_status", order.Status).Debug("order already finalized")
		return nil
	}

	switch payment.Status {
	case domain.GatewayStatusPaid:
		return s.settlePaid(ctx, order, token, logger)
	case domain.GatewayStatusRejected, domain.GatewayStatusVoided:
		return s.settleRejected(ctx, order, token, logger)
	case domain.GatewayStatusPending:
		logger.Debug("payment still pending at gateway")
		return nil
	default:
		// Неизвестный код шлюза трактуем как «ещё не решено», чтобы не
		// отменить заказ, который на самом деле оплачен.
		logger.Warn("unknown gateway status, leaving order pending")
		return nil
	}
}

// Status возвращает локальную транзакцию и свежий статус платежа на шлюзе.
func (s *Service) Status(ctx context.Context, token string) (StatusResult, error) {
	txn, err := s.payments.GetByToken(ctx, token)
	if err != nil {
		return StatusResult{}, err
	}

	payment, err := s.gateway.GetStatus(ctx, token)
	if err != nil {
		return StatusResult{}, err
	}

	return StatusResult{Transaction: txn, Gateway: payment}, nil
}

// OrderIDByToken возвращает заказ, которому принадлежит токен, для
// редиректа покупателя после возврата со страницы оплаты.
func (s *Service) OrderIDByToken(ctx context.Context, token string) (int64, error) {
	txn, err := s.payments.GetByToken(ctx, token)
	if err != nil {
		return 0, err
	}
	return txn.OrderID, nil
}

// settlePaid фиксирует оплату: атомарно забирает PENDING → PAID и,
// победив гонку, списывает сток ровно один раз.
func (s *Service) settlePaid(ctx context.Context, order domain.Order, token string, logger *log.Entry) error {
	err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusPaid)
	if err != nil {
		if errors.Is(err, domain.ErrOrderStateConflict) {
			// Конкурент уже обработал подтверждение.
			logger.Debug("lost confirmation race, order already settled")
			return nil
		}
		return err
	}

	if err := s.payments.UpdateStatusByToken(ctx, token, domain.OrderStatusPaid); err != nil {
		logger.WithError(err).Warn("failed to sync payment transaction status")
	}

	if err := s.stock.Deduct(ctx, order.Items); err != nil {
		// Заказ уже оплачен, откатывать оплату нельзя: фиксируем
		// рассинхронизацию для ручного вмешательства.
		logger.WithError(err).Error("stock deduction failed for paid order")
		if s.metrics != nil {
			s.metrics.RecordInconsistentOrder()
		}
		s.emitOrderEvent(ctx, order.ID, "OrderInconsistent", map[string]interface{}{
			"reason": err.Error(),
		})
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordOrderPaid()
	}
	s.emitOrderEvent(ctx, order.ID, "OrderPaid", map[string]interface{}{
		"amount_minor": order.TotalMinor,
	})
	logger.Info("order confirmed as paid")

	return nil
}

func (s *Service) settleRejected(ctx context.Context, order domain.Order, token string, logger *log.Entry) error {
	err := s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, domain.ErrOrderStateConflict) {
			logger.Debug("lost confirmation race, order already settled")
			return nil
		}
		return err
	}

	if err := s.payments.UpdateStatusByToken(ctx, token, domain.OrderStatusCancelled); err != nil {
		logger.WithError(err).Warn("failed to sync payment transaction status")
	}

	if s.metrics != nil {
		s.metrics.RecordConfirmRejected()
		s.metrics.RecordOrderCanceled()
	}
	s.emitOrderEvent(ctx, order.ID, "OrderCanceled", map[string]interface{}{
		"reason": "payment rejected",
	})
	logger.Info("order canceled after gateway rejection")

	return nil
}

func (s *Service) commerceOrder(orderID int64) string {
	return fmt.Sprintf("order-%d-%d", orderID, s.now().UnixMilli())
}

func parseCommerceOrder(ref string) (int64, error) {
	matches := commerceOrderPattern.FindStringSubmatch(ref)
	if len(matches) != 2 {
		return 0, fmt.Errorf("%q: %w", ref, domain.ErrMalformedReference)
	}
	id, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", ref, domain.ErrMalformedReference)
	}
	return id, nil
}

func (s *Service) emitOrderEvent(ctx context.Context, orderID int64, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = orderID

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(orderID, 10),
		EventType:     eventType,
		Payload:       data,
	}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("enqueue event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}
