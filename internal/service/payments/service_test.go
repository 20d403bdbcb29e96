package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/gateway/flow"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	return logger.WithField("test", "payments")
}

// failingLedger имитирует недоступный склад при списании.
type failingLedger struct {
	deductErr error
	deducts   int
}

func (f *failingLedger) Deduct(_ context.Context, _ []domain.OrderItem) error {
	f.deducts++
	return f.deductErr
}

func (f *failingLedger) Replenish(_ context.Context, _ []domain.OrderItem) error {
	return nil
}

type paymentsFixture struct {
	store   *memory.Store
	gateway *flow.MockGateway
	outbox  *memory.OutboxRepository
	service *Service
	order   domain.Order
}

func newPaymentsFixture(t *testing.T, opts ...Option) *paymentsFixture {
	t.Helper()

	store := memory.NewStore()
	gateway := flow.NewMockGateway()
	outbox := memory.NewOutboxRepository()
	service := NewService(store, store, store, gateway, outbox, loggerForTests(), opts...)

	product := store.SeedProduct(domain.Product{Name: "Collar", PriceMinor: 10000, Stock: 5})
	order, err := store.CreateOrder(context.Background(), domain.CheckoutDraft{
		Identity:        domain.GuestIdentity("guest@example.com"),
		GuestItems:      []domain.CartSelection{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: "Av. Providencia 1234",
		ExpiresAt:       time.Now().UTC().Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	return &paymentsFixture{store: store, gateway: gateway, outbox: outbox, service: service, order: order}
}

// startPayment создаёт платёжную сессию и возвращает её токен.
func (f *paymentsFixture) startPayment(t *testing.T) string {
	t.Helper()

	session, err := f.service.CreatePayment(context.Background(), f.order.ID)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return session.Token
}

// markGateway переводит платёж на стороне mock-шлюза в указанный статус.
func (f *paymentsFixture) markGateway(t *testing.T, token string, status int) {
	t.Helper()

	payment, err := f.gateway.GetStatus(context.Background(), token)
	if err != nil {
		t.Fatalf("gateway status: %v", err)
	}
	payment.Status = status
	f.gateway.SetPayment(payment)
}

func (f *paymentsFixture) eventTypes(t *testing.T) []string {
	t.Helper()

	events, err := f.outbox.PullPending(context.Background(), 100)
	if err != nil {
		t.Fatalf("pull outbox: %v", err)
	}
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

func TestCreatePayment(t *testing.T) {
	f := newPaymentsFixture(t)

	session, err := f.service.CreatePayment(context.Background(), f.order.ID)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if session.Token == "" || session.PaymentURL == "" {
		t.Fatalf("incomplete session: %+v", session)
	}

	txn, err := f.store.GetByToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if txn.OrderID != f.order.ID || txn.AmountMinor != f.order.TotalMinor {
		t.Fatalf("unexpected transaction: %+v", txn)
	}
	if txn.Status != domain.OrderStatusPending {
		t.Fatalf("expected PENDING transaction, got %s", txn.Status)
	}
}

func TestCreatePayment_OrderNotPending(t *testing.T) {
	f := newPaymentsFixture(t)
	if err := f.store.UpdateStatus(context.Background(), f.order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	_, err := f.service.CreatePayment(context.Background(), f.order.ID)
	if !errors.Is(err, domain.ErrOrderNotPending) {
		t.Fatalf("expected ErrOrderNotPending, got %v", err)
	}
}

func TestConfirm_PaidDeductsStockOnce(t *testing.T) {
	f := newPaymentsFixture(t)
	token := f.startPayment(t)
	f.markGateway(t, token, domain.GatewayStatusPaid)

	if err := f.service.Confirm(context.Background(), token); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	order, err := f.store.Get(context.Background(), f.order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", order.Status)
	}
	if got := f.store.ProductStock(f.order.Items[0].ProductID); got != 3 {
		t.Fatalf("expected stock 3 after payment, got %d", got)
	}

	// Повторный webhook идемпотентен: сток не списывается второй раз.
	if err := f.service.Confirm(context.Background(), token); err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if got := f.store.ProductStock(f.order.Items[0].ProductID); got != 3 {
		t.Fatalf("stock must be deducted exactly once, got %d", got)
	}

	txn, err := f.store.GetByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if txn.Status != domain.OrderStatusPaid {
		t.Fatalf("transaction must mirror PAID, got %s", txn.Status)
	}
}

func TestConfirm_RejectedCancelsOrder(t *testing.T) {
	f := newPaymentsFixture(t)
	token := f.startPayment(t)
	f.markGateway(t, token, domain.GatewayStatusRejected)

	if err := f.service.Confirm(context.Background(), token); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	order, err := f.store.Get(context.Background(), f.order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", order.Status)
	}
	// Сток не был списан, поэтому и не возвращается.
	if got := f.store.ProductStock(f.order.Items[0].ProductID); got != 5 {
		t.Fatalf("stock must stay at 5, got %d", got)
	}

	types := f.eventTypes(t)
	found := false
	for _, et := range types {
		if et == "OrderCanceled" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected OrderCanceled event, got %v", types)
	}
}

func TestConfirm_PendingLeavesOrderUntouched(t *testing.T) {
	f := newPaymentsFixture(t)
	token := f.startPayment(t)

	if err := f.service.Confirm(context.Background(), token); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	order, err := f.store.Get(context.Background(), f.order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("pending payment must leave the order PENDING, got %s", order.Status)
	}
}

func TestConfirm_UnknownGatewayStatusLeavesPending(t *testing.T) {
	f := newPaymentsFixture(t)
	token := f.startPayment(t)
	f.markGateway(t, token, 99)

	if err := f.service.Confirm(context.Background(), token); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	order, err := f.store.Get(context.Background(), f.order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("unknown status must not finalize the order, got %s", order.Status)
	}
}

func TestConfirm_MalformedCommerceOrder(t *testing.T) {
	f := newPaymentsFixture(t)
	f.gateway.SetPayment(domain.GatewayPayment{
		Token:         "tok-bad",
		CommerceOrder: "garbage-reference",
		Status:        domain.GatewayStatusPaid,
	})

	err := f.service.Confirm(context.Background(), "tok-bad")
	if !errors.Is(err, domain.ErrMalformedReference) {
		t.Fatalf("expected ErrMalformedReference, got %v", err)
	}
}

func TestConfirm_GatewayUnavailable(t *testing.T) {
	f := newPaymentsFixture(t)
	token := f.startPayment(t)
	f.gateway.StatusErr = domain.ErrGatewayUnavailable

	err := f.service.Confirm(context.Background(), token)
	if !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestConfirm_StockFailureKeepsOrderPaid(t *testing.T) {
	store := memory.NewStore()
	gateway := flow.NewMockGateway()
	outbox := memory.NewOutboxRepository()
	ledger := &failingLedger{deductErr: domain.ErrInsufficientStock}
	service := NewService(store, store, ledger, gateway, outbox, loggerForTests())

	product := store.SeedProduct(domain.Product{Name: "Collar", PriceMinor: 10000, Stock: 5})
	order, err := store.CreateOrder(context.Background(), domain.CheckoutDraft{
		Identity:        domain.GuestIdentity("guest@example.com"),
		GuestItems:      []domain.CartSelection{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: "Av. Providencia 1234",
		ExpiresAt:       time.Now().UTC().Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	session, err := service.CreatePayment(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	payment, err := gateway.GetStatus(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("gateway status: %v", err)
	}
	payment.Status = domain.GatewayStatusPaid
	gateway.SetPayment(payment)

	if err := service.Confirm(context.Background(), session.Token); err != nil {
		t.Fatalf("confirm must not fail the webhook: %v", err)
	}

	// Оплата принята, рассинхронизация фиксируется событием, заказ остаётся PAID.
	got, err := store.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusPaid {
		t.Fatalf("expected PAID despite deduction failure, got %s", got.Status)
	}
	if ledger.deducts != 1 {
		t.Fatalf("expected one deduction attempt, got %d", ledger.deducts)
	}

	events, err := outbox.PullPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pull outbox: %v", err)
	}
	found := false
	for _, e := range events {
		if e.EventType == "OrderInconsistent" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected OrderInconsistent event, got %v", events)
	}
}

func TestStatusAndOrderIDByToken(t *testing.T) {
	f := newPaymentsFixture(t)
	token := f.startPayment(t)

	result, err := f.service.Status(context.Background(), token)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if result.Transaction.Token != token || result.Gateway.Token != token {
		t.Fatalf("unexpected status result: %+v", result)
	}

	orderID, err := f.service.OrderIDByToken(context.Background(), token)
	if err != nil {
		t.Fatalf("order id by token: %v", err)
	}
	if orderID != f.order.ID {
		t.Fatalf("expected order %d, got %d", f.order.ID, orderID)
	}

	if _, err := f.service.Status(context.Background(), "missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestParseCommerceOrder(t *testing.T) {
	id, err := parseCommerceOrder("order-42-1756540800000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected 42, got %d", id)
	}

	for _, ref := range []string{"", "order-", "order-x-1", "42-order"} {
		if _, err := parseCommerceOrder(ref); !errors.Is(err, domain.ErrMalformedReference) {
			t.Fatalf("expected ErrMalformedReference for %q, got %v", ref, err)
		}
	}
}
