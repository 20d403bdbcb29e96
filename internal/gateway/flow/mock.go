package flow

import (
	"context"
	"strconv"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
// По умолчанию CreateSession выдаёт последовательные токены, а GetStatus
// возвращает то, что было положено через SetPayment.
type MockGateway struct {
	mu sync.Mutex

	CreateErr error
	StatusErr error

	CreateCalls int
	StatusCalls int

	nextToken int
	payments  map[string]domain.GatewayPayment
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{payments: make(map[string]domain.GatewayPayment)}
}

// SetPayment настраивает ответ GetStatus для токена.
func (m *MockGateway) SetPayment(p domain.GatewayPayment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.Token] = p
}

// CreateSession возвращает сессию с новым токеном и считает вызовы.
func (m *MockGateway) CreateSession(_ context.Context, req domain.PaymentRequest) (domain.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls++
	if m.CreateErr != nil {
		return domain.PaymentSession{}, m.CreateErr
	}

	m.nextToken++
	token := "tok-" + strconv.Itoa(m.nextToken)
	m.payments[token] = domain.GatewayPayment{
		Token:         token,
		CommerceOrder: req.CommerceOrder,
		Status:        domain.GatewayStatusPending,
		AmountMinor:   req.AmountMinor,
		Subject:       req.Subject,
		PayerEmail:    req.Email,
	}

	return domain.PaymentSession{
		Token:      token,
		PaymentURL: "https://gateway.test/pay?token=" + token,
	}, nil
}

// GetStatus возвращает настроенный платёж и считает вызовы.
func (m *MockGateway) GetStatus(_ context.Context, token string) (domain.GatewayPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StatusCalls++
	if m.StatusErr != nil {
		return domain.GatewayPayment{}, m.StatusErr
	}

	p, ok := m.payments[token]
	if !ok {
		return domain.GatewayPayment{}, domain.ErrTransactionNotFound
	}
	return p, nil
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
