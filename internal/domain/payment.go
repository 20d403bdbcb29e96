package domain

import "time"

// Статусы платежа в протоколе шлюза. Таблица кодов — закреплённый внешний
// контракт (Flow API), а не внутреннее соглашение.
const (
	GatewayStatusPending  = 1
	GatewayStatusPaid     = 2
	GatewayStatusRejected = 3
	GatewayStatusVoided   = 4
)

// PaymentTransaction — одна попытка оплаты заказа. Token выдаётся шлюзом,
// уникален и служит idempotency-ключом всех дальнейших взаимодействий.
type PaymentTransaction struct {
	ID          int64
	OrderID     int64
	Token       string
	AmountMinor int64
	// Status зеркалит статус заказа на момент последней синхронизации.
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет корректность ключевых полей транзакции.
func (t *PaymentTransaction) Validate() error {
	if t.OrderID <= 0 {
		return ErrOrderNotFound
	}
	if t.Token == "" {
		return ErrTransactionNotFound
	}
	if t.AmountMinor < 0 {
		return ErrTotalMismatch
	}
	return nil
}

// PaymentRequest — канонический набор параметров создания платёжной сессии.
type PaymentRequest struct {
	// CommerceOrder — локально сгенерированная ссылка вида order-<id>-<millis>,
	// по которой асинхронные callbacks шлюза сопоставляются с заказом.
	CommerceOrder string
	Subject       string
	Email         string
	AmountMinor   int64
}

// PaymentSession — результат успешного создания сессии на стороне шлюза.
type PaymentSession struct {
	Token      string
	PaymentURL string
}

// GatewayPayment — авторитетное состояние платежа, полученное запросом
// статуса по токену. Webhook-и никогда не принимаются на веру без него.
type GatewayPayment struct {
	Token         string
	CommerceOrder string
	Status        int
	AmountMinor   int64
	Subject       string
	PayerEmail    string
}
