package domain

import (
	"context"
	"time"
)

// StockLedger мутирует остатки товаров. Каждый вызов выполняется в одной
// транзакции: строка товара читается под пессимистичной write-блокировкой,
// остаток сверяется с количеством и только затем изменяется. Любая нехватка
// откатывает все изменения вызова целиком.
type StockLedger interface {
	// Deduct списывает сток по позициям заказа; ErrInsufficientStock
	// при нехватке по любому из товаров.
	Deduct(ctx context.Context, items []OrderItem) error
	// Replenish возвращает сток (административная отмена оплаченного заказа).
	Replenish(ctx context.Context, items []OrderItem) error
}

// PaymentGateway описывает взаимодействие с внешним платёжным шлюзом.
type PaymentGateway interface {
	// CreateSession создаёт платёжную сессию и возвращает URL оплаты с токеном.
	CreateSession(ctx context.Context, req PaymentRequest) (PaymentSession, error)
	// GetStatus запрашивает авторитетное состояние платежа по токену.
	GetStatus(ctx context.Context, token string) (GatewayPayment, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
