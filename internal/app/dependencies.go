package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
)

// Dependencies содержит хранилища, от которых зависят сервисы приложения.
type Dependencies struct {
	Checkout   domain.CheckoutRepository
	Orders     domain.OrderRepository
	Products   domain.ProductRepository
	Stock      domain.StockLedger
	Carts      domain.CartRepository
	Payments   domain.PaymentRepository
	Outbox     domain.OutboxRepository
	GuestCarts domain.GuestCartStore
	Logger     *log.Entry
}

// NewDependencies создаёт in-memory зависимости.
// NOTE: используется для разработки и тестов, когда Postgres не настроен.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store := memory.NewStore()
	return &Dependencies{
		Checkout:   store,
		Orders:     store,
		Products:   store,
		Stock:      store,
		Carts:      store,
		Payments:   store,
		Outbox:     memory.NewOutboxRepository(),
		GuestCarts: memory.NewGuestCartStore(),
		Logger:     logger,
	}
}

// NewPostgresDependencies собирает зависимости поверх Postgres.
// Хранилище гостевых корзин задаётся отдельно (Redis).
func NewPostgresDependencies(store *postgres.Store, guestCarts domain.GuestCartStore, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	products := postgres.NewProductRepository(store)
	return &Dependencies{
		Checkout:   postgres.NewCheckoutRepository(store),
		Orders:     postgres.NewOrderRepository(store),
		Products:   products,
		Stock:      products,
		Carts:      postgres.NewCartRepository(store),
		Payments:   postgres.NewPaymentRepository(store),
		Outbox:     postgres.NewOutboxRepository(store),
		GuestCarts: guestCarts,
		Logger:     logger,
	}
}
