package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// RouterConfig собирает зависимости публичного HTTP API.
type RouterConfig struct {
	Orders    *OrdersHandler
	Cart      *CartHandler
	Payments  *PaymentsHandler
	JWTSecret string
	Logger    *log.Entry
}

// NewRouter строит публичный роутер сервиса.
// Webhook и return-эндпоинты шлюза не требуют авторизации.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Group(func(r chi.Router) {
		r.Use(OptionalAuth(cfg.JWTSecret, logger))
		r.Post("/orders", cfg.Orders.Create)
	})

	r.Get("/orders/{id}", cfg.Orders.Get)

	r.Group(func(r chi.Router) {
		r.Use(Auth(cfg.JWTSecret, logger))
		r.Get("/orders", cfg.Orders.ListMine)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.List)
			r.Delete("/", cfg.Cart.Clear)
			r.Post("/items", cfg.Cart.Add)
			r.Put("/items/{productID}", cfg.Cart.SetQuantity)
			r.Delete("/items/{productID}", cfg.Cart.Remove)
		})
	})

	r.Route("/guest-cart/{cartID}", func(r chi.Router) {
		r.Get("/", cfg.Cart.GuestList)
		r.Delete("/", cfg.Cart.GuestClear)
		r.Post("/items", cfg.Cart.GuestAdd)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create/{orderID}", cfg.Payments.Create)
		r.Post("/confirm", cfg.Payments.Confirm)
		r.Post("/return", cfg.Payments.Return)
		r.Get("/status/{token}", cfg.Payments.Status)
	})

	r.Group(func(r chi.Router) {
		r.Use(Auth(cfg.JWTSecret, logger), RequireAdmin)
		r.Route("/admin/orders", func(r chi.Router) {
			r.Get("/", cfg.Orders.ListAll)
			r.Put("/{id}/status", cfg.Orders.SetStatus)
			r.Put("/{id}/delivery-status", cfg.Orders.SetDeliveryStatus)
		})
	})

	return r
}
