package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/gateway/flow"
	healthcheck "github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	cartsvc "github.com/vladislavdragonenkov/checkout/internal/service/cart"
	checkoutsvc "github.com/vladislavdragonenkov/checkout/internal/service/checkout"
	outboxsvc "github.com/vladislavdragonenkov/checkout/internal/service/outbox"
	paymentsvc "github.com/vladislavdragonenkov/checkout/internal/service/payments"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
	"github.com/vladislavdragonenkov/checkout/internal/storage/redisdb"
	httptransport "github.com/vladislavdragonenkov/checkout/internal/transport/http"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	healthHandler := healthcheck.NewHandler(version.GetVersion())

	var deps *Dependencies
	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer func() { _ = store.Close() }()

		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}

		redisClient := redisdb.NewClient(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		guestCarts := redisdb.NewGuestCartStore(redisClient, cfg.GuestCartTTL)

		deps = NewPostgresDependencies(store, guestCarts, logger)
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", store.Ping))
		healthHandler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", guestCarts.Ping))
		logger.Info("postgres storage initialized")
	} else {
		logger.Warn("CHECKOUT_POSTGRES_DSN не задан, используем in-memory хранилище")
		deps = NewDependencies(logger)
	}

	// Платёжный шлюз (опционально)
	var gateway domain.PaymentGateway
	if cfg.Flow.APIKey != "" && cfg.Flow.SecretKey != "" {
		gateway = flow.NewClient(cfg.Flow)
		logger.WithField("base_url", cfg.Flow.BaseURL).Info("flow gateway initialized")
	} else {
		logger.Warn("flow credentials are not set, using mock gateway")
		gateway = flow.NewMockGateway()
	}

	checkoutMetrics := metrics.NewCheckoutMetrics()

	cartService := cartsvc.NewService(
		deps.Products,
		deps.Carts,
		deps.GuestCarts,
		log.WithField("component", "cart"),
	)
	checkoutService := checkoutsvc.NewService(
		deps.Checkout,
		deps.Orders,
		deps.Stock,
		deps.GuestCarts,
		deps.Outbox,
		log.WithField("component", "checkout"),
		checkoutsvc.WithOrderTTL(cfg.OrderTTL),
		checkoutsvc.WithMetrics(checkoutMetrics),
	)
	paymentService := paymentsvc.NewService(
		deps.Payments,
		deps.Orders,
		deps.Stock,
		gateway,
		deps.Outbox,
		log.WithField("component", "payments"),
		paymentsvc.WithMetrics(checkoutMetrics),
	)

	// Фоновая отмена просроченных PENDING-заказов
	sweeper := paymentsvc.NewSweeper(
		deps.Orders,
		deps.Outbox,
		paymentsvc.WithSweepLogger(log.WithField("component", "sweeper")),
		paymentsvc.WithSweepInterval(cfg.SweepInterval),
	)
	go sweeper.Run(ctx)

	// Публикация outbox-событий в Kafka (опционально)
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")

			worker := outboxsvc.NewWorker(
				deps.Outbox,
				kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
				outboxsvc.WithLogger(log.WithField("component", "outbox-worker")),
				outboxsvc.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
			)
			go worker.Run(ctx)
		}
	} else {
		logger.Warn("KAFKA_BROKERS не задан, outbox-события останутся в статусе pending")
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Orders:    httptransport.NewOrdersHandler(checkoutService, log.WithField("component", "http-orders")),
		Cart:      httptransport.NewCartHandler(cartService, log.WithField("component", "http-cart")),
		Payments:  httptransport.NewPaymentsHandler(paymentService, log.WithField("component", "http-payments")),
		JWTSecret: cfg.JWTSecret,
		Logger:    log.WithField("component", "http"),
	})

	opsSrv := startOpsServer(ctx, cfg.OpsAddr, logger, healthHandler)

	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(opsSrv, logger)
		closeProducer(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(opsSrv, logger)
		closeProducer(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startOpsServer запускает служебный HTTP-сервер с метриками и health-чеками.
func startOpsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("ops server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func closeProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
