package payments

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	defaultSweepInterval  = time.Minute
	defaultSweepBatchSize = 200
)

var (
	sweeperRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sweeper_runs_total",
		Help: "Total number of expiry sweeper runs grouped by result.",
	}, []string{"result"})
	sweeperCanceledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sweeper_canceled_total",
		Help: "Total number of pending orders canceled by the expiry sweeper.",
	})
	sweeperLastCanceled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "checkout_sweeper_last_canceled",
		Help: "Number of orders canceled during the last sweeper run.",
	})
)

// SweeperOptions задаёт параметры воркера экспирации заказов.
type SweeperOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
	Clock     func() time.Time
}

// SweeperOption настраивает Sweeper.
type SweeperOption func(*SweeperOptions)

// WithSweepLogger задаёт logger для воркера.
func WithSweepLogger(logger *log.Entry) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.Logger = logger
	}
}

// WithSweepInterval задаёт интервал между проходами.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.Interval = interval
	}
}

// WithSweepBatchSize задаёт максимум заказов, обрабатываемых за проход.
func WithSweepBatchSize(batchSize int) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.BatchSize = batchSize
	}
}

// WithSweepClock подменяет источник времени (для тестов).
func WithSweepClock(clock func() time.Time) SweeperOption {
	return func(opts *SweeperOptions) {
		opts.Clock = clock
	}
}

// Sweeper периодически отменяет PENDING-заказы с истёкшим дедлайном оплаты.
// Сток при этом не возвращается: он и не был списан, заказ лишь ждал оплаты.
type Sweeper struct {
	orders    domain.OrderRepository
	outbox    domain.OutboxRepository
	logger    *log.Entry
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewSweeper создаёт воркер экспирации заказов.
func NewSweeper(orders domain.OrderRepository, outbox domain.OutboxRepository, options ...SweeperOption) *Sweeper {
	opts := SweeperOptions{
		Interval:  defaultSweepInterval,
		BatchSize: defaultSweepBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "order-sweeper")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultSweepInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSweepBatchSize
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	return &Sweeper{
		orders:    orders,
		outbox:    outbox,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		now:       clock,
	}
}

// Run запускает периодическую экспирацию до отмены ctx.
func (w *Sweeper) Run(ctx context.Context) {
	if w.orders == nil {
		w.logger.Warn("order sweeper is disabled: repository is nil")
		return
	}

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	canceled, err := w.SweepOnce(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		sweeperRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("order sweep failed")
		return
	}

	sweeperRunsTotal.WithLabelValues("ok").Inc()
	sweeperLastCanceled.Set(float64(canceled))
	if canceled > 0 {
		w.logger.WithField("canceled", canceled).Info("expired orders canceled")
	}
}

// SweepOnce отменяет все просроченные PENDING-заказы порциями batchSize.
// Каждый заказ обрабатывается независимо: конфликт статуса (заказ успели
// оплатить между выборкой и отменой) не считается ошибкой.
func (w *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	canceled := 0
	for {
		if err := ctx.Err(); err != nil {
			return canceled, err
		}

		expired, err := w.orders.ListExpiredPending(ctx, w.now(), w.batchSize)
		if err != nil {
			return canceled, err
		}
		if len(expired) == 0 {
			return canceled, nil
		}

		progressed := 0
		for _, order := range expired {
			err := w.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled)
			if err != nil {
				if errors.Is(err, domain.ErrOrderStateConflict) {
					// Заказ оплатили или отменили параллельно, пропускаем.
					continue
				}
				w.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to cancel expired order")
				continue
			}

			canceled++
			progressed++
			sweeperCanceledTotal.Inc()
			w.emitExpired(ctx, order)
		}

		if len(expired) < w.batchSize {
			return canceled, nil
		}
		if progressed == 0 {
			// Полная порция без единой отмены: не зацикливаемся на ней.
			return canceled, nil
		}
	}
}

func (w *Sweeper) emitExpired(ctx context.Context, order domain.Order) {
	payload, err := json.Marshal(map[string]interface{}{
		"order_id":   order.ID,
		"expires_at": order.ExpiresAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		w.logger.WithError(err).WithField("order_id", order.ID).Error("marshal expired event failed")
		return
	}

	if _, err := w.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     "OrderExpired",
		Payload:       payload,
	}); err != nil {
		w.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue expired event failed")
	}
}
