package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики оформления заказов и платежей.
type CheckoutMetrics struct {
	// Счётчики операций
	ordersCreated      prometheus.Counter
	ordersPaid         prometheus.Counter
	ordersCanceled     prometheus.Counter
	paymentsCreated    prometheus.Counter
	confirmRejected    prometheus.Counter
	confirmMalformed   prometheus.Counter
	inconsistentAlarms prometheus.Counter

	// Гистограммы времени выполнения
	checkoutDuration prometheus.Histogram
	confirmDuration  prometheus.Histogram

	// Счётчики событий outbox
	outboxEvents prometheus.Counter
}

// NewCheckoutMetrics создаёт новый экземпляр метрик чекаута.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersPaid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_orders_paid_total",
			Help: "Total number of orders confirmed as paid",
		}),
		ordersCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_orders_canceled_total",
			Help: "Total number of orders canceled",
		}),
		paymentsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_payments_created_total",
			Help: "Total number of payment sessions created",
		}),
		confirmRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_confirm_rejected_total",
			Help: "Total number of payment confirmations with rejected status",
		}),
		confirmMalformed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_confirm_malformed_total",
			Help: "Total number of payment confirmations with unparseable references",
		}),
		inconsistentAlarms: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_inconsistent_orders_total",
			Help: "Total number of paid orders left inconsistent after stock deduction failure",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_order_create_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		confirmDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "checkout_confirm_duration_seconds",
			Help:    "Duration of payment confirmation handling in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "checkout_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderPaid увеличивает счётчик оплаченных заказов.
func (m *CheckoutMetrics) RecordOrderPaid() {
	m.ordersPaid.Inc()
}

// RecordOrderCanceled увеличивает счётчик отменённых заказов.
func (m *CheckoutMetrics) RecordOrderCanceled() {
	m.ordersCanceled.Inc()
}

// RecordPaymentCreated увеличивает счётчик созданных платёжных сессий.
func (m *CheckoutMetrics) RecordPaymentCreated() {
	m.paymentsCreated.Inc()
}

// RecordConfirmRejected увеличивает счётчик отклонённых подтверждений.
func (m *CheckoutMetrics) RecordConfirmRejected() {
	m.confirmRejected.Inc()
}

// RecordConfirmMalformed увеличивает счётчик нечитаемых ссылок на заказ.
func (m *CheckoutMetrics) RecordConfirmMalformed() {
	m.confirmMalformed.Inc()
}

// RecordInconsistentOrder увеличивает счётчик рассинхронизированных заказов.
func (m *CheckoutMetrics) RecordInconsistentOrder() {
	m.inconsistentAlarms.Inc()
}

// RecordCheckoutDuration записывает время оформления заказа.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordConfirmDuration записывает время обработки подтверждения.
func (m *CheckoutMetrics) RecordConfirmDuration(duration time.Duration) {
	m.confirmDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
