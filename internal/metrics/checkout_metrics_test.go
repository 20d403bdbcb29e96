package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCheckoutMetrics_Counters(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := newCheckoutMetricsWithRegisterer(registry)

	m.RecordOrderCreated()
	m.RecordOrderCreated()
	m.RecordOrderPaid()
	m.RecordOrderCanceled()
	m.RecordPaymentCreated()
	m.RecordConfirmRejected()
	m.RecordConfirmMalformed()
	m.RecordInconsistentOrder()
	m.RecordOutboxEvent()

	if got := testutil.ToFloat64(m.ordersCreated); got != 2 {
		t.Fatalf("expected 2 created orders, got %v", got)
	}
	if got := testutil.ToFloat64(m.ordersPaid); got != 1 {
		t.Fatalf("expected 1 paid order, got %v", got)
	}
	if got := testutil.ToFloat64(m.ordersCanceled); got != 1 {
		t.Fatalf("expected 1 canceled order, got %v", got)
	}
	if got := testutil.ToFloat64(m.inconsistentAlarms); got != 1 {
		t.Fatalf("expected 1 inconsistent order, got %v", got)
	}
}

func TestCheckoutMetrics_Durations(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := newCheckoutMetricsWithRegisterer(registry)

	m.RecordCheckoutDuration(50 * time.Millisecond)
	m.RecordConfirmDuration(5 * time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	found := map[string]bool{}
	for _, family := range families {
		found[family.GetName()] = true
	}
	if !found["checkout_order_create_duration_seconds"] {
		t.Fatal("checkout duration histogram not registered")
	}
	if !found["checkout_confirm_duration_seconds"] {
		t.Fatal("confirm duration histogram not registered")
	}
}

func TestCheckoutMetrics_DoubleRegistrationReusesCollectors(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	first := newCheckoutMetricsWithRegisterer(registry)
	second := newCheckoutMetricsWithRegisterer(registry)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	if got := testutil.ToFloat64(first.ordersCreated); got != 2 {
		t.Fatalf("expected shared counter value 2, got %v", got)
	}
}

func TestCheckoutMetrics_NilRegistererFallsBackToDefault(t *testing.T) {
	t.Parallel()

	m := newCheckoutMetricsWithRegisterer(nil)
	if m == nil {
		t.Fatal("expected metrics instance")
	}
}
