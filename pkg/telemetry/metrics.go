package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module registers the Prometheus metrics set.
var Module = fx.Provide(NewMetrics)

// Metrics exposes Prometheus observability primitives for the terminal core.
type Metrics struct {
	apiRequests      *prometheus.CounterVec
	apiDuration      *prometheus.HistogramVec
	dispatchCycles   *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	printOutcomes    *prometheus.CounterVec
	pendingLogs      prometheus.Gauge
	billsClosed      prometheus.Counter
	paymentAmount    *prometheus.HistogramVec
}

// NewMetrics registers and returns Prometheus metrics.
func NewMetrics() *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tably_api_requests_total",
		Help: "Counts API requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tably_api_duration_seconds",
		Help:    "API request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	dispatchCycles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tably_dispatch_cycles_total",
		Help: "Counts dispatch cycles by outcome.",
	}, []string{"status"})

	dispatchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tably_dispatch_duration_seconds",
		Help:    "Dispatch cycle durations by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	printOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tably_print_outcomes_total",
		Help: "Per-printer transmission outcomes.",
	}, []string{"printer", "status"})

	pendingLogs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tably_print_logs_pending",
		Help: "Number of print logs awaiting dispatch.",
	})

	billsClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tably_bills_closed_total",
		Help: "Counts bills closed.",
	})

	paymentAmount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tably_payment_amount",
		Help:    "Payment amounts by payment type.",
		Buckets: prometheus.ExponentialBuckets(100, 4, 8),
	}, []string{"payment_type"})

	prometheus.MustRegister(
		apiRequests,
		apiDuration,
		dispatchCycles,
		dispatchDuration,
		printOutcomes,
		pendingLogs,
		billsClosed,
		paymentAmount,
	)

	return &Metrics{
		apiRequests:      apiRequests,
		apiDuration:      apiDuration,
		dispatchCycles:   dispatchCycles,
		dispatchDuration: dispatchDuration,
		printOutcomes:    printOutcomes,
		pendingLogs:      pendingLogs,
		billsClosed:      billsClosed,
		paymentAmount:    paymentAmount,
	}
}

// ObserveAPIRequest records an API request with its latency.
func (m *Metrics) ObserveAPIRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveDispatchCycle records one dispatch cycle outcome.
func (m *Metrics) ObserveDispatchCycle(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatchCycles.WithLabelValues(status).Inc()
	m.dispatchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObservePrintOutcome records one per-printer transmission outcome.
func (m *Metrics) ObservePrintOutcome(printer, status string) {
	if m == nil {
		return
	}
	m.printOutcomes.WithLabelValues(printer, status).Inc()
}

// SetPendingLogs updates the pending print-log backlog gauge.
func (m *Metrics) SetPendingLogs(n int) {
	if m == nil {
		return
	}
	m.pendingLogs.Set(float64(n))
}

// ObserveBillClosed counts a closed bill.
func (m *Metrics) ObserveBillClosed() {
	if m == nil {
		return
	}
	m.billsClosed.Inc()
}

// ObservePayment records a collected payment amount.
func (m *Metrics) ObservePayment(paymentType string, amount int64) {
	if m == nil {
		return
	}
	m.paymentAmount.WithLabelValues(paymentType).Observe(float64(amount))
}
