// Package monitoring registers and updates the service metrics.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the sink for all named counters, timers and gauges. It has no
// control-flow dependency: callers fire and forget.
type Metrics struct {
	accountCreated prometheus.Counter
	accountTotal   prometheus.Gauge
	transactions   *prometheus.CounterVec
	locks          *prometheus.CounterVec
	eventPublished *prometheus.CounterVec
	eventProcessed *prometheus.CounterVec
	eventFailed    *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	apiDuration    *prometheus.HistogramVec
}

// New registers the metric set on reg and returns the sink.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		accountCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "bank_account_created_total",
			Help: "Number of accounts created.",
		}),
		accountTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bank_account_total",
			Help: "Number of live accounts.",
		}),
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_transaction_count_total",
			Help: "Number of ledger transactions.",
		}, []string{"type"}),
		locks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_lock_acquisition_total",
			Help: "Lock acquisition attempts by outcome.",
		}, []string{"outcome"}),
		eventPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_event_published_total",
			Help: "Number of events published.",
		}, []string{"type"}),
		eventProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_event_processed_total",
			Help: "Number of events processed successfully.",
		}, []string{"type"}),
		eventFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bank_event_failed_total",
			Help: "Number of events that failed delivery.",
		}, []string{"type"}),
		eventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_event_processing_seconds",
			Help:    "Event processing time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		apiDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bank_api_response_seconds",
			Help:    "API response time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}
}

// AccountCreated increments the account creation counter.
func (m *Metrics) AccountCreated() { m.accountCreated.Inc() }

// SetAccountTotal updates the live account gauge.
func (m *Metrics) SetAccountTotal(n int64) { m.accountTotal.Set(float64(n)) }

// Transaction counts a committed ledger entry by type.
func (m *Metrics) Transaction(transactionType string) {
	m.transactions.WithLabelValues(transactionType).Inc()
}

// LockAcquired counts a successful lock acquisition. The key is not used as
// a label to keep cardinality bounded.
func (m *Metrics) LockAcquired(string) { m.locks.WithLabelValues("success").Inc() }

// LockFailed counts a failed lock acquisition.
func (m *Metrics) LockFailed(string) { m.locks.WithLabelValues("failure").Inc() }

// EventPublished counts a published event by type.
func (m *Metrics) EventPublished(eventType string) {
	m.eventPublished.WithLabelValues(eventType).Inc()
}

// EventProcessed counts a successfully delivered event by type.
func (m *Metrics) EventProcessed(eventType string) {
	m.eventProcessed.WithLabelValues(eventType).Inc()
}

// EventFailed counts a failed event delivery by type.
func (m *Metrics) EventFailed(eventType string) {
	m.eventFailed.WithLabelValues(eventType).Inc()
}

// ObserveEventProcessing records how long one listener took for one event.
func (m *Metrics) ObserveEventProcessing(eventType string, d time.Duration) {
	m.eventDuration.WithLabelValues(eventType).Observe(d.Seconds())
}

// ObserveAPIResponse records the latency of one HTTP request.
func (m *Metrics) ObserveAPIResponse(path, method string, d time.Duration) {
	m.apiDuration.WithLabelValues(path, method).Observe(d.Seconds())
}
