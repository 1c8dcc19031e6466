package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	exchangeLabel = "exchange"
	reasonLabel   = "reason"
	stateLabel    = "state"
)

// Rejection reasons reported by the transport.
const (
	RejectPoolFull         = "pool_full"
	RejectMissingSSP       = "missing_ssp"
	RejectUnknownExchange  = "unknown_exchange"
	RejectUnsupportedMedia = "unsupported_media"
	RejectUndecodable      = "undecodable"
)

// RejectInvalidResponse labels offers dropped because the bid response carrying them
// failed validation.
const RejectInvalidResponse = "invalid_response"

// PrometheusMetrics implements Recorder on a dedicated registry.
type PrometheusMetrics struct {
	Registry *prometheus.Registry

	transactions     *prometheus.CounterVec
	transactionTimer *prometheus.HistogramVec
	deadlinesFired   *prometheus.CounterVec
	faults           *prometheus.CounterVec
	rejectedRequests *prometheus.CounterVec
	rejectedOffers   *prometheus.CounterVec
}

// NewPrometheusMetrics registers every collector under namespace.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{Registry: registry}

	m.transactions = newCounter(namespace, registry,
		"transactions_total",
		"Count of bid transactions by exchange and terminal state.",
		[]string{exchangeLabel, stateLabel})

	m.transactionTimer = newHistogramVec(namespace, registry,
		"transaction_time_seconds",
		"Seconds from transaction start to terminal state.",
		[]string{exchangeLabel, stateLabel},
		[]float64{0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.15, 0.2, 0.3, 0.5, 1})

	m.deadlinesFired = newCounter(namespace, registry,
		"request_deadlines_fired_total",
		"Count of transactions whose request deadline fired before completion.",
		[]string{exchangeLabel})

	m.faults = newCounter(namespace, registry,
		"transaction_faults_total",
		"Count of transactions aborted by an internal fault.",
		[]string{exchangeLabel})

	m.rejectedRequests = newCounter(namespace, registry,
		"rejected_requests_total",
		"Count of requests rejected before a transaction was created.",
		[]string{reasonLabel})

	m.rejectedOffers = newCounter(namespace, registry,
		"offers_rejected_total",
		"Count of offers dropped during selection, by exchange and reason.",
		[]string{exchangeLabel, reasonLabel})

	return m
}

func (m *PrometheusMetrics) RecordTransaction(exchange, state string, elapsed time.Duration) {
	m.transactions.With(prometheus.Labels{exchangeLabel: exchange, stateLabel: state}).Inc()
	m.transactionTimer.With(prometheus.Labels{exchangeLabel: exchange, stateLabel: state}).Observe(elapsed.Seconds())
}

func (m *PrometheusMetrics) RecordDeadlineFired(exchange string) {
	m.deadlinesFired.With(prometheus.Labels{exchangeLabel: exchange}).Inc()
}

func (m *PrometheusMetrics) RecordFault(exchange string) {
	m.faults.With(prometheus.Labels{exchangeLabel: exchange}).Inc()
}

func (m *PrometheusMetrics) RecordRejectedRequest(reason string) {
	m.rejectedRequests.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

func (m *PrometheusMetrics) RecordRejectedOffers(exchange, reason string, count int) {
	if count <= 0 {
		return
	}
	m.rejectedOffers.With(prometheus.Labels{exchangeLabel: exchange, reasonLabel: reason}).Add(float64(count))
}

func newCounter(namespace string, registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	opts := prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}
	counter := prometheus.NewCounterVec(opts, labels)
	registry.MustRegister(counter)
	return counter
}

func newHistogramVec(namespace string, registry *prometheus.Registry, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	opts := prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}
	histogram := prometheus.NewHistogramVec(opts, labels)
	registry.MustRegister(histogram)
	return histogram
}
