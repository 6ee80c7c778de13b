package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Operation Lifecycle Metrics
	operationsTotal           *prometheus.CounterVec
	operationDuration         *prometheus.HistogramVec
	confirmationAttempts      *prometheus.HistogramVec
	validationRejectionsTotal *prometheus.CounterVec

	// Read Path Metrics
	readsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "network"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "network"},
		),

		// Operation Lifecycle Metrics
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_operations_total",
				Help: "Total number of wallet operations by kind and terminal outcome",
			},
			[]string{"kind", "network", "outcome"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_operation_duration_seconds",
				Help:    "End-to-end duration of wallet operations in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"kind", "network"},
		),
		confirmationAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_confirmation_attempts",
				Help:    "Number of status polls consumed before an operation reached a terminal state",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
			[]string{"kind"},
		),
		validationRejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_validation_rejections_total",
				Help: "Total number of operations rejected before any network call",
			},
			[]string{"kind", "reason"},
		),

		// Read Path Metrics
		readsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_reads_total",
				Help: "Total number of balance/token/history reads by status",
			},
			[]string{"kind", "status", "network"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by handler, method, and status code",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of messages published to NATS by subject and status",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"subject"},
		),
	}
}

// RecordRPCCall records a Solana RPC call with its duration.
func (m *Metrics) RecordRPCCall(method, status, network string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, network).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, network).Observe(duration)
}

// RecordOperation records a wallet operation reaching a terminal state.
func (m *Metrics) RecordOperation(kind, network, outcome string, duration float64) {
	m.operationsTotal.WithLabelValues(kind, network, outcome).Inc()
	m.operationDuration.WithLabelValues(kind, network).Observe(duration)
}

// RecordConfirmationAttempts records how many status polls an operation consumed.
func (m *Metrics) RecordConfirmationAttempts(kind string, attempts int) {
	m.confirmationAttempts.WithLabelValues(kind).Observe(float64(attempts))
}

// RecordValidationRejection records a local rejection that never reached the network.
func (m *Metrics) RecordValidationRejection(kind, reason string) {
	m.validationRejectionsTotal.WithLabelValues(kind, reason).Inc()
}

// RecordRead records a balance/token/history read outcome.
func (m *Metrics) RecordRead(kind, status, network string) {
	m.readsTotal.WithLabelValues(kind, status, network).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
}

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// statusCodeToString converts an HTTP status code to a string label.
func statusCodeToString(code int) string {
	return strconv.Itoa(code)
}
