// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Pipeline metrics
	EventsProcessed  *prometheus.CounterVec
	EventsInserted   *prometheus.CounterVec
	EventsDuplicated *prometheus.CounterVec
	DecodeErrors     *prometheus.CounterVec

	// Live engine metrics
	Reconnects  *prometheus.CounterVec
	EngineState *prometheus.GaugeVec

	// Backfill engine metrics
	SignaturesFetched *prometheus.CounterVec
	FetchRetries      *prometheus.CounterVec

	// RPC/storage latency
	RPCCallLatency *prometheus.HistogramVec
	StoreLatency   *prometheus.HistogramVec
	StoreErrors    *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "soltrace"
	}

	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_processed_total",
			Help:      "Total number of program-data log lines scanned, by program id",
		}, []string{"program_id"}),
		EventsInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_inserted_total",
			Help:      "Total number of decoded events inserted into storage, by program id and event name",
		}, []string{"program_id", "event_name"}),
		EventsDuplicated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_duplicated_total",
			Help:      "Total number of events skipped because their signature was already recorded",
		}, []string{"program_id"}),
		DecodeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decode_errors_total",
			Help:      "Total number of events that fell back to raw hex because decoding failed, by reason",
		}, []string{"program_id", "reason"}),

		Reconnects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts by the live engine",
		}, []string{"program_id"}),
		EngineState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "engine_state",
			Help:      "Current live engine state per program (1 for the active state, 0 otherwise), by program id and state name",
		}, []string{"program_id", "state"}),

		SignaturesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "signatures_fetched_total",
			Help:      "Total number of signatures fetched per program during backfill",
		}, []string{"program_id"}),
		FetchRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "transaction_fetch_retries_total",
			Help:      "Total number of transaction fetch retries during backfill",
		}, []string{"program_id"}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_latency_seconds",
			Help:      "Storage backend operation latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Total number of storage backend operation errors, excluding duplicate-signature rejections",
		}, []string{"backend", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventProcessed increments the events-processed counter for a
// program.
func RecordEventProcessed(programID string) {
	DefaultMetrics.EventsProcessed.WithLabelValues(programID).Inc()
}

// RecordEventInserted increments the events-inserted counter for a program
// and event name.
func RecordEventInserted(programID, eventName string) {
	DefaultMetrics.EventsInserted.WithLabelValues(programID, eventName).Inc()
}

// RecordEventDuplicated increments the events-duplicated counter for a
// program.
func RecordEventDuplicated(programID string) {
	DefaultMetrics.EventsDuplicated.WithLabelValues(programID).Inc()
}

// RecordDecodeError increments the decode-errors counter for a program and
// failure reason.
func RecordDecodeError(programID, reason string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(programID, reason).Inc()
}

// RecordReconnect increments the reconnect counter for a program.
func RecordReconnect(programID string) {
	DefaultMetrics.Reconnects.WithLabelValues(programID).Inc()
}

// SetEngineState sets the engine-state gauge for programID, zeroing every
// other known state and setting only the active one to 1.
func SetEngineState(programID string, states []string, active string) {
	for _, s := range states {
		if s == active {
			DefaultMetrics.EngineState.WithLabelValues(programID, s).Set(1)
		} else {
			DefaultMetrics.EngineState.WithLabelValues(programID, s).Set(0)
		}
	}
}

// RecordSignaturesFetched adds count to the signatures-fetched counter for
// a program.
func RecordSignaturesFetched(programID string, count int) {
	DefaultMetrics.SignaturesFetched.WithLabelValues(programID).Add(float64(count))
}

// RecordFetchRetry increments the fetch-retries counter for a program.
func RecordFetchRetry(programID string) {
	DefaultMetrics.FetchRetries.WithLabelValues(programID).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordStoreOperation records storage backend operation latency and, if
// err is non-nil, increments the operation error counter.
func RecordStoreOperation(backend, operation string, seconds float64, err error) {
	DefaultMetrics.StoreLatency.WithLabelValues(backend, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreErrors.WithLabelValues(backend, operation).Inc()
	}
}
