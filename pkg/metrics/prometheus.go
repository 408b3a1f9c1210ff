// Package metrics provides Prometheus metrics for the aimboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the aimboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Ingest Metrics - Run intake quality
	runsIngested  prometheus.Counter
	runsDuplicate prometheus.Counter
	runsRejected  prometheus.Counter

	// Session Metrics - Windowing behavior
	sessionsOpened  prometheus.Counter
	sessionsExpired prometheus.Counter
	sessionsReset   prometheus.Counter
	bestUpdates     prometheus.Counter

	// Estimate Metrics - Rank evolution and maintenance
	rankEvolutions   prometheus.Counter
	decaySweeps      prometheus.Counter
	decayAdjusted    prometheus.Counter
	penaltyLifts     prometheus.Counter
	trackedScenarios prometheus.Gauge

	// Ranked Session Metrics - Gauntlet lifecycle
	rankedStarted   prometheus.Counter
	rankedExtended  prometheus.Counter
	rankedCompleted prometheus.Counter
	rankedAbandoned prometheus.Counter

	// Storage Metrics - Persistence performance
	storeReadLatency  prometheus.Histogram
	storeWriteLatency prometheus.Histogram
	historyInserts    prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Push Metrics - WebSocket fanout
	wsClients  prometheus.Gauge
	broadcasts prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "aimboard",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Ingest Metrics - Run intake quality
	m.runsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_ingested_total",
		Help:      "Total number of scenario runs accepted into the pipeline",
	})

	m.runsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_duplicate_total",
		Help:      "Total number of duplicate runs detected and dropped",
	})

	m.runsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "runs_rejected_total",
		Help:      "Total number of runs rejected as malformed or unknown",
	})

	// Session Metrics - Windowing behavior
	m.sessionsOpened = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_opened_total",
		Help:      "Total number of practice session windows opened",
	})

	m.sessionsExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_expired_total",
		Help:      "Total number of practice session windows that timed out",
	})

	m.sessionsReset = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_reset_total",
		Help:      "Total number of practice session windows reset on request",
	})

	m.bestUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "session_best_updates_total",
		Help:      "Total number of in-session personal best improvements",
	})

	// Estimate Metrics - Rank evolution and maintenance
	m.rankEvolutions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_evolutions_total",
		Help:      "Total number of continuous rank estimate evolutions applied",
	})

	m.decaySweeps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decay_sweeps_total",
		Help:      "Total number of inactivity decay sweeps executed",
	})

	m.decayAdjusted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decay_adjusted_total",
		Help:      "Total number of scenario estimates lowered by decay",
	})

	m.penaltyLifts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "penalty_lifts_total",
		Help:      "Total number of overplay penalties lifted by daily rest",
	})

	m.trackedScenarios = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_scenarios",
		Help:      "Number of scenarios with a persisted rank estimate",
	})

	// Ranked Session Metrics - Gauntlet lifecycle
	m.rankedStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranked_sessions_started_total",
		Help:      "Total number of ranked sessions started",
	})

	m.rankedExtended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranked_sessions_extended_total",
		Help:      "Total number of ranked sessions extended past the gauntlet",
	})

	m.rankedCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranked_sessions_completed_total",
		Help:      "Total number of ranked sessions ended with evolution applied",
	})

	m.rankedAbandoned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranked_sessions_abandoned_total",
		Help:      "Total number of ranked sessions reset without evolution",
	})

	// Storage Metrics - Persistence performance
	m.storeReadLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_read_latency_milliseconds",
		Help:      "State store read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.storeWriteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_write_latency_milliseconds",
		Help:      "State store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.historyInserts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_inserts_total",
		Help:      "Total number of runs appended to the history log",
	})

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Push Metrics - WebSocket fanout
	m.wsClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ws_clients",
		Help:      "Number of connected WebSocket clients",
	})

	m.broadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_total",
		Help:      "Total number of update notifications broadcast to clients",
	})
}

// RecordRunIngested increments the accepted runs counter.
func RecordRunIngested() {
	globalManager.runsIngested.Inc()
}

// RecordRunDuplicate increments the duplicate runs counter.
func RecordRunDuplicate() {
	globalManager.runsDuplicate.Inc()
}

// RecordRunRejected increments the rejected runs counter.
func RecordRunRejected() {
	globalManager.runsRejected.Inc()
}

// RecordSessionOpened increments the opened session windows counter.
func RecordSessionOpened() {
	globalManager.sessionsOpened.Inc()
}

// RecordSessionExpired increments the expired session windows counter.
func RecordSessionExpired() {
	globalManager.sessionsExpired.Inc()
}

// RecordSessionReset increments the requested session resets counter.
func RecordSessionReset() {
	globalManager.sessionsReset.Inc()
}

// RecordBestUpdate increments the in-session best improvements counter.
func RecordBestUpdate() {
	globalManager.bestUpdates.Inc()
}

// RecordRankEvolution increments the estimate evolutions counter.
func RecordRankEvolution() {
	globalManager.rankEvolutions.Inc()
}

// RecordDecaySweep records one decay sweep and how many estimates it lowered.
func RecordDecaySweep(adjusted int) {
	globalManager.decaySweeps.Inc()
	globalManager.decayAdjusted.Add(float64(adjusted))
}

// RecordPenaltyLifts adds to the lifted overplay penalties counter.
func RecordPenaltyLifts(count int) {
	globalManager.penaltyLifts.Add(float64(count))
}

// UpdateTrackedScenarios sets the persisted estimate count gauge.
func UpdateTrackedScenarios(count int) {
	globalManager.trackedScenarios.Set(float64(count))
}

// RecordRankedStarted increments the started ranked sessions counter.
func RecordRankedStarted() {
	globalManager.rankedStarted.Inc()
}

// RecordRankedExtended increments the extended ranked sessions counter.
func RecordRankedExtended() {
	globalManager.rankedExtended.Inc()
}

// RecordRankedCompleted increments the completed ranked sessions counter.
func RecordRankedCompleted() {
	globalManager.rankedCompleted.Inc()
}

// RecordRankedAbandoned increments the abandoned ranked sessions counter.
func RecordRankedAbandoned() {
	globalManager.rankedAbandoned.Inc()
}

// RecordStoreReadLatency records a state store read latency in milliseconds.
func RecordStoreReadLatency(latencyMs float64) {
	globalManager.storeReadLatency.Observe(latencyMs)
}

// RecordStoreWriteLatency records a state store write latency in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) {
	globalManager.storeWriteLatency.Observe(latencyMs)
}

// RecordHistoryInsert increments the history log append counter.
func RecordHistoryInsert() {
	globalManager.historyInserts.Inc()
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateWSClients sets the connected WebSocket clients gauge.
func UpdateWSClients(count int) {
	globalManager.wsClients.Set(float64(count))
}

// RecordBroadcast increments the broadcast notifications counter.
func RecordBroadcast() {
	globalManager.broadcasts.Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
