// Package metrics provides Prometheus metrics for the blindtest service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session transition labels.
const (
	TransitionCreated    = "created"
	TransitionCompleted  = "completed"
	TransitionSkipped    = "skipped"
	TransitionPostponed  = "postponed"
	TransitionReassigned = "reassigned"
)

// Manager manages all Prometheus metrics for the blindtest service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Wheel
	spins                  prometheus.Counter
	winnersSelected        prometheus.Counter
	noActiveParticipants   prometheus.Counter
	activeParticipants     prometheus.Gauge
	winnerProbability      prometheus.Histogram
	playsRecorded          prometheus.Counter
	sessionTransitions     *prometheus.CounterVec
	registrationDecisions  *prometheus.CounterVec
	registrationLocks      prometheus.Counter
	historyEntriesAppended prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry avoids the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "blindtest",
		subsystem:        "wheel",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	if !m.enabled {
		// Collectors still exist so recorders never nil-deref; they just are not exported.
		auto = promauto.With(nil)
	}
	labels := prometheus.Labels(m.customLabels)

	m.spins = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "spins_total",
		Help: "Total number of wheel spins",
	})
	m.winnersSelected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "winners_selected_total",
		Help: "Total number of spins that produced a winner",
	})
	m.noActiveParticipants = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "spins_no_active_participants_total",
		Help: "Total number of spins attempted with an empty active roster",
	})
	m.activeParticipants = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "active_participants",
		Help: "Number of participants eligible for selection",
	})
	m.winnerProbability = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "winner_probability_percent",
		Help:    "Selection probability of each drawn winner",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})
	m.playsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "plays_recorded_total",
		Help: "Total number of participant plays recorded",
	})
	m.sessionTransitions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "session_transitions_total",
		Help: "Daily session lifecycle transitions by kind",
	}, []string{"transition"})
	m.registrationDecisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "registration_decisions_total",
		Help: "Registration gate evaluations by reason code",
	}, []string{"reason"})
	m.registrationLocks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "registration_locks_total",
		Help: "Total number of registration lock calls",
	})
	m.historyEntriesAppended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "history_entries_appended_total",
		Help: "Total number of history entries written",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "http_requests_total",
		Help: "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.repositoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name:    "repository_latency_milliseconds",
		Help:    "Repository operation latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"operation"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "errors_by_component_total",
		Help: "Errors by component and error type",
	}, []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "errors_by_endpoint_total",
		Help: "HTTP errors by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "system_memory_usage_bytes",
		Help: "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: labels,
		Name: "system_goroutine_count",
		Help: "Number of goroutines",
	})
}

// RecordSpin counts a spin and, when won, the winner's probability.
func RecordSpin(won bool, probability float64) {
	globalManager.spins.Inc()
	if !won {
		globalManager.noActiveParticipants.Inc()
		return
	}
	globalManager.winnersSelected.Inc()
	globalManager.winnerProbability.Observe(probability)
}

// UpdateActiveParticipants sets the eligible roster size.
func UpdateActiveParticipants(count int) {
	globalManager.activeParticipants.Set(float64(count))
}

// RecordPlay increments the plays counter.
func RecordPlay() {
	globalManager.playsRecorded.Inc()
}

// RecordSessionTransition counts a session lifecycle transition.
func RecordSessionTransition(transition string) {
	globalManager.sessionTransitions.WithLabelValues(transition).Inc()
}

// RecordRegistrationDecision counts a gate evaluation by reason code.
func RecordRegistrationDecision(reason string) {
	globalManager.registrationDecisions.WithLabelValues(reason).Inc()
}

// RecordRegistrationLock counts a lock call.
func RecordRegistrationLock() {
	globalManager.registrationLocks.Inc()
}

// RecordHistoryAppend counts a history entry write.
func RecordHistoryAppend() {
	globalManager.historyEntriesAppended.Inc()
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryLatency records the latency of a repository operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
