package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_events_total",
			Help: "Total number of push events processed by the watcher (count)",
		},
		[]string{"status"},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_decisions_total",
			Help: "Total number of decisions by terminal state (count)",
		},
		[]string{"state"},
	)

	EventProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "watcher_event_processing_duration_ms",
			Help:    "Processing duration for a single push event in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"state"},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watcher_batch_size",
			Help:    "Number of events per processed batch (count)",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		},
	)

	ActiveMatchers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watcher_active_matchers",
			Help: "Number of loaded version matchers (count)",
		},
	)

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_actions_total",
			Help: "Total number of control-plane actions issued (count)",
		},
		[]string{"action", "status"},
	)

	ControlPlaneCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "control_plane_calls_total",
			Help: "Total number of control-plane call attempts (count)",
		},
		[]string{"operation", "outcome"},
	)

	ControlPlaneCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "control_plane_call_duration_ms",
			Help:    "Duration of control-plane calls including immediate retries in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"operation"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of immediate retry attempts (count)",
		},
		[]string{"operation"},
	)

	ResubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_resubmissions_total",
			Help: "Total number of delayed event resubmissions (count)",
		},
		[]string{"status"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_notifications_total",
			Help: "Total number of status notifications sent (count)",
		},
		[]string{"status"},
	)

	DuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "watcher_duplicates_total",
			Help: "Total number of duplicate deliveries suppressed (count)",
		},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	BrokerMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_read_total",
			Help: "Total number of messages read from the event queue (count)",
		},
		[]string{"broker", "source"},
	)

	BrokerMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_written_total",
			Help: "Total number of messages written to the event queue (count)",
		},
		[]string{"broker", "source"},
	)

	BrokerReadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_read_duration_ms",
			Help:    "Duration of reading a batch from the event queue in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 20000},
		},
		[]string{"broker", "source"},
	)

	DatabaseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "database_queries_total",
			Help: "Total number of database queries (count)",
		},
		[]string{"service", "database", "operation", "status"},
	)

	DatabaseQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "database_query_duration_ms",
			Help:    "Duration of database queries in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service", "database", "operation"},
	)
)

func RegisterWatcherMetrics() {
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(DecisionsTotal)
	prometheus.MustRegister(EventProcessingDuration)
	prometheus.MustRegister(BatchSize)
	prometheus.MustRegister(ActiveMatchers)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ControlPlaneCallsTotal)
	prometheus.MustRegister(ControlPlaneCallDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(ResubmissionsTotal)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(DuplicatesTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(BrokerMessagesReadTotal)
	prometheus.MustRegister(BrokerMessagesWrittenTotal)
	prometheus.MustRegister(BrokerReadDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterAPIMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(DatabaseQueriesTotal)
	prometheus.MustRegister(DatabaseQueryDuration)
}

func ObserveEventDuration(duration time.Duration, state string) {
	EventProcessingDuration.WithLabelValues(state).Observe(float64(duration.Milliseconds()))
}

func ObserveControlPlaneDuration(operation string, duration time.Duration) {
	ControlPlaneCallDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}

func ObserveBrokerReadDuration(broker, source string, duration time.Duration) {
	BrokerReadDuration.WithLabelValues(broker, source).Observe(float64(duration.Milliseconds()))
}

func SetActiveMatchers(count int) {
	ActiveMatchers.Set(float64(count))
}

func IncDecision(state string) {
	DecisionsTotal.WithLabelValues(state).Inc()
}

func IncAction(action, status string) {
	ActionsTotal.WithLabelValues(action, status).Inc()
}

func IncControlPlaneCall(operation, outcome string) {
	ControlPlaneCallsTotal.WithLabelValues(operation, outcome).Inc()
}

func IncBrokerMessagesRead(broker, source string, count int) {
	BrokerMessagesReadTotal.WithLabelValues(broker, source).Add(float64(count))
}

func IncBrokerMessagesWritten(broker, source string) {
	BrokerMessagesWrittenTotal.WithLabelValues(broker, source).Inc()
}

func IncDatabaseQuery(service, database, operation, status string) {
	DatabaseQueriesTotal.WithLabelValues(service, database, operation, status).Inc()
}

func ObserveDatabaseQueryDuration(service, database, operation string, duration time.Duration) {
	DatabaseQueryDuration.WithLabelValues(service, database, operation).Observe(float64(duration.Milliseconds()))
}
