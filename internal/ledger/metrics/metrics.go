package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "cipherwork"
	subsystem = "ledger"
)

var (
	startTime = time.Now()

	// StartupDuration tracks the time taken for the ledger service to start
	StartupDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "startup_duration_seconds",
		Help:      "Time taken in seconds for the ledger service to start",
	})

	// Ledger operation outcomes, result is "ok" or an error code
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "operations_total",
		Help:      "Ledger operations by outcome",
	}, []string{"operation", "result"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Ledger operation latency including external calls",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})

	// Decryption proof verifications by reason ("accepted" on success)
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "verifications_total",
		Help:      "Decryption proof verifications by outcome",
	}, []string{"outcome"})

	VerificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "verification_duration_seconds",
		Help:      "Time spent in the cryptographic service verifying openings",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})

	TasksTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tasks",
		Help:      "Tasks held by the ledger by status",
	}, []string{"status"})

	WorkersTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "workers",
		Help:      "Registered workers",
	})

	// Store commit metrics
	StoreCommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "store_commits_total",
		Help:      "Store commits by status",
	}, []string{"status"})

	StoreCommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "store_commit_duration_seconds",
		Help:      "Store commit latency",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "events_published_total",
		Help:      "Ledger events published by type",
	}, []string{"type"})

	// Stream forwarding metrics
	StreamPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stream_publish_total",
		Help:      "Events forwarded to the redis stream by status",
	}, []string{"status"})

	// Consumers that fell behind the ledger and subscribed again
	ConsumerResubscribesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "consumer_resubscribes_total",
		Help:      "Event consumers dropped for falling behind and resubscribed",
	}, []string{"consumer"})

	EventsMissedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "events_missed_total",
		Help:      "Events a consumer never received because it was dropped",
	}, []string{"consumer"})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "websocket_clients",
		Help:      "Connected websocket event clients",
	})

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "endpoint", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	ActiveRequests = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_requests",
		Help:      "Currently active HTTP requests",
	}, []string{"endpoint"})

	// Panic recovery metrics
	PanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "panics_total",
		Help:      "Recovered panics by endpoint",
	}, []string{"endpoint"})
)

// TrackOperation records the outcome and latency of a ledger operation
func TrackOperation(operation string, start time.Time, result string) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// TrackCommit wraps a store commit
func TrackCommit(commit func() error) error {
	start := time.Now()
	err := commit()
	StoreCommitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		StoreCommitsTotal.WithLabelValues("error").Inc()
		return err
	}
	StoreCommitsTotal.WithLabelValues("success").Inc()
	return nil
}
