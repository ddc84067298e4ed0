// Package metrics provides Prometheus metrics for the platewatch engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Evaluation metrics
	evaluations       *prometheus.CounterVec
	flags             *prometheus.CounterVec
	missingColumns    *prometheus.CounterVec
	runs              *prometheus.CounterVec
	runDuration       prometheus.Histogram
	lastRunUnix       prometheus.Gauge
	athletesTotal     prometheus.Gauge
	athletesFlagged   prometheus.Gauge
	categoriesFlagged prometheus.Gauge

	// Ingest metrics
	readingsLoaded    prometheus.Counter
	readingsRejected  prometheus.Counter
	readingsDuplicate prometheus.Counter

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "platewatch",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.evaluations = m.counterVec("evaluations_total",
		"Athlete/category evaluations by outcome (flagged or the disqualification reason)", "outcome")
	m.flags = m.counterVec("flags_total", "Flags raised by rule and severity", "rule_id", "severity")
	m.missingColumns = m.counterVec("missing_metric_columns_total",
		"Rule metrics absent from the dataset schema, counted once per run", "metric")
	m.runs = m.counterVec("runs_total", "Evaluation runs by status", "status")
	m.runDuration = m.histogram("run_duration_milliseconds", "Wall time of a full evaluation run in milliseconds")
	m.lastRunUnix = m.gauge("last_run_unix", "Unix timestamp of the last completed run")
	m.athletesTotal = m.gauge("athletes_total", "Athletes in the last evaluated dataset")
	m.athletesFlagged = m.gauge("athletes_flagged", "Distinct athletes flagged in at least one category in the last run")
	m.categoriesFlagged = m.gauge("categories_flagged", "Categories with at least one flagged athlete in the last run")

	m.readingsLoaded = m.counter("readings_loaded_total", "Metric readings accepted by the loader")
	m.readingsRejected = m.counter("rows_rejected_total", "Input rows rejected for a bad date or missing athlete id")
	m.readingsDuplicate = m.counter("readings_duplicate_total", "Exact duplicate readings dropped (data quality)")

	m.queueSize = m.gauge("queue_size", "Current number of pending evaluation jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerCount = m.gauge("worker_count", "Configured number of evaluation workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Number of workers currently evaluating a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Per-job evaluation latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of jobs that panicked or failed")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and error type",
		"endpoint", "method", "error_type")
}

// RecordEvaluation counts one (athlete, rule) evaluation outcome.
func RecordEvaluation(outcome string) {
	globalManager.evaluations.WithLabelValues(outcome).Inc()
}

// RecordFlag counts a raised flag.
func RecordFlag(ruleID int, severity string) {
	globalManager.flags.WithLabelValues(fmt.Sprint(ruleID), severity).Inc()
}

// RecordMissingColumn counts a rule metric absent from the dataset.
func RecordMissingColumn(metric string) {
	globalManager.missingColumns.WithLabelValues(metric).Inc()
}

// RecordRun counts a finished run; status is "ok" or "error".
func RecordRun(status string) {
	globalManager.runs.WithLabelValues(status).Inc()
}

// RecordRunDuration records a run's wall time in milliseconds.
func RecordRunDuration(ms float64) {
	globalManager.runDuration.Observe(ms)
}

// UpdateLastRun sets the last run timestamp.
func UpdateLastRun(unix int64) {
	globalManager.lastRunUnix.Set(float64(unix))
}

// UpdateRunSummary sets the summary gauges of the latest report.
func UpdateRunSummary(athletes, flagged, categories int) {
	globalManager.athletesTotal.Set(float64(athletes))
	globalManager.athletesFlagged.Set(float64(flagged))
	globalManager.categoriesFlagged.Set(float64(categories))
}

// RecordReadingsLoaded adds to the accepted readings counter.
func RecordReadingsLoaded(n int) {
	globalManager.readingsLoaded.Add(float64(n))
}

// RecordRowsRejected adds to the rejected rows counter.
func RecordRowsRejected(n int) {
	globalManager.readingsRejected.Add(float64(n))
}

// RecordReadingsDuplicate adds to the duplicate readings counter.
func RecordReadingsDuplicate(n int) {
	globalManager.readingsDuplicate.Add(float64(n))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the registry in text exposition format to path,
// for node_exporter's textfile collector after batch runs.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteTextfile, path, err)
	}
	return nil
}
