// Package metrics provides the Prometheus-backed counters referenced by
// spec §5's "Metrics counters (lock-free)" line. Collector satisfies the
// small local Metrics interfaces declared in internal/executor,
// internal/wsgateway and internal/api so none of those packages import
// this one directly; each is wired to a *Collector via its WithMetrics
// option at process start. Grounded on the teacher's NewMetrics
// constructor and promauto registration style.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector is the single metrics sink shared by the executor, the
// WebSocket gateway and the REST API.
type Collector struct {
	payloadsOK     prometheus.Counter
	payloadsFailed prometheus.Counter
	storeDuration  prometheus.Histogram
	streamDuration prometheus.Histogram

	sessionsOpened        prometheus.Counter
	sessionsClosed        prometheus.Counter
	sessionsActive        prometheus.Gauge
	subscribed            prometheus.Counter
	unsubscribed          prometheus.Counter
	duplicateSubscription prometheus.Counter
	backpressureDropped   prometheus.Counter

	authRejected prometheus.Counter

	requestsByEntity *prometheus.CounterVec
	rateLimited      prometheus.Counter
	validationErrors prometheus.Counter
	serverErrors     prometheus.Counter

	goroutines prometheus.Gauge
	memoryMB   prometheus.Gauge
	cpuPercent prometheus.Gauge
}

// NewCollector registers every chainstream counter/gauge/histogram with
// the default Prometheus registry.
func NewCollector() *Collector {
	return &Collector{
		payloadsOK: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_payloads_ok_total",
			Help: "Payloads the executor stored and published successfully.",
		}),
		payloadsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_payloads_failed_total",
			Help: "Payloads the executor failed to store or publish.",
		}),
		storeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainstream_store_duration_seconds",
			Help:    "Time spent persisting one payload's records to the repository.",
			Buckets: prometheus.DefBuckets,
		}),
		streamDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainstream_stream_duration_seconds",
			Help:    "Time spent publishing one payload's packets to the broker.",
			Buckets: prometheus.DefBuckets,
		}),

		sessionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_ws_sessions_opened_total",
			Help: "WebSocket sessions accepted.",
		}),
		sessionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_ws_sessions_closed_total",
			Help: "WebSocket sessions closed.",
		}),
		sessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainstream_ws_sessions_active",
			Help: "Currently open WebSocket sessions.",
		}),
		subscribed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_ws_subscriptions_total",
			Help: "Subscribe requests accepted.",
		}),
		unsubscribed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_ws_unsubscriptions_total",
			Help: "Unsubscribe requests processed.",
		}),
		duplicateSubscription: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_ws_duplicate_subscriptions_total",
			Help: "Subscribe requests rejected because the subject was already active on the session (spec 4.I.2).",
		}),
		backpressureDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_ws_backpressure_dropped_total",
			Help: "Packets dropped because a session's outbound queue was full.",
		}),

		authRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_auth_rejected_total",
			Help: "Requests rejected by API-key authentication or scope checks, across REST and WebSocket.",
		}),

		requestsByEntity: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chainstream_api_requests_total",
			Help: "REST query-surface requests served, by entity.",
		}, []string{"entity"}),
		rateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_rate_limited_total",
			Help: "Requests rejected by the per-key, per-minute rate limiter (spec 4.K).",
		}),
		validationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_validation_errors_total",
			Help: "REST requests rejected for invalid pagination or filter parameters.",
		}),
		serverErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chainstream_server_errors_total",
			Help: "REST requests that failed with an internal error.",
		}),

		goroutines: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainstream_goroutines",
			Help: "Current goroutine count, sampled periodically.",
		}),
		memoryMB: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainstream_heap_alloc_mb",
			Help: "Heap memory in use, in megabytes, sampled periodically.",
		}),
		cpuPercent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "chainstream_cpu_percent",
			Help: "Process CPU usage percentage, sampled periodically.",
		}),
	}
}

// executor.Metrics
func (c *Collector) IncPayloadsOK()                     { c.payloadsOK.Inc() }
func (c *Collector) IncPayloadsFailed()                 { c.payloadsFailed.Inc() }
func (c *Collector) RecordStoreDuration(d time.Duration) { c.storeDuration.Observe(d.Seconds()) }
func (c *Collector) RecordStreamDuration(d time.Duration) { c.streamDuration.Observe(d.Seconds()) }

// wsgateway.Metrics
func (c *Collector) IncSessionOpened() {
	c.sessionsOpened.Inc()
	c.sessionsActive.Inc()
}
func (c *Collector) IncSessionClosed() {
	c.sessionsClosed.Inc()
	c.sessionsActive.Dec()
}
func (c *Collector) IncSubscribed()            { c.subscribed.Inc() }
func (c *Collector) IncUnsubscribed()          { c.unsubscribed.Inc() }
func (c *Collector) IncDuplicateSubscription() { c.duplicateSubscription.Inc() }
func (c *Collector) IncBackpressureDropped()   { c.backpressureDropped.Inc() }

// Shared by wsgateway.Metrics and api.Metrics.
func (c *Collector) IncAuthRejected() { c.authRejected.Inc() }

// api.Metrics
func (c *Collector) IncRequest(entity string) { c.requestsByEntity.WithLabelValues(entity).Inc() }
func (c *Collector) IncRateLimited()          { c.rateLimited.Inc() }
func (c *Collector) IncValidationError()      { c.validationErrors.Inc() }
func (c *Collector) IncServerError()          { c.serverErrors.Inc() }

// Sample refreshes the process gauges from a SystemSampler reading. Call
// periodically from a background goroutine (see Collector.Run).
func (c *Collector) Sample(goroutines int, memoryMB, cpuPercent float64) {
	c.goroutines.Set(float64(goroutines))
	c.memoryMB.Set(memoryMB)
	c.cpuPercent.Set(cpuPercent)
}

// Run samples process-level gauges on the given interval until stop is
// closed. One instance belongs to each of cmd/streamer and
// cmd/consumer, started alongside their other long-lived tasks (spec
// §5: "each subsystem runs as a long-lived task").
func (c *Collector) Run(stop <-chan struct{}, interval time.Duration) {
	sampler := NewSystemSampler()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sampler.Update()
			c.Sample(sampler.Goroutines(), sampler.MemoryMB(), sampler.CPUPercent())
		}
	}
}
