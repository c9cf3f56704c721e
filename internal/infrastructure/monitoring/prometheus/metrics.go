package prometheus

import (
	"strconv"
	"time"
)

// ToolkitMetrics holds every metric the toolkit binaries export.
type ToolkitMetrics struct {
	MergesTotal         CounterVec
	MergeDuration       HistogramVec
	OperationsTotal     CounterVec
	OperationDuration   HistogramVec
	CacheHitsTotal      CounterVec
	CacheMissesTotal    CounterVec
	EventsPublished     CounterVec
	EventsConsumed      CounterVec
	EventProcessSeconds HistogramVec
	LineageWrites       CounterVec
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPInFlight        GaugeVec
}

var (
	DefaultHTTPBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}
	DefaultChemistBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1}
)

// Merge results used as the "result" label of MergesTotal.
const (
	MergeResultOK           = "ok"
	MergeResultNotFound     = "not_found"
	MergeResultConsumed     = "consumed"
	MergeResultIncompatible = "incompatible"
	MergeResultError        = "error"
)

// NewToolkitMetrics registers the toolkit metrics on collector.
func NewToolkitMetrics(c MetricsCollector) *ToolkitMetrics {
	return &ToolkitMetrics{
		MergesTotal:         c.RegisterCounter("merges_total", "R-group merges by outcome", "engine", "result"),
		MergeDuration:       c.RegisterHistogram("merge_duration_seconds", "R-group merge latency", DefaultChemistBuckets, "engine"),
		OperationsTotal:     c.RegisterCounter("operations_total", "Toolkit operations by outcome", "operation", "status"),
		OperationDuration:   c.RegisterHistogram("operation_duration_seconds", "Toolkit operation latency", DefaultChemistBuckets, "operation"),
		CacheHitsTotal:      c.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMissesTotal:    c.RegisterCounter("cache_misses_total", "Cache misses", "cache"),
		EventsPublished:     c.RegisterCounter("events_published_total", "Events published", "topic", "status"),
		EventsConsumed:      c.RegisterCounter("events_consumed_total", "Events consumed", "topic", "status"),
		EventProcessSeconds: c.RegisterHistogram("event_process_duration_seconds", "Event handler latency", DefaultHTTPBuckets, "topic"),
		LineageWrites:       c.RegisterCounter("lineage_writes_total", "Lineage graph writes", "status"),
		HTTPRequestsTotal:   c.RegisterCounter("http_requests_total", "HTTP requests", "method", "route", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", DefaultHTTPBuckets, "method", "route"),
		HTTPInFlight:        c.RegisterGauge("http_in_flight_requests", "In-flight HTTP requests"),
	}
}

// RecordMerge counts a merge attempt and observes its latency.
func RecordMerge(m *ToolkitMetrics, engine, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.MergesTotal.WithLabelValues(engine, result).Inc()
	m.MergeDuration.WithLabelValues(engine).Observe(d.Seconds())
}

func RecordOperation(m *ToolkitMetrics, op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

func RecordCacheAccess(m *ToolkitMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

func RecordPublish(m *ToolkitMetrics, topic string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(topic, statusOf(err)).Inc()
}

func RecordConsume(m *ToolkitMetrics, topic string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.EventsConsumed.WithLabelValues(topic, statusOf(err)).Inc()
	m.EventProcessSeconds.WithLabelValues(topic).Observe(d.Seconds())
}

func RecordLineageWrite(m *ToolkitMetrics, err error) {
	if m == nil {
		return
	}
	m.LineageWrites.WithLabelValues(statusOf(err)).Inc()
}

func RecordHTTPRequest(m *ToolkitMetrics, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
