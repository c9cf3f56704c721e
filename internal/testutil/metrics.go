package testutil

import (
	"net/http"
	"strings"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/prometheus"
)

// MetricsRecorder is an in-memory prometheus.MetricsCollector.  It counts
// Inc and Observe calls per metric name and label values.
type MetricsRecorder struct {
	mu     sync.Mutex
	counts map[string]float64
}

func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{counts: make(map[string]float64)}
}

// Toolkit returns ToolkitMetrics backed by the recorder.
func (r *MetricsRecorder) Toolkit() *prometheus.ToolkitMetrics {
	return prometheus.NewToolkitMetrics(r)
}

// Count returns the number of increments (counters, gauges) or observations
// (histograms) recorded for name with exactly labels.
func (r *MetricsRecorder) Count(name string, labels ...string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key(name, labels)]
}

func (r *MetricsRecorder) add(name string, labels []string, delta float64) {
	r.mu.Lock()
	r.counts[key(name, labels)] += delta
	r.mu.Unlock()
}

func key(name string, labels []string) string {
	return name + "{" + strings.Join(labels, ",") + "}"
}

func (r *MetricsRecorder) RegisterCounter(name, help string, labels ...string) prometheus.CounterVec {
	return counterVec{r: r, name: name}
}

func (r *MetricsRecorder) RegisterGauge(name, help string, labels ...string) prometheus.GaugeVec {
	return gaugeVec{r: r, name: name}
}

func (r *MetricsRecorder) RegisterHistogram(name, help string, buckets []float64, labels ...string) prometheus.HistogramVec {
	return histogramVec{r: r, name: name}
}

func (r *MetricsRecorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func (r *MetricsRecorder) MustRegister(...prom.Collector) {}

func (r *MetricsRecorder) Unregister(prom.Collector) bool { return true }

type counterVec struct {
	r    *MetricsRecorder
	name string
}

func (v counterVec) WithLabelValues(lvs ...string) prometheus.Counter {
	return recMetric{r: v.r, name: v.name, labels: lvs}
}

type gaugeVec counterVec

func (v gaugeVec) WithLabelValues(lvs ...string) prometheus.Gauge {
	return recMetric{r: v.r, name: v.name, labels: lvs}
}

type histogramVec counterVec

func (v histogramVec) WithLabelValues(lvs ...string) prometheus.Histogram {
	return recMetric{r: v.r, name: v.name, labels: lvs}
}

type recMetric struct {
	r      *MetricsRecorder
	name   string
	labels []string
}

func (m recMetric) Inc()              { m.r.add(m.name, m.labels, 1) }
func (m recMetric) Dec()              { m.r.add(m.name, m.labels, -1) }
func (m recMetric) Add(d float64)     { m.r.add(m.name, m.labels, d) }
func (m recMetric) Set(v float64)     {}
func (m recMetric) Observe(v float64) { m.r.add(m.name, m.labels, 1) }

var _ prometheus.MetricsCollector = (*MetricsRecorder)(nil)
