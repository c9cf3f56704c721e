package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)

	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableProcessMetrics: true, EnableGoMetrics: true}, nil)
	require.NoError(t, err)
	out := scrape(t, c)
	assert.Contains(t, out, "go_goroutines")
}

func TestRegisterCounter_WithLabels(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("merges", "help", "result").WithLabelValues("ok").Add(3)
	assert.Contains(t, scrape(t, c), `test_unit_merges{result="ok"} 3`)
}

func TestRegisterCounter_GetOrCreate(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup", "help").WithLabelValues().Inc()
	c.RegisterCounter("dup", "help").WithLabelValues().Inc()
	assert.Contains(t, scrape(t, c), "test_unit_dup 2")
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("inflight", "help").WithLabelValues().Set(4)
	c.RegisterHistogram("latency", "help", nil).WithLabelValues().Observe(0.1)

	out := scrape(t, c)
	assert.Contains(t, out, "test_unit_inflight 4")
	assert.Contains(t, out, "test_unit_latency_bucket")
}

func TestRegister_TypeConflictIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("conflict", "help").WithLabelValues().Inc()
	assert.NotPanics(t, func() { c.RegisterGauge("conflict", "help").WithLabelValues().Set(10) })
	assert.Contains(t, scrape(t, c), "# TYPE test_unit_conflict counter")
}

func TestConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("concurrent", "help", "id").WithLabelValues("1").Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrape(t, c), `test_unit_concurrent{id="1"} 32`)
}

func TestMustRegisterAndUnregister(t *testing.T) {
	c := newTestCollector(t)
	pc := prometheus.NewCounter(prometheus.CounterOpts{Name: "custom_total"})
	c.MustRegister(pc)
	pc.Inc()
	assert.Contains(t, scrape(t, c), "custom_total 1")

	assert.True(t, c.Unregister(pc))
	assert.NotContains(t, scrape(t, c), "custom_total")
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	timer := NewTimer(c.RegisterHistogram("timer", "help", nil).WithLabelValues())
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.ObserveDuration(), 5*time.Millisecond)
	assert.Contains(t, scrape(t, c), "test_unit_timer_count 1")

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}
