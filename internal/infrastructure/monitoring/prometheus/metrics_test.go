package prometheus

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestToolkitMetrics_Record(t *testing.T) {
	c := newTestCollector(t)
	m := NewToolkitMetrics(c)

	RecordMerge(m, "builtin", MergeResultOK, 2*time.Millisecond)
	RecordMerge(m, "builtin", MergeResultIncompatible, time.Millisecond)
	RecordOperation(m, "canonicalize", nil, time.Millisecond)
	RecordOperation(m, "canonicalize", errors.New("boom"), time.Millisecond)
	RecordCacheAccess(m, "canonical", true)
	RecordCacheAccess(m, "canonical", false)
	RecordPublish(m, "ctk.molecule.merged", nil)
	RecordConsume(m, "ctk.molecule.merged", errors.New("boom"), time.Millisecond)
	RecordLineageWrite(m, nil)
	RecordHTTPRequest(m, http.MethodPost, "/api/v1/molecules/merge", 201, time.Millisecond)

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_merges_total{engine="builtin",result="ok"} 1`)
	assert.Contains(t, out, `test_unit_merges_total{engine="builtin",result="incompatible"} 1`)
	assert.Contains(t, out, `test_unit_operations_total{operation="canonicalize",status="error"} 1`)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="canonical"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="canonical"} 1`)
	assert.Contains(t, out, `test_unit_events_published_total{status="ok",topic="ctk.molecule.merged"} 1`)
	assert.Contains(t, out, `test_unit_events_consumed_total{status="error",topic="ctk.molecule.merged"} 1`)
	assert.Contains(t, out, `test_unit_lineage_writes_total{status="ok"} 1`)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",route="/api/v1/molecules/merge",status_code="201"} 1`)
}

func TestToolkitMetrics_NilIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordMerge(nil, "builtin", MergeResultOK, 0)
		RecordOperation(nil, "x", nil, 0)
		RecordCacheAccess(nil, "x", true)
		RecordPublish(nil, "t", nil)
		RecordConsume(nil, "t", nil, 0)
		RecordLineageWrite(nil, nil)
		RecordHTTPRequest(nil, "GET", "/", 200, 0)
	})
}
