package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/internal/interfaces/http/handlers"
	"github.com/ClairePA/ChemistryToolkit/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string { return c.name }
func (c stubChecker) Check(ctx context.Context) error { return c.err }

func serve(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r := NewRouter(Config{
		Version: "1.2.3",
		Health:  handlers.NewHealthHandler("1.2.3", "", stubChecker{name: "neo4j"}),
	})

	w := serve(t, r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":"1.2.3"`)

	w = serve(t, r, "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "neo4j")
}

func TestRouter_ReadinessDown(t *testing.T) {
	r := NewRouter(Config{
		Health: handlers.NewHealthHandler("dev", "", stubChecker{name: "postgres", err: errors.New("refused")}),
	})
	w := serve(t, r, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "refused")
}

func TestRouter_Stats(t *testing.T) {
	r := NewRouter(Config{
		Version: "dev",
		Stats:   func() (int64, int64) { return 9, 1 },
	})
	w := serve(t, r, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var out StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, int64(9), out.Processed)
	assert.Equal(t, int64(1), out.Failed)
	assert.InDelta(t, 0.1, out.ErrorRate, 1e-9)
	assert.Equal(t, "dev", out.Version)
}

func TestRouter_StatsWithoutTraffic(t *testing.T) {
	r := NewRouter(Config{Stats: func() (int64, int64) { return 0, 0 }})
	var out StatsResponse
	require.NoError(t, json.Unmarshal(serve(t, r, "/stats").Body.Bytes(), &out))
	assert.Zero(t, out.ErrorRate)
}

func TestRouter_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ctk_merges_total 3\n"))
	})
	r := NewRouter(Config{Metrics: metrics, MetricsPath: "/internal/metrics"})

	w := serve(t, r, "/internal/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ctk_merges_total 3")
	assert.Equal(t, http.StatusNotFound, serve(t, r, "/metrics").Code)
}

func TestRouter_DisabledEndpointsAndLogging(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := NewRouter(Config{Logger: logger})

	w := serve(t, r, "/healthz")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"path":"/healthz"`)
	assert.Equal(t, http.StatusNotFound, serve(t, r, "/stats").Code)
	assert.True(t, logger.HasMessage("debug", "admin request"))
}
