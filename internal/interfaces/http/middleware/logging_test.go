package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/internal/testutil"
)

func TestRequestLogging_LevelByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
		msg    string
	}{
		{"ok", http.StatusOK, "info", "request completed"},
		{"client error", http.StatusNotFound, "warn", "request rejected"},
		{"server error", http.StatusInternalServerError, "error", "request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := testutil.NewMockLogger()
			h := RequestLogging(log, DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/molecules/merge", nil))

			entries := log.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, tt.msg, entries[0].Message)
			assert.True(t, log.HasField("status", tt.status))
		})
	}
}

func TestRequestLogging_SkipsHealthChecks(t *testing.T) {
	log := testutil.NewMockLogger()
	h := RequestLogging(log, DefaultLoggingConfig())(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, log.Entries())
}

func TestMetrics_NilIsPassThrough(t *testing.T) {
	w := httptest.NewRecorder()
	Metrics(nil)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := testutil.NewMetricsRecorder()
	r := chi.NewRouter()
	r.Use(Metrics(rec.Toolkit()))
	r.Get("/api/v1/fragments/{ref}", func(w http.ResponseWriter, r *http.Request) {})

	for _, ref := range []string{"benzene", "ribose"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/fragments/"+ref, nil))
	}
	assert.Equal(t, float64(2), rec.Count("http_requests_total", "GET", "/api/v1/fragments/{ref}", "200"))
	assert.Equal(t, float64(0), rec.Count("http_in_flight_requests"))
}
