// Package admin serves the operational endpoints of background processes:
// liveness, readiness, Prometheus metrics and consumer statistics.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/internal/interfaces/http/handlers"
)

// StatsFunc reports how many events were handled and how many failed.
type StatsFunc func() (processed, failed int64)

// Config wires the admin router.  Nil fields disable their endpoints.
type Config struct {
	Version string

	// Health answers /healthz and /readyz.
	Health *handlers.HealthHandler

	// Metrics is served at MetricsPath, "/metrics" when empty.
	Metrics     http.Handler
	MetricsPath string

	// Stats backs GET /stats.
	Stats StatsFunc

	Logger logging.Logger
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Version   string  `json:"version"`
	Processed int64   `json:"processed"`
	Failed    int64   `json:"failed"`
	ErrorRate float64 `json:"error_rate"`
	Uptime    string  `json:"uptime"`
}

// NewRouter builds the gin engine behind the worker's admin port.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(cfg.Logger.Named("admin")))

	if cfg.Health != nil {
		r.GET("/healthz", gin.WrapF(cfg.Health.Liveness))
		r.GET("/readyz", gin.WrapF(cfg.Health.Readiness))
	}
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.Metrics))
	}
	if cfg.Stats != nil {
		started := time.Now()
		r.GET("/stats", func(c *gin.Context) {
			processed, failed := cfg.Stats()
			resp := StatsResponse{
				Version:   cfg.Version,
				Processed: processed,
				Failed:    failed,
				Uptime:    time.Since(started).Truncate(time.Second).String(),
			}
			if total := processed + failed; total > 0 {
				resp.ErrorRate = float64(failed) / float64(total)
			}
			c.JSON(http.StatusOK, resp)
		})
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "path": c.Request.URL.Path})
	})
	return r
}

// accessLog logs each request at debug level; health checks hit these endpoints
// every few seconds.
func accessLog(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("admin request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("latency", time.Since(start)),
		)
	}
}
