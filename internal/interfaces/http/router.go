// Package http is the REST surface of the toolkit.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/prometheus"
	"github.com/ClairePA/ChemistryToolkit/internal/interfaces/http/handlers"
	"github.com/ClairePA/ChemistryToolkit/internal/interfaces/http/middleware"
)

type RouterConfig struct {
	MoleculeHandler *handlers.MoleculeHandler
	HealthHandler   *handlers.HealthHandler

	// CORSOrigins enables CORS for the listed origins when non-empty.
	CORSOrigins []string
	// MaxBodySize caps request bodies; zero leaves them uncapped.
	MaxBodySize int64

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.ToolkitMetrics
	MetricsPath      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.RequestLogging(cfg.Logger.Named("http"), middleware.DefaultLoggingConfig()))
	r.Use(chimw.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.CORSOrigins
		r.Use(middleware.CORS(cors))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodySize))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(chimw.AllowContentType("application/json"))
		registerMoleculeRoutes(api, cfg.MoleculeHandler)
		registerFragmentRoutes(api, cfg.MoleculeHandler)
	})

	return r
}

func registerMoleculeRoutes(r chi.Router, h *handlers.MoleculeHandler) {
	if h == nil {
		return
	}
	r.Get("/engine", h.Engine)
	r.Route("/molecules", func(mr chi.Router) {
		mr.Post("/validate", h.Validate)
		mr.Post("/canonicalize", h.Canonicalize)
		mr.Post("/info", h.Info)
		mr.Post("/molfile", h.ToMolfile)
		mr.Post("/molfile/parse", h.FromMolfile)
		mr.Post("/merge", h.Merge)
		mr.Post("/cap", h.Cap)
		mr.Post("/export", h.Export)
		mr.Get("/lineage", h.Lineage)
	})
}

func registerFragmentRoutes(r chi.Router, h *handlers.MoleculeHandler) {
	if h == nil {
		return
	}
	r.Route("/fragments", func(fr chi.Router) {
		fr.Get("/", h.ListFragments)
		fr.Post("/", h.CreateFragment)
		fr.Get("/{ref}", h.GetFragment)
		fr.Delete("/{ref}", h.DeleteFragment)
	})
}
