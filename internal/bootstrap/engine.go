package bootstrap

import (
	"github.com/ClairePA/ChemistryToolkit/internal/config"
	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/chemistry"
	_ "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/chemistry/builtin"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/prometheus"
)

// Engine builds the manipulator selected by toolkit.manipulator.
func Engine(cfg config.ToolkitConfig, logger logging.Logger) (domainMol.Manipulator, error) {
	return chemistry.Build(chemistry.Config{Name: cfg.Manipulator, Options: cfg.Options}, logger)
}

// Metrics creates the registry of one binary.  With metrics disabled both
// results are nil and recording is a no-op.
func Metrics(cfg config.MetricsConfig, subsystem string, logger logging.Logger) (prometheus.MetricsCollector, *prometheus.ToolkitMetrics, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		Subsystem:            subsystem,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return c, prometheus.NewToolkitMetrics(c), nil
}
