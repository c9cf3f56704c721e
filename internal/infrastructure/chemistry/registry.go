// Package chemistry is the engine registry.  Engines register a Factory under
// a name in their package init; binaries select one by the
// toolkit.manipulator configuration key.
package chemistry

import (
	"sort"
	"sync"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// Config is passed to a Factory.
type Config struct {
	Name    string
	Options map[string]string
}

// Factory builds an engine.
type Factory func(cfg Config, logger logging.Logger) (molecule.Manipulator, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes an engine available under name.  It panics if name is empty,
// f is nil or name is already taken.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if name == "" || f == nil {
		panic("chemistry: Register needs a name and a factory")
	}
	if _, dup := factories[name]; dup {
		panic("chemistry: Register called twice for engine " + name)
	}
	factories[name] = f
}

// Build creates the engine registered as cfg.Name.
func Build(cfg Config, logger logging.Logger) (molecule.Manipulator, error) {
	mu.RLock()
	f, ok := factories[cfg.Name]
	mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeManipulatorUnknown, "unknown molecule manipulator").
			WithDetail(cfg.Name)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m, err := f(cfg, logger.Named("chemistry").With(logging.String(logging.FieldEngine, cfg.Name)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeManipulatorUnknown, "engine failed to start")
	}
	return m, nil
}

// Names lists the registered engines in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for n := range factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(factories, name)
}
