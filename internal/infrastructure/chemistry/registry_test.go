package chemistry

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

type stubEngine struct {
	molecule.Manipulator
	name string
}

func (s stubEngine) Name() string { return s.name }

func TestRegister_BuildAndNames(t *testing.T) {
	Register("stub-b", func(cfg Config, _ logging.Logger) (molecule.Manipulator, error) {
		return stubEngine{name: cfg.Name + ":" + cfg.Options["flavour"]}, nil
	})
	Register("stub-a", func(Config, logging.Logger) (molecule.Manipulator, error) {
		return stubEngine{name: "a"}, nil
	})
	t.Cleanup(func() {
		unregister("stub-a")
		unregister("stub-b")
	})

	names := Names()
	assert.Subset(t, names, []string{"stub-a", "stub-b"})
	assert.IsIncreasing(t, names)

	m, err := Build(Config{Name: "stub-b", Options: map[string]string{"flavour": "x"}}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "stub-b:x", m.Name())
}

func TestRegister_Panics(t *testing.T) {
	assert.Panics(t, func() { Register("", nil) })

	Register("stub-dup", func(Config, logging.Logger) (molecule.Manipulator, error) { return stubEngine{}, nil })
	t.Cleanup(func() { unregister("stub-dup") })
	assert.Panics(t, func() {
		Register("stub-dup", func(Config, logging.Logger) (molecule.Manipulator, error) { return stubEngine{}, nil })
	})
}

func TestBuild_Unknown(t *testing.T) {
	_, err := Build(Config{Name: "no-such-engine"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeManipulatorUnknown))
}

func TestBuild_FactoryError(t *testing.T) {
	Register("stub-broken", func(Config, logging.Logger) (molecule.Manipulator, error) {
		return nil, stderrors.New("licence missing")
	})
	t.Cleanup(func() { unregister("stub-broken") })

	_, err := Build(Config{Name: "stub-broken"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeManipulatorUnknown))
	assert.EqualError(t, stderrors.Unwrap(err), "licence missing")
}
