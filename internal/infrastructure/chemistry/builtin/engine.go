// Package builtin is the default chemistry engine.  It reads a narrow SMILES
// dialect: organic-subset and bracket atoms, "*" placeholders, bonds, branches,
// ring closures, dot-separated components and a CXSMILES "|$...$|" label
// block in which "_R<n>" names the placeholder of site n.  Double-bond
// geometry ("/", "\") is read as plain single bonds and not written back.
//
// Output notation is deterministic for a given molecule but not a
// symmetry-perfect canonical form.
package builtin

import (
	"strings"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/chemistry"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// Name is the registry key of the engine.
const Name = "builtin"

// OptionIncompatibleCaps lists, comma separated, the cap groups that may not
// meet each other in a merge.  Defaults to "OH".
const OptionIncompatibleCaps = "incompatible_caps"

func init() {
	chemistry.Register(Name, func(cfg chemistry.Config, logger logging.Logger) (molecule.Manipulator, error) {
		return New(cfg.Options, logger), nil
	})
}

// Engine implements molecule.Manipulator.  It is safe for concurrent use.
type Engine struct {
	incompatible map[string]bool
	logger       logging.Logger
}

// New builds an Engine.  opts may be nil.
func New(opts map[string]string, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	caps := "OH"
	if v, ok := opts[OptionIncompatibleCaps]; ok {
		caps = v
	}
	e := &Engine{incompatible: map[string]bool{}, logger: logger}
	for _, c := range strings.Split(caps, ",") {
		if c = strings.TrimSpace(c); c != "" {
			e.incompatible[strings.ToUpper(c)] = true
		}
	}
	return e
}

// Name returns "builtin".
func (e *Engine) Name() string { return Name }

// Molecule parses notation and resolves its sites against attachments.
func (e *Engine) Molecule(notation string, attachments *molecule.AttachmentList) (*molecule.Molecule, error) {
	b, err := parseSMILES(notation)
	if err != nil {
		e.logger.Debug("notation rejected", logging.String("notation", notation), logging.Err(err))
		return nil, err
	}
	return b.Build(notation, attachments)
}

// RGroupAtom delegates to the molecule's own site table.
func (e *Engine) RGroupAtom(m *molecule.Molecule, index int, required bool) (*molecule.AttachmentPoint, error) {
	if m == nil {
		return nil, errors.InvalidParam("molecule is nil")
	}
	return m.RGroupAtom(index, required)
}

// Validate reports whether notation builds into a molecule.
func (e *Engine) Validate(notation string) bool {
	b, err := parseSMILES(notation)
	if err != nil {
		return false
	}
	_, err = b.Build(notation, nil)
	return err == nil
}

// CanonicalNotation writes m as SMILES.
func (e *Engine) CanonicalNotation(m *molecule.Molecule) (string, error) {
	if m == nil {
		return "", errors.InvalidParam("molecule is nil")
	}
	if m.AtomCount() == 0 {
		return "", nil
	}
	return writeSMILES(m), nil
}

// CheckCompatible refuses a pair when both sites carry a cap group listed in
// OptionIncompatibleCaps.  Sites without an attachment are always accepted.
func (e *Engine) CheckCompatible(a, b *molecule.AttachmentPoint) error {
	if a == nil || b == nil {
		return errors.InvalidParam("compatibility check needs two sites")
	}
	ca, cb := strings.ToUpper(a.CapGroup()), strings.ToUpper(b.CapGroup())
	if e.incompatible[ca] && e.incompatible[cb] {
		return errors.RGroupIncompatible(a.Index(), b.Index()).
			WithDetail("both termini are " + a.CapGroup() + "-capped")
	}
	return nil
}

// ToMolfile writes m as a V2000 molfile.
func (e *Engine) ToMolfile(m *molecule.Molecule) (string, error) {
	if m == nil {
		return "", errors.InvalidParam("molecule is nil")
	}
	return writeMolfile(m, ""), nil
}

// FromMolfile reads a V2000 molfile.  The notation of the returned molecule is
// its SMILES rendering.
func (e *Engine) FromMolfile(molfile string, attachments *molecule.AttachmentList) (*molecule.Molecule, error) {
	b, err := parseMolfile(molfile)
	if err != nil {
		return nil, err
	}
	m, err := b.Build("", attachments)
	if err != nil {
		return nil, err
	}
	return b.Build(writeSMILES(m), attachments)
}
