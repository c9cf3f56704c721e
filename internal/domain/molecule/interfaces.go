package molecule

// MoleculeProvider turns notation into molecule handles.
type MoleculeProvider interface {
	// Molecule parses notation and resolves its R-group sites against
	// attachments.  Malformed input fails with ErrCodeNotation.
	Molecule(notation string, attachments *AttachmentList) (*Molecule, error)

	// RGroupAtom resolves site index on m.  A missing site fails with
	// ErrCodeRGroupNotFound when required and yields (nil, nil) otherwise.
	RGroupAtom(m *Molecule, index int, required bool) (*AttachmentPoint, error)

	// Validate reports whether notation parses.
	Validate(notation string) bool
}

// CanonicalFormWriter serialises a molecule.  Output for an unmodified
// molecule is identical on every call.
type CanonicalFormWriter interface {
	CanonicalNotation(m *Molecule) (string, error)
}

// CompatibilityChecker decides whether two sites may be joined.  A nil error
// means compatible.  Implementations must not call AttachmentPoint.State.
type CompatibilityChecker interface {
	CheckCompatible(a, b *AttachmentPoint) error
}

// MolfileCodec converts between molecules and MDL molfiles.
type MolfileCodec interface {
	ToMolfile(m *Molecule) (string, error)
	FromMolfile(molfile string, attachments *AttachmentList) (*Molecule, error)
}

// Manipulator is the full capability set of a chemistry engine.
type Manipulator interface {
	MoleculeProvider
	CanonicalFormWriter
	CompatibilityChecker
	MolfileCodec

	// Name is the registry key of the engine.
	Name() string
}
