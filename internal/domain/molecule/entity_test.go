package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

func TestBuilder_AddBondErrors(t *testing.T) {
	b := NewBuilder()
	b.AddAtom(Atom{Symbol: "C"})
	b.AddAtom(Atom{Symbol: "O"})

	assert.True(t, errors.IsCode(b.AddBond(0, 2, BondSingle), errors.ErrCodeNotation))
	assert.True(t, errors.IsCode(b.AddBond(1, 1, BondSingle), errors.ErrCodeNotation))
	require.NoError(t, b.AddBond(0, 1, BondSingle))
	assert.True(t, errors.IsCode(b.AddBond(1, 0, BondDouble), errors.ErrCodeNotation))
	assert.Equal(t, 2, b.AtomCount())
}

func TestBuilder_BuildErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
	}{
		{"duplicate label", func(b *Builder) {
			b.AddAtom(Atom{Symbol: "*", Label: "_R1"})
			b.AddAtom(Atom{Symbol: "C"})
			b.AddAtom(Atom{Symbol: "*", Label: "_R1"})
			_ = b.AddBond(0, 1, BondSingle)
			_ = b.AddBond(1, 2, BondSingle)
		}},
		{"unbonded placeholder", func(b *Builder) {
			b.AddAtom(Atom{Symbol: "*", Label: "_R1"})
			b.AddAtom(Atom{Symbol: "C"})
		}},
		{"placeholder with two bonds", func(b *Builder) {
			b.AddAtom(Atom{Symbol: "C"})
			b.AddAtom(Atom{Symbol: "*", Label: "_R1"})
			b.AddAtom(Atom{Symbol: "C"})
			_ = b.AddBond(0, 1, BondSingle)
			_ = b.AddBond(1, 2, BondSingle)
		}},
		{"stereo with two neighbours", func(b *Builder) {
			b.AddAtom(Atom{Symbol: "C"})
			b.AddAtom(Atom{Symbol: "C", Bracket: true, HCount: 2, Chirality: ChiralityCW})
			b.AddAtom(Atom{Symbol: "C"})
			_ = b.AddBond(0, 1, BondSingle)
			_ = b.AddBond(1, 2, BondSingle)
		}},
		{"neighbour order mismatch", func(b *Builder) {
			b.AddAtom(Atom{Symbol: "C"})
			b.AddAtom(Atom{Symbol: "C"})
			_ = b.AddBond(0, 1, BondSingle)
			b.SetNeighbors(0, []int{1, 1})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			_, err := b.Build("x", nil)
			assert.True(t, errors.IsCode(err, errors.ErrCodeNotation), err)
		})
	}
}

func TestBuilder_ResolvesSitesAndAttachments(t *testing.T) {
	atts := NewAttachmentList(Attachment{ID: "R2-OH", Label: "R2", CapGroup: "OH", Notation: "O[*] |$;_R2$|"})
	m := chain(t, 2, 2, 1, atts)

	require.Len(t, m.Sites(), 2)
	assert.Equal(t, 1, m.Sites()[0].Index(), "sites are ordered by index")

	r2 := site(t, m, 2)
	assert.Equal(t, 0, r2.Atom())
	assert.Equal(t, 1, r2.BondedAtom())
	assert.Same(t, m, r2.Molecule())
	att, ok := r2.Attachment()
	require.True(t, ok)
	assert.Equal(t, "R2-OH", att.ID)
	_, ok = site(t, m, 1).Attachment()
	assert.False(t, ok)
	assert.Equal(t, "", site(t, m, 1).CapGroup())

	s, ok := m.SiteForAtom(3)
	require.True(t, ok)
	assert.Equal(t, "R1", s.Label())
	_, ok = m.SiteForAtom(1)
	assert.False(t, ok)
}

func TestBuilder_UnlabelledPlaceholderHasNoSite(t *testing.T) {
	b := NewBuilder()
	b.AddAtom(Atom{Symbol: "*"})
	b.AddAtom(Atom{Symbol: "C"})
	require.NoError(t, b.AddBond(0, 1, BondSingle))
	m, err := b.Build("*C", nil)
	require.NoError(t, err)
	assert.Empty(t, m.Sites())
	assert.Equal(t, "*C", m.Notation())
}

func TestBuilder_DefaultNeighbourOrder(t *testing.T) {
	b := NewBuilder()
	b.AddAtom(Atom{Symbol: "F"})
	b.AddAtom(Atom{Symbol: "C", Bracket: true, HCount: 1, Chirality: ChiralityCW})
	b.AddAtom(Atom{Symbol: "Cl"})
	b.AddAtom(Atom{Symbol: "Br"})
	require.NoError(t, b.AddBond(0, 1, BondSingle))
	require.NoError(t, b.AddBond(1, 2, BondSingle))
	require.NoError(t, b.AddBond(1, 3, BondSingle))
	m, err := b.Build("", nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2, 3, ImplicitH}, m.Atom(1).Neighbors)
	assert.Len(t, m.BondsOf(1), 3)
}

func TestMolecule_AccessorsReturnCopies(t *testing.T) {
	m := chain(t, 2, 1, 2, nil)
	atoms := m.Atoms()
	atoms[1].Symbol = "N"
	atoms[1].Neighbors[0] = 99
	bonds := m.Bonds()
	bonds[0].Order = BondTriple

	assert.Equal(t, "C", m.Atom(1).Symbol)
	assert.NotEqual(t, 99, m.Atom(1).Neighbors[0])
	assert.Equal(t, BondSingle, m.Bonds()[0].Order)
}

func TestChiralityAndBondOrder(t *testing.T) {
	assert.Equal(t, ChiralityCW, ChiralityCCW.Invert())
	assert.Equal(t, ChiralityCCW, ChiralityCW.Invert())
	assert.Equal(t, ChiralityNone, ChiralityNone.Invert())

	assert.Equal(t, 1, BondAromatic.Valence())
	assert.Equal(t, 3, BondTriple.Valence())
	assert.Equal(t, "double", BondDouble.String())
	assert.Equal(t, "BondOrder(9)", BondOrder(9).String())

	assert.Equal(t, 2, Bond{From: 1, To: 2}.Other(1))
	assert.Equal(t, 1, Bond{From: 1, To: 2}.Other(2))
}
