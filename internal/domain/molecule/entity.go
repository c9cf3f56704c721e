// Package molecule holds the structure graph, its R-group attachment sites and
// the merge protocol that joins two fragments at one site each.  Parsing and
// writing notations are engine concerns; engines build molecules through
// Builder and read them back through the accessor methods.
package molecule

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// ImplicitH stands for the implicit hydrogen of a bracket atom such as
// [C@H] inside Atom.Neighbors.
const ImplicitH = -1

// BondOrder is the multiplicity of a bond.
type BondOrder int

const (
	BondSingle   BondOrder = 1
	BondDouble   BondOrder = 2
	BondTriple   BondOrder = 3
	BondAromatic BondOrder = 4
)

// Valence is the number of valence units a bond consumes on each end.
// Aromatic bonds count as one; aromatic atoms add one unit of their own.
func (o BondOrder) Valence() int {
	switch o {
	case BondDouble:
		return 2
	case BondTriple:
		return 3
	default:
		return 1
	}
}

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondAromatic:
		return "aromatic"
	default:
		return fmt.Sprintf("BondOrder(%d)", int(o))
	}
}

// Chirality is the tetrahedral tag of an atom relative to Atom.Neighbors.
type Chirality int

const (
	ChiralityNone Chirality = iota
	// ChiralityCCW: looking from the first neighbour, the rest run
	// anticlockwise ("@").
	ChiralityCCW
	// ChiralityCW is "@@".
	ChiralityCW
)

// Invert swaps CCW and CW.
func (c Chirality) Invert() Chirality {
	switch c {
	case ChiralityCCW:
		return ChiralityCW
	case ChiralityCW:
		return ChiralityCCW
	default:
		return c
	}
}

// Atom is one vertex of the structure graph.
type Atom struct {
	Symbol    string    `json:"symbol"`
	Aromatic  bool      `json:"aromatic,omitempty"`
	Bracket   bool      `json:"bracket,omitempty"`
	Isotope   int       `json:"isotope,omitempty"`
	Charge    int       `json:"charge,omitempty"`
	HCount    int       `json:"h_count,omitempty"`
	Chirality Chirality `json:"chirality,omitempty"`
	// Neighbors is the reference order for Chirality: bonded atom indices and
	// possibly ImplicitH, in the order they were written.
	Neighbors []int `json:"neighbors,omitempty"`
	// Label is the free-text atom label; "_R1" marks the placeholder of site 1.
	Label string `json:"label,omitempty"`
}

// IsPlaceholder reports whether the atom is a "*" dummy atom.
func (a Atom) IsPlaceholder() bool { return a.Symbol == "*" }

func (a Atom) clone() Atom {
	if a.Neighbors != nil {
		a.Neighbors = append([]int(nil), a.Neighbors...)
	}
	return a
}

// Bond is one edge of the structure graph.
type Bond struct {
	From  int       `json:"from"`
	To    int       `json:"to"`
	Order BondOrder `json:"order"`
}

// Other returns the end of the bond that is not i.
func (b Bond) Other(i int) int {
	if b.From == i {
		return b.To
	}
	return b.From
}

// Molecule is a structure graph plus its R-group sites.  The graph is never
// modified after Build; only site states change, and only through a
// successful merge.
type Molecule struct {
	id          common.ID
	notation    string
	atoms       []Atom
	bonds       []Bond
	sites       []*AttachmentPoint
	attachments *AttachmentList

	mu sync.RWMutex
}

// ID returns the molecule's identity, unique per handle.
func (m *Molecule) ID() common.ID { return m.id }

// Notation returns the notation the molecule was built from, empty for merge
// results.
func (m *Molecule) Notation() string { return m.notation }

// AtomCount returns the number of atoms, placeholders included.
func (m *Molecule) AtomCount() int { return len(m.atoms) }

// BondCount returns the number of bonds.
func (m *Molecule) BondCount() int { return len(m.bonds) }

// Atom returns a copy of atom i.
func (m *Molecule) Atom(i int) Atom { return m.atoms[i].clone() }

// Atoms returns copies of all atoms.
func (m *Molecule) Atoms() []Atom {
	out := make([]Atom, len(m.atoms))
	for i, a := range m.atoms {
		out[i] = a.clone()
	}
	return out
}

// Bonds returns a copy of the bond table.
func (m *Molecule) Bonds() []Bond {
	out := make([]Bond, len(m.bonds))
	copy(out, m.bonds)
	return out
}

// BondsOf returns the bonds incident to atom i in table order.
func (m *Molecule) BondsOf(i int) []Bond {
	var out []Bond
	for _, b := range m.bonds {
		if b.From == i || b.To == i {
			out = append(out, b)
		}
	}
	return out
}

// BondBetween returns the bond joining i and j.
func (m *Molecule) BondBetween(i, j int) (Bond, bool) {
	for _, b := range m.bonds {
		if (b.From == i && b.To == j) || (b.From == j && b.To == i) {
			return b, true
		}
	}
	return Bond{}, false
}

// Attachments returns a copy of the molecule's attachment templates.
func (m *Molecule) Attachments() *AttachmentList { return m.attachments.CloneList() }

// Sites returns every R-group site, consumed or not, ordered by index.
func (m *Molecule) Sites() []*AttachmentPoint {
	out := make([]*AttachmentPoint, len(m.sites))
	copy(out, m.sites)
	return out
}

// OpenSites returns the sites still in SiteUnconsumed.
func (m *Molecule) OpenSites() []*AttachmentPoint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*AttachmentPoint
	for _, s := range m.sites {
		if s.state == SiteUnconsumed {
			out = append(out, s)
		}
	}
	return out
}

// SiteForAtom returns the site whose placeholder is atom i.
func (m *Molecule) SiteForAtom(i int) (*AttachmentPoint, bool) {
	for _, s := range m.sites {
		if s.atom == i {
			return s, true
		}
	}
	return nil, false
}

// RGroupAtom looks up the site with the given index.  A missing site is a
// LookupError when required and (nil, nil) otherwise.  Consumed sites are
// returned as-is; Merge rejects them.
func (m *Molecule) RGroupAtom(index int, required bool) (*AttachmentPoint, error) {
	for _, s := range m.sites {
		if s.index == index {
			return s, nil
		}
	}
	if required {
		return nil, errors.RGroupNotFound(index).WithDetail("molecule " + string(m.id))
	}
	return nil, nil
}

// SitesByLabel returns the sites whose original label matches, which after a
// renumbering merge may differ from their index.
func (m *Molecule) SitesByLabel(label string) []*AttachmentPoint {
	idx, ok := ParseRLabel(label)
	if !ok {
		return nil
	}
	var out []*AttachmentPoint
	for _, s := range m.sites {
		if s.origIndex == idx {
			out = append(out, s)
		}
	}
	return out
}

// Builder assembles a Molecule atom by atom.  It is not safe for concurrent use.
type Builder struct {
	atoms []Atom
	bonds []Bond
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// AddAtom appends a and returns its index.
func (b *Builder) AddAtom(a Atom) int {
	b.atoms = append(b.atoms, a.clone())
	return len(b.atoms) - 1
}

// SetNeighbors sets the stereo reference order of atom i.
func (b *Builder) SetNeighbors(i int, neighbors []int) {
	b.atoms[i].Neighbors = append([]int(nil), neighbors...)
}

// AtomCount returns the number of atoms added so far.
func (b *Builder) AtomCount() int { return len(b.atoms) }

// AddBond joins from and to.
func (b *Builder) AddBond(from, to int, order BondOrder) error {
	if from < 0 || to < 0 || from >= len(b.atoms) || to >= len(b.atoms) {
		return errors.Notation("bond references a missing atom").WithDetail(fmt.Sprintf("%d-%d", from, to))
	}
	if from == to {
		return errors.Notation("atom bonded to itself").WithDetail(fmt.Sprintf("atom %d", from))
	}
	for _, bd := range b.bonds {
		if (bd.From == from && bd.To == to) || (bd.From == to && bd.To == from) {
			return errors.Notation("duplicate bond").WithDetail(fmt.Sprintf("%d-%d", from, to))
		}
	}
	b.bonds = append(b.bonds, Bond{From: from, To: to, Order: order})
	return nil
}

// Build validates the graph, resolves R-group sites from placeholder labels
// and returns the Molecule.  attachments is copied, so the caller's list can be
// reused for further molecules without aliasing.
func (b *Builder) Build(notation string, attachments *AttachmentList) (*Molecule, error) {
	m := &Molecule{
		id:          common.NewID(),
		notation:    notation,
		atoms:       make([]Atom, len(b.atoms)),
		bonds:       append([]Bond(nil), b.bonds...),
		attachments: attachments.CloneList(),
	}
	for i, a := range b.atoms {
		m.atoms[i] = a.clone()
	}
	if err := m.finalize(); err != nil {
		return nil, err
	}
	return m, nil
}

// finalize fills default neighbour orders, checks stereo tags and resolves
// sites.  Sites keep their index as original label.
func (m *Molecule) finalize() error {
	adj := make([][]int, len(m.atoms))
	for _, bd := range m.bonds {
		adj[bd.From] = append(adj[bd.From], bd.To)
		adj[bd.To] = append(adj[bd.To], bd.From)
	}

	for i := range m.atoms {
		a := &m.atoms[i]
		if a.Neighbors == nil {
			a.Neighbors = append([]int(nil), adj[i]...)
			if a.Chirality != ChiralityNone && a.HCount == 1 {
				a.Neighbors = append(a.Neighbors, ImplicitH)
			}
		} else if !sameNeighbors(a.Neighbors, adj[i]) {
			return errors.Notation("neighbour order does not match bonds").WithDetail(fmt.Sprintf("atom %d", i))
		}
		if a.Chirality != ChiralityNone && (len(a.Neighbors) < 3 || len(a.Neighbors) > 4) {
			return errors.Notation("tetrahedral centre needs three or four neighbours").
				WithDetail(fmt.Sprintf("atom %d (%s)", i, a.Symbol))
		}
	}

	seen := map[int]bool{}
	for i, a := range m.atoms {
		if !a.IsPlaceholder() {
			continue
		}
		idx, ok := ParseRLabel(a.Label)
		if !ok {
			continue
		}
		if seen[idx] {
			return errors.Notation("duplicate R-group label").WithDetail(RLabel(idx))
		}
		seen[idx] = true
		if len(adj[i]) != 1 {
			return errors.Notation("R-group placeholder must have exactly one bond").WithDetail(RLabel(idx))
		}
		site := &AttachmentPoint{index: idx, origIndex: idx, atom: i, owner: m}
		if att, ok := m.attachments.ByIndex(idx); ok {
			site.attachment = &att
		}
		m.sites = append(m.sites, site)
	}
	sortSites(m.sites)
	return nil
}

func sortSites(sites []*AttachmentPoint) {
	sort.Slice(sites, func(i, j int) bool { return sites[i].index < sites[j].index })
}

// sameNeighbors reports whether order lists exactly the atoms of adj, plus at
// most one ImplicitH.
func sameNeighbors(order, adj []int) bool {
	want := make(map[int]int, len(adj))
	for _, n := range adj {
		want[n]++
	}
	hs := 0
	for _, n := range order {
		if n == ImplicitH {
			hs++
			continue
		}
		if want[n] == 0 {
			return false
		}
		want[n]--
	}
	for _, c := range want {
		if c != 0 {
			return false
		}
	}
	return hs <= 1
}

// Clone returns an independent handle with the same graph, attachments and
// site states, and a new ID.
func (m *Molecule) Clone() *Molecule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := &Molecule{
		id:          common.NewID(),
		notation:    m.notation,
		atoms:       make([]Atom, len(m.atoms)),
		bonds:       append([]Bond(nil), m.bonds...),
		attachments: m.attachments.CloneList(),
	}
	for i, a := range m.atoms {
		c.atoms[i] = a.clone()
	}
	for _, s := range m.sites {
		cs := *s
		cs.owner = c
		if s.attachment != nil {
			att := *s.attachment
			cs.attachment = &att
		}
		c.sites = append(c.sites, &cs)
	}
	return c
}
