package molecule

import (
	stderrors "errors"
	"fmt"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// Merger joins two molecules at one R-group site each.  It holds no state of
// its own; the compatibility rule belongs to the engine.
type Merger struct {
	checker CompatibilityChecker
}

// NewMerger returns a Merger that asks checker whether two sites may be joined.
// A nil checker accepts every pair.
func NewMerger(checker CompatibilityChecker) *Merger {
	return &Merger{checker: checker}
}

// Merge removes the placeholders of siteA and siteB and bonds the atoms that
// carried them.  a and b may be the same handle, which closes a ring.
//
// The result is a new molecule.  On success siteA is marked consumed on a and
// siteB on b; on failure neither input changes.
func (mg *Merger) Merge(a *Molecule, siteA *AttachmentPoint, b *Molecule, siteB *AttachmentPoint) (*Molecule, error) {
	if a == nil || b == nil {
		return nil, errors.InvalidParam("merge needs two molecules")
	}
	if err := checkOwnership(a, siteA); err != nil {
		return nil, err
	}
	if err := checkOwnership(b, siteB); err != nil {
		return nil, err
	}
	self := a == b
	if self && siteA == siteB {
		return nil, errors.RGroupConsumed(siteA.index).WithDetail("site resolved twice in one merge")
	}
	if siteA.Consumed() {
		return nil, errors.RGroupConsumed(siteA.index).WithDetail("molecule " + string(a.id))
	}
	if siteB.Consumed() {
		return nil, errors.RGroupConsumed(siteB.index).WithDetail("molecule " + string(b.id))
	}

	if mg.checker != nil {
		if err := mg.checker.CheckCompatible(siteA, siteB); err != nil {
			return nil, asIncompatible(err, siteA, siteB)
		}
	}

	result, err := join(a, siteA, b, siteB)
	if err != nil {
		return nil, err
	}

	if err := commit(a, siteA, b, siteB); err != nil {
		return nil, err
	}
	return result, nil
}

func checkOwnership(m *Molecule, site *AttachmentPoint) error {
	if site == nil {
		return errors.New(errors.ErrCodeRGroupNotFound, "R-group site is missing").WithDetail("molecule " + string(m.id))
	}
	if site.owner != m {
		return errors.RGroupNotFound(site.index).WithDetail("site belongs to another molecule")
	}
	return nil
}

func asIncompatible(err error, siteA, siteB *AttachmentPoint) error {
	var ae *errors.AppError
	if stderrors.As(err, &ae) && ae.Code == errors.ErrCodeRGroupIncompatible {
		return err
	}
	return errors.RGroupIncompatible(siteA.index, siteB.index).WithCause(err)
}

// join builds the merged graph without touching either input.
func join(a *Molecule, siteA *AttachmentPoint, b *Molecule, siteB *AttachmentPoint) (*Molecule, error) {
	self := a == b
	nA, nB := siteA.BondedAtom(), siteB.BondedAtom()
	bondA, _ := a.BondBetween(siteA.atom, nA)
	bondB, _ := b.BondBetween(siteB.atom, nB)

	switch {
	case nA < 0 || nB < 0:
		return nil, errors.RGroupIncompatible(siteA.index, siteB.index).WithDetail("placeholder is not bonded")
	case self && nA == nB:
		return nil, errors.RGroupIncompatible(siteA.index, siteB.index).WithDetail("both sites sit on the same atom")
	case bondA.Order != bondB.Order:
		return nil, errors.RGroupIncompatible(siteA.index, siteB.index).
			WithDetail(fmt.Sprintf("bond orders differ (%s, %s)", bondA.Order, bondB.Order))
	}
	if self {
		if _, bonded := a.BondBetween(nA, nB); bonded {
			return nil, errors.RGroupIncompatible(siteA.index, siteB.index).WithDetail("atoms are already bonded")
		}
	}

	atoms := a.Atoms()
	bonds := a.Bonds()
	offset := 0
	if !self {
		offset = len(atoms)
		for _, at := range b.Atoms() {
			for i, n := range at.Neighbors {
				if n != ImplicitH {
					at.Neighbors[i] = n + offset
				}
			}
			atoms = append(atoms, at)
		}
		for _, bd := range b.Bonds() {
			bonds = append(bonds, Bond{From: bd.From + offset, To: bd.To + offset, Order: bd.Order})
		}
	}
	rA, rB := siteA.atom, siteB.atom+offset
	nB += offset

	// The new partner takes the placeholder's slot so stereo tags stay valid.
	replaceNeighbor(atoms[nA].Neighbors, rA, nB)
	replaceNeighbor(atoms[nB].Neighbors, rB, nA)

	kept := bonds[:0:0]
	for _, bd := range bonds {
		if bd.From == rA || bd.To == rA || bd.From == rB || bd.To == rB {
			continue
		}
		kept = append(kept, bd)
	}
	kept = append(kept, Bond{From: nA, To: nB, Order: bondA.Order})

	remap := make([]int, len(atoms))
	compact := make([]Atom, 0, len(atoms)-2)
	for i, at := range atoms {
		if i == rA || i == rB {
			remap[i] = -1
			continue
		}
		remap[i] = len(compact)
		compact = append(compact, at)
	}
	for i := range compact {
		for j, n := range compact[i].Neighbors {
			if n != ImplicitH {
				compact[i].Neighbors[j] = remap[n]
			}
		}
	}
	for i := range kept {
		kept[i].From = remap[kept[i].From]
		kept[i].To = remap[kept[i].To]
	}

	result := &Molecule{
		id:          common.NewID(),
		atoms:       compact,
		bonds:       kept,
		attachments: a.attachments.CloneList(),
	}
	if !self {
		result.attachments.AddAll(b.attachments)
	}

	used := map[int]bool{}
	maxIndex := 0
	add := func(src *AttachmentPoint, shift, idx int) {
		used[idx] = true
		if idx > maxIndex {
			maxIndex = idx
		}
		site := &AttachmentPoint{
			index:     idx,
			origIndex: src.origIndex,
			atom:      remap[src.atom+shift],
			owner:     result,
			state:     src.State(),
		}
		if src.attachment != nil {
			att := *src.attachment
			site.attachment = &att
		}
		result.atoms[site.atom].Label = "_" + RLabel(idx)
		result.sites = append(result.sites, site)
	}
	for _, s := range a.sites {
		if s != siteA && s != siteB {
			add(s, 0, s.index)
		}
	}
	if !self {
		// Only indices of b that collide with a's move, to the first index
		// above everything either side still holds.
		next := maxIndex
		for _, s := range b.sites {
			if s != siteB && s.index > next {
				next = s.index
			}
		}
		for _, s := range b.sites {
			if s == siteB {
				continue
			}
			idx := s.index
			if used[idx] {
				next++
				idx = next
			}
			add(s, offset, idx)
		}
	}
	sortSites(result.sites)
	return result, nil
}

func replaceNeighbor(order []int, old, repl int) {
	for i, n := range order {
		if n == old {
			order[i] = repl
			return
		}
	}
}

// commit marks both sites consumed under the owners' locks, re-checking the
// state so that two concurrent merges cannot both consume one site.
func commit(a *Molecule, siteA *AttachmentPoint, b *Molecule, siteB *AttachmentPoint) error {
	first, second := a, b
	if a != b && b.id < a.id {
		first, second = b, a
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if second != first {
		second.mu.Lock()
		defer second.mu.Unlock()
	}

	if siteA.state == SiteConsumed {
		return errors.RGroupConsumed(siteA.index).WithDetail("molecule " + string(a.id))
	}
	if siteB.state == SiteConsumed {
		return errors.RGroupConsumed(siteB.index).WithDetail("molecule " + string(b.id))
	}
	siteA.state = SiteConsumed
	siteB.state = SiteConsumed
	return nil
}
