package molecule

// SiteState is the lifecycle of an attachment point.  The only transition is
// SiteUnconsumed -> SiteConsumed, made by a successful merge.
type SiteState int

const (
	SiteUnconsumed SiteState = iota
	SiteConsumed
)

func (s SiteState) String() string {
	if s == SiteConsumed {
		return "consumed"
	}
	return "unconsumed"
}

// AttachmentPoint is an R-group site of one molecule handle.
type AttachmentPoint struct {
	index     int
	origIndex int
	atom      int
	// attachment is the cap template for this site, nil if none was supplied.
	attachment *Attachment
	owner      *Molecule
	state      SiteState
}

// Index is the R-group number (3 for R3).
func (p *AttachmentPoint) Index() int { return p.index }

// Label returns "R<index>".
func (p *AttachmentPoint) Label() string { return RLabel(p.index) }

// OriginalLabel is the label the site had in its source fragment.  It differs
// from Label only after a merge renumbered a colliding index.
func (p *AttachmentPoint) OriginalLabel() string { return RLabel(p.origIndex) }

// Atom is the index of the placeholder atom.
func (p *AttachmentPoint) Atom() int { return p.atom }

// Molecule returns the handle that owns the site.
func (p *AttachmentPoint) Molecule() *Molecule { return p.owner }

// Attachment returns the cap template of the site.
func (p *AttachmentPoint) Attachment() (Attachment, bool) {
	if p.attachment == nil {
		return Attachment{}, false
	}
	return *p.attachment, true
}

// CapGroup returns the cap group name ("H", "OH"), empty without attachment.
func (p *AttachmentPoint) CapGroup() string {
	if p.attachment == nil {
		return ""
	}
	return p.attachment.CapGroup
}

// State returns the current site state.
func (p *AttachmentPoint) State() SiteState {
	p.owner.mu.RLock()
	defer p.owner.mu.RUnlock()
	return p.state
}

// Consumed is shorthand for State() == SiteConsumed.
func (p *AttachmentPoint) Consumed() bool { return p.State() == SiteConsumed }

// BondedAtom returns the atom the placeholder is attached to.
func (p *AttachmentPoint) BondedAtom() int {
	for _, b := range p.owner.bonds {
		if b.From == p.atom || b.To == p.atom {
			return b.Other(p.atom)
		}
	}
	return -1
}
