package molecule

import (
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// CapOpenSites replaces every open site of m that has an attachment with the
// attachment's cap fragment.  Each cap is applied by merging m with a fragment
// parsed from Attachment.Notation.  Sites without an attachment stay open.
//
// m itself is not modified; the work is done on a clone.
func CapOpenSites(p MoleculeProvider, mg *Merger, m *Molecule) (*Molecule, error) {
	if m == nil {
		return nil, errors.InvalidParam("cap needs a molecule")
	}
	cur := m.Clone()
	for _, open := range m.OpenSites() {
		att, ok := open.Attachment()
		if !ok {
			continue
		}
		site, err := p.RGroupAtom(cur, open.Index(), true)
		if err != nil {
			return nil, err
		}
		frag, err := p.Molecule(att.Notation, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeAttachmentInvalid, "cap fragment does not parse").
				WithDetail("attachment " + att.ID)
		}
		fragSite, err := capSite(p, frag, att)
		if err != nil {
			return nil, err
		}
		next, err := mg.Merge(cur, site, frag, fragSite)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// capSite finds the placeholder of a cap fragment: the site with the
// attachment's own index, or the only site if the fragment has one.
func capSite(p MoleculeProvider, frag *Molecule, att Attachment) (*AttachmentPoint, error) {
	site, err := p.RGroupAtom(frag, att.Index(), false)
	if err != nil {
		return nil, err
	}
	if site != nil {
		return site, nil
	}
	if sites := frag.Sites(); len(sites) == 1 {
		return sites[0], nil
	}
	return nil, errors.New(errors.ErrCodeAttachmentInvalid, "cap fragment has no matching placeholder").
		WithDetail("attachment " + att.ID)
}
