package builtin

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// unsetSlot marks a neighbour position reserved by an open ring bond.
const unsetSlot = -2

type ringOpen struct {
	atom     int
	order    molecule.BondOrder
	explicit bool
	slot     int
}

type pendingBond struct {
	from, to int
	order    molecule.BondOrder
	explicit bool
}

// smilesReader parses the SMILES subset described in the package doc.
type smilesReader struct {
	src    string
	pos    int
	labels []string

	atoms []molecule.Atom
	nbrs  [][]int
	bonds []pendingBond

	prev     int
	order    molecule.BondOrder
	explicit bool
	branches []int
	rings    map[int]ringOpen
}

// splitExtension separates "SMILES |ext|" into its two parts.
func splitExtension(notation string) (string, string) {
	notation = strings.TrimSpace(notation)
	i := strings.IndexFunc(notation, unicode.IsSpace)
	if i < 0 {
		return notation, ""
	}
	return notation[:i], strings.TrimSpace(notation[i:])
}

// parseLabels extracts the ";"-separated atom labels of a "$...$" field.
func parseLabels(ext string) ([]string, error) {
	if ext == "" {
		return nil, nil
	}
	if len(ext) < 2 || ext[0] != '|' || ext[len(ext)-1] != '|' {
		return nil, errors.Notation("extension block must be enclosed in |").WithDetail(ext)
	}
	body := ext[1 : len(ext)-1]
	start := strings.IndexByte(body, '$')
	if start < 0 {
		return nil, nil
	}
	end := strings.IndexByte(body[start+1:], '$')
	if end < 0 {
		return nil, errors.Notation("unterminated atom label field").WithDetail(ext)
	}
	return strings.Split(body[start+1:start+1+end], ";"), nil
}

func parseSMILES(notation string) (*molecule.Builder, error) {
	if strings.TrimSpace(notation) == "" {
		return nil, errors.Notation("empty notation")
	}
	smiles, ext := splitExtension(notation)
	labels, err := parseLabels(ext)
	if err != nil {
		return nil, err
	}
	r := &smilesReader{
		src:    smiles,
		labels: labels,
		prev:   -1,
		rings:  map[int]ringOpen{},
	}
	if err := r.run(); err != nil {
		return nil, err
	}
	return r.builder()
}

func (r *smilesReader) fail(msg string) error {
	return errors.Notation(msg).WithDetail(fmt.Sprintf("at position %d in %q", r.pos, r.src))
}

func (r *smilesReader) run() error {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == '(':
			if r.prev < 0 {
				return r.fail("branch without a preceding atom")
			}
			r.branches = append(r.branches, r.prev)
			r.pos++
		case c == ')':
			if len(r.branches) == 0 {
				return r.fail("unbalanced ')'")
			}
			if r.explicit {
				return r.fail("bond symbol before ')'")
			}
			r.prev = r.branches[len(r.branches)-1]
			r.branches = r.branches[:len(r.branches)-1]
			r.pos++
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '/' || c == '\\':
			if r.explicit {
				return r.fail("two bond symbols in a row")
			}
			r.order = bondOrderOf(c)
			r.explicit = true
			r.pos++
		case c == '.':
			if r.explicit {
				return r.fail("bond symbol before '.'")
			}
			r.prev = -1
			r.pos++
		case c >= '0' && c <= '9' || c == '%':
			if err := r.ringBond(); err != nil {
				return err
			}
		default:
			atom, err := r.atom()
			if err != nil {
				return err
			}
			r.addAtom(atom)
		}
	}
	switch {
	case len(r.branches) > 0:
		return r.fail("unbalanced '('")
	case len(r.rings) > 0:
		return r.fail("unclosed ring bond")
	case r.explicit:
		return r.fail("dangling bond symbol")
	case len(r.atoms) == 0:
		return r.fail("no atoms")
	}
	return nil
}

func bondOrderOf(c byte) molecule.BondOrder {
	switch c {
	case '=':
		return molecule.BondDouble
	case '#':
		return molecule.BondTriple
	case ':':
		return molecule.BondAromatic
	default:
		// '/' and '\' carry double-bond geometry, which is not kept.
		return molecule.BondSingle
	}
}

func (r *smilesReader) addAtom(a molecule.Atom) {
	idx := len(r.atoms)
	if idx < len(r.labels) && r.labels[idx] != "" {
		a.Label = r.labels[idx]
	}
	r.atoms = append(r.atoms, a)
	r.nbrs = append(r.nbrs, nil)

	if r.prev >= 0 {
		r.bonds = append(r.bonds, pendingBond{from: r.prev, to: idx, order: r.order, explicit: r.explicit})
		r.nbrs[r.prev] = append(r.nbrs[r.prev], idx)
		r.nbrs[idx] = append(r.nbrs[idx], r.prev)
	}
	// The implicit H of [C@H] follows the preceding atom in stereo order.
	if a.Bracket && a.HCount == 1 && a.Chirality != molecule.ChiralityNone {
		r.nbrs[idx] = append(r.nbrs[idx], molecule.ImplicitH)
	}
	r.prev = idx
	r.order = molecule.BondSingle
	r.explicit = false
}

func (r *smilesReader) ringBond() error {
	if r.prev < 0 {
		return r.fail("ring bond without a preceding atom")
	}
	var num int
	if r.src[r.pos] == '%' {
		if r.pos+2 >= len(r.src) || !isDigit(r.src[r.pos+1]) || !isDigit(r.src[r.pos+2]) {
			return r.fail("'%' must be followed by two digits")
		}
		num, _ = strconv.Atoi(r.src[r.pos+1 : r.pos+3])
		r.pos += 3
	} else {
		num = int(r.src[r.pos] - '0')
		r.pos++
	}

	open, ok := r.rings[num]
	if !ok {
		r.rings[num] = ringOpen{atom: r.prev, order: r.order, explicit: r.explicit, slot: len(r.nbrs[r.prev])}
		r.nbrs[r.prev] = append(r.nbrs[r.prev], unsetSlot)
		r.order, r.explicit = molecule.BondSingle, false
		return nil
	}
	delete(r.rings, num)
	if open.atom == r.prev {
		return r.fail("ring bond closes on its own atom")
	}
	order, explicit := open.order, open.explicit
	if r.explicit {
		if open.explicit && open.order != r.order {
			return r.fail("conflicting ring bond orders")
		}
		order, explicit = r.order, true
	}
	r.bonds = append(r.bonds, pendingBond{from: open.atom, to: r.prev, order: order, explicit: explicit})
	r.nbrs[open.atom][open.slot] = r.prev
	r.nbrs[r.prev] = append(r.nbrs[r.prev], open.atom)
	r.order, r.explicit = molecule.BondSingle, false
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// atom reads one organic-subset atom, '*' or bracket atom.
func (r *smilesReader) atom() (molecule.Atom, error) {
	if r.prev < 0 && r.explicit {
		return molecule.Atom{}, r.fail("bond symbol before the first atom")
	}
	c := r.src[r.pos]
	switch {
	case c == '*':
		r.pos++
		return molecule.Atom{Symbol: "*"}, nil
	case c == '[':
		return r.bracketAtom()
	}

	rest := r.src[r.pos:]
	for _, two := range []string{"Cl", "Br"} {
		if strings.HasPrefix(rest, two) {
			r.pos += 2
			return molecule.Atom{Symbol: two}, nil
		}
	}
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I':
		r.pos++
		return molecule.Atom{Symbol: string(c)}, nil
	case 'b', 'c', 'n', 'o', 'p', 's':
		r.pos++
		return molecule.Atom{Symbol: strings.ToUpper(string(c)), Aromatic: true}, nil
	}
	return molecule.Atom{}, r.fail(fmt.Sprintf("unexpected character %q", c))
}

func (r *smilesReader) bracketAtom() (molecule.Atom, error) {
	end := strings.IndexByte(r.src[r.pos:], ']')
	if end < 0 {
		return molecule.Atom{}, r.fail("unterminated bracket atom")
	}
	body := r.src[r.pos+1 : r.pos+end]
	r.pos += end + 1

	a := molecule.Atom{Bracket: true}
	i := 0
	for i < len(body) && isDigit(body[i]) {
		i++
	}
	if i > 0 {
		a.Isotope, _ = strconv.Atoi(body[:i])
	}

	switch {
	case i < len(body) && body[i] == '*':
		a.Symbol = "*"
		i++
	case i < len(body) && unicode.IsUpper(rune(body[i])):
		sym := body[i : i+1]
		if i+1 < len(body) && unicode.IsLower(rune(body[i+1])) && molecule.KnownElement(body[i:i+2]) {
			sym = body[i : i+2]
		}
		a.Symbol = sym
		i += len(sym)
	case i < len(body) && unicode.IsLower(rune(body[i])):
		sym := strings.ToUpper(body[i : i+1])
		if strings.HasPrefix(body[i:], "se") || strings.HasPrefix(body[i:], "as") {
			sym = strings.ToUpper(body[i:i+1]) + body[i+1:i+2]
		}
		a.Symbol = sym
		a.Aromatic = true
		i += len(sym)
	default:
		return molecule.Atom{}, r.fail("bracket atom without element")
	}
	if a.Symbol != "*" && !molecule.KnownElement(a.Symbol) {
		return molecule.Atom{}, r.fail("unknown element " + a.Symbol)
	}

	if strings.HasPrefix(body[i:], "@@") {
		a.Chirality = molecule.ChiralityCW
		i += 2
	} else if strings.HasPrefix(body[i:], "@") {
		a.Chirality = molecule.ChiralityCCW
		i++
	}

	if i < len(body) && body[i] == 'H' {
		i++
		a.HCount = 1
		if i < len(body) && isDigit(body[i]) {
			a.HCount = int(body[i] - '0')
			i++
		}
	}

	if i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		ch := body[i]
		i++
		n := 1
		switch {
		case i < len(body) && isDigit(body[i]):
			n = int(body[i] - '0')
			i++
		default:
			for i < len(body) && body[i] == ch {
				n++
				i++
			}
		}
		a.Charge = sign * n
	}

	// Atom class: [*:2] names site R2 when no label overrides it.
	if i < len(body) && body[i] == ':' {
		cls, err := strconv.Atoi(body[i+1:])
		if err != nil {
			return molecule.Atom{}, r.fail("bad atom class in [" + body + "]")
		}
		if a.Symbol == "*" && cls > 0 {
			a.Label = "_" + molecule.RLabel(cls)
		}
		i = len(body)
	}
	if i != len(body) {
		return molecule.Atom{}, r.fail("unexpected text in [" + body + "]")
	}
	return a, nil
}

// builder turns the parse result into a molecule.Builder.
func (r *smilesReader) builder() (*molecule.Builder, error) {
	if len(r.labels) > len(r.atoms) {
		return nil, errors.Notation("more atom labels than atoms").
			WithDetail(fmt.Sprintf("%d labels, %d atoms", len(r.labels), len(r.atoms)))
	}
	b := molecule.NewBuilder()
	for _, a := range r.atoms {
		b.AddAtom(a)
	}
	for _, pb := range r.bonds {
		order := pb.order
		if !pb.explicit {
			order = molecule.BondSingle
			if r.atoms[pb.from].Aromatic && r.atoms[pb.to].Aromatic {
				order = molecule.BondAromatic
			}
		}
		if err := b.AddBond(pb.from, pb.to, order); err != nil {
			return nil, err
		}
	}
	for i := range r.atoms {
		b.SetNeighbors(i, r.nbrs[i])
	}
	return b, nil
}
