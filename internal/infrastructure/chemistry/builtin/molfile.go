package builtin

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// nowFunc stamps the molfile header line.
var nowFunc = time.Now

const molfileProgram = "CTK"

// writeMolfile renders m as an MDL V2000 connection table with zero
// coordinates.  Site placeholders become R# atoms listed in M  RGP.
func writeMolfile(m *molecule.Molecule, name string) string {
	atoms := m.Atoms()
	bonds := m.Bonds()

	chiral := 0
	for _, a := range atoms {
		if a.Chirality != molecule.ChiralityNone {
			chiral = 1
			break
		}
	}

	var sb strings.Builder
	sb.WriteString(name + "\n")
	fmt.Fprintf(&sb, "  %-8s%s2D\n", molfileProgram, nowFunc().UTC().Format("0102061504"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%3d%3d  0  0%3d  0  0  0  0  0999 V2000\n", len(atoms), len(bonds), chiral)

	var chg, iso, rgp [][2]int
	for i, a := range atoms {
		sym := a.Symbol
		if site, ok := m.SiteForAtom(i); ok {
			sym = "R#"
			rgp = append(rgp, [2]int{i + 1, site.Index()})
		}
		hhh := 0
		if a.Bracket && !a.IsPlaceholder() {
			hhh = a.HCount + 1
		}
		fmt.Fprintf(&sb, "%10.4f%10.4f%10.4f %-3s%2d%3d%3d%3d  0  0  0  0  0  0  0  0\n",
			0.0, 0.0, 0.0, sym, 0, 0, molfileParity(a), hhh)
		if a.Charge != 0 {
			chg = append(chg, [2]int{i + 1, a.Charge})
		}
		if a.Isotope != 0 {
			iso = append(iso, [2]int{i + 1, a.Isotope})
		}
	}
	for _, b := range bonds {
		fmt.Fprintf(&sb, "%3d%3d%3d  0\n", b.From+1, b.To+1, int(b.Order))
	}
	writeProperty(&sb, "CHG", chg)
	writeProperty(&sb, "ISO", iso)
	writeProperty(&sb, "RGP", rgp)
	sb.WriteString("M  END\n")
	return sb.String()
}

func writeProperty(sb *strings.Builder, tag string, entries [][2]int) {
	for len(entries) > 0 {
		n := len(entries)
		if n > 8 {
			n = 8
		}
		fmt.Fprintf(sb, "M  %s%3d", tag, n)
		for _, e := range entries[:n] {
			fmt.Fprintf(sb, "%4d%4d", e[0], e[1])
		}
		sb.WriteString("\n")
		entries = entries[n:]
	}
}

// molfileOrder is the neighbour order the parity column refers to: ascending
// atom number with the implicit hydrogen last.
func molfileOrder(a molecule.Atom) []int {
	order := make([]int, 0, len(a.Neighbors))
	h := false
	for _, n := range a.Neighbors {
		if n == molecule.ImplicitH {
			h = true
			continue
		}
		order = append(order, n)
	}
	sort.Ints(order)
	if h {
		order = append(order, molecule.ImplicitH)
	}
	return order
}

// molfileParity maps a tetrahedral tag to parity 1 (clockwise) or 2.  Centres
// with three neighbours and no hydrogen have no parity in V2000.
func molfileParity(a molecule.Atom) int {
	if a.Chirality == molecule.ChiralityNone || len(a.Neighbors) != 4 {
		return 0
	}
	if chirality(a, molfileOrder(a)) == molecule.ChiralityCW {
		return 1
	}
	return 2
}

// parseMolfile reads a V2000 molfile.  R# atoms become placeholders labelled
// from M  RGP; unlisted R# atoms stay unlabelled.
func parseMolfile(text string) (*molecule.Builder, error) {
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if len(lines) < 4 {
		return nil, errors.Notation("molfile is truncated").WithDetail("missing counts line")
	}
	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return nil, errors.Notation("V3000 molfiles are not supported")
	}
	nAtoms, err1 := strconv.Atoi(strings.TrimSpace(field(counts, 0, 3)))
	nBonds, err2 := strconv.Atoi(strings.TrimSpace(field(counts, 3, 6)))
	if err1 != nil || err2 != nil {
		return nil, errors.Notation("bad molfile counts line").WithDetail(counts)
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, errors.Notation("molfile is truncated").
			WithDetail(fmt.Sprintf("expected %d atom and %d bond lines", nAtoms, nBonds))
	}

	atoms := make([]molecule.Atom, nAtoms)
	parity := make([]int, nAtoms)
	for i := 0; i < nAtoms; i++ {
		line := lines[4+i]
		sym := strings.TrimSpace(field(line, 31, 34))
		switch {
		case sym == "R#" || sym == "*" || sym == "R":
			atoms[i] = molecule.Atom{Symbol: "*"}
		case molecule.KnownElement(sym):
			atoms[i] = molecule.Atom{Symbol: sym}
		default:
			return nil, errors.Notation("unknown element in molfile").WithDetail(fmt.Sprintf("atom %d: %q", i+1, sym))
		}
		atoms[i].Charge = legacyCharge(atoi(field(line, 36, 39)))
		parity[i] = atoi(field(line, 39, 42))
		if hhh := atoi(field(line, 42, 45)); hhh > 0 {
			atoms[i].Bracket = true
			atoms[i].HCount = hhh - 1
		}
	}

	type rawBond struct{ from, to, order int }
	bonds := make([]rawBond, 0, nBonds)
	for i := 0; i < nBonds; i++ {
		line := lines[4+nAtoms+i]
		rb := rawBond{atoi(field(line, 0, 3)) - 1, atoi(field(line, 3, 6)) - 1, atoi(field(line, 6, 9))}
		if rb.order < 1 || rb.order > 4 {
			return nil, errors.Notation("unsupported molfile bond type").WithDetail(fmt.Sprintf("bond %d: type %d", i+1, rb.order))
		}
		if rb.from < 0 || rb.to < 0 || rb.from >= nAtoms || rb.to >= nAtoms {
			return nil, errors.Notation("molfile bond references a missing atom").WithDetail(line)
		}
		if rb.order == int(molecule.BondAromatic) {
			atoms[rb.from].Aromatic = true
			atoms[rb.to].Aromatic = true
		}
		bonds = append(bonds, rb)
	}

	chgSeen := false
	for _, line := range lines[4+nAtoms+nBonds:] {
		if strings.HasPrefix(line, "M  END") {
			break
		}
		if !strings.HasPrefix(line, "M  ") || len(line) < 9 {
			continue
		}
		tag := line[3:6]
		pairs, err := propertyPairs(line)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			idx := p[0] - 1
			if idx < 0 || idx >= nAtoms {
				return nil, errors.Notation("molfile property references a missing atom").WithDetail(line)
			}
			switch tag {
			case "CHG":
				if !chgSeen {
					// The first M  CHG line resets every atom-block charge.
					for i := range atoms {
						atoms[i].Charge = 0
					}
					chgSeen = true
				}
				atoms[idx].Charge = p[1]
			case "ISO":
				atoms[idx].Isotope = p[1]
			case "RGP":
				if !atoms[idx].IsPlaceholder() {
					return nil, errors.Notation("M  RGP on a non-R# atom").WithDetail(line)
				}
				atoms[idx].Label = "_" + molecule.RLabel(p[1])
			}
		}
	}

	adj := make([][]int, nAtoms)
	for _, rb := range bonds {
		adj[rb.from] = append(adj[rb.from], rb.to)
		adj[rb.to] = append(adj[rb.to], rb.from)
	}
	for i, p := range parity {
		if p != 1 && p != 2 {
			continue
		}
		order := append([]int(nil), adj[i]...)
		sort.Ints(order)
		if atoms[i].Bracket && atoms[i].HCount == 1 {
			order = append(order, molecule.ImplicitH)
		}
		if len(order) != 4 {
			continue
		}
		atoms[i].Chirality = molecule.ChiralityCCW
		if p == 1 {
			atoms[i].Chirality = molecule.ChiralityCW
		}
		atoms[i].Neighbors = order
		atoms[i].Bracket = true
	}

	b := molecule.NewBuilder()
	for _, a := range atoms {
		b.AddAtom(a)
	}
	for _, rb := range bonds {
		if err := b.AddBond(rb.from, rb.to, molecule.BondOrder(rb.order)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func field(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// legacyCharge decodes the atom-block charge column.
func legacyCharge(code int) int {
	switch code {
	case 1:
		return 3
	case 2:
		return 2
	case 3:
		return 1
	case 5:
		return -1
	case 6:
		return -2
	case 7:
		return -3
	default:
		return 0
	}
}

// propertyPairs reads the "nn8 aaa vvv ..." tail of an M  CHG style line.
func propertyPairs(line string) ([][2]int, error) {
	n := atoi(field(line, 6, 9))
	out := make([][2]int, 0, n)
	for k := 0; k < n; k++ {
		off := 9 + k*8
		if off+8 > len(line) {
			return nil, errors.Notation("short molfile property line").WithDetail(line)
		}
		out = append(out, [2]int{atoi(line[off : off+4]), atoi(line[off+4 : off+8])})
	}
	return out, nil
}
