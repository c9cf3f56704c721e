package builtin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
)

// rankAtoms computes an extended-connectivity rank per atom.  Equal ranks are
// broken by atom index so the result is a total order.
func rankAtoms(m *molecule.Molecule) []int {
	atoms := m.Atoms()
	n := len(atoms)
	adj := adjacency(m)

	keys := make([]string, n)
	for i, a := range atoms {
		keys[i] = fmt.Sprintf("%03d|%02d|%+d|%d|%t|%03d|%s",
			molecule.AtomicNumber(a.Symbol), len(adj[i]), a.Charge, m.ImplicitHydrogens(i),
			a.Aromatic, a.Isotope, a.Label)
	}
	rank, classes := denseRank(keys)

	for iter := 0; iter < n; iter++ {
		for i := range keys {
			nr := make([]int, 0, len(adj[i]))
			for _, j := range adj[i] {
				nr = append(nr, rank[j])
			}
			sort.Ints(nr)
			keys[i] = fmt.Sprintf("%06d:%v", rank[i], nr)
		}
		next, c := denseRank(keys)
		rank = next
		if c == classes {
			break
		}
		classes = c
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return rank[order[x]] < rank[order[y]] })
	total := make([]int, n)
	for pos, i := range order {
		total[i] = pos
	}
	return total
}

func denseRank(keys []string) ([]int, int) {
	uniq := append([]string(nil), keys...)
	sort.Strings(uniq)
	pos := map[string]int{}
	for _, k := range uniq {
		if _, ok := pos[k]; !ok {
			pos[k] = len(pos)
		}
	}
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = pos[k]
	}
	return out, len(pos)
}

func adjacency(m *molecule.Molecule) [][]int {
	adj := make([][]int, m.AtomCount())
	for _, b := range m.Bonds() {
		adj[b.From] = append(adj[b.From], b.To)
		adj[b.To] = append(adj[b.To], b.From)
	}
	return adj
}

type ringBond struct {
	partner int
	digit   int
	opens   bool
}

// smilesWriter emits one molecule.  It is used once and discarded.
type smilesWriter struct {
	m     *molecule.Molecule
	atoms []molecule.Atom
	adj   [][]int
	rank  []int

	visited  []bool
	parent   []int
	children [][]int
	preorder []int
	seq      int
	closures map[[2]int]bool

	rings  [][]ringBond
	digits map[int]bool
	sb     strings.Builder
	out    []int
}

// writeSMILES renders m as SMILES, adding a "|$...$|" block when any atom
// carries a label.
func writeSMILES(m *molecule.Molecule) string {
	n := m.AtomCount()
	w := &smilesWriter{
		m:        m,
		atoms:    m.Atoms(),
		adj:      adjacency(m),
		rank:     rankAtoms(m),
		visited:  make([]bool, n),
		parent:   make([]int, n),
		children: make([][]int, n),
		preorder: make([]int, n),
		closures: map[[2]int]bool{},
		rings:    make([][]ringBond, n),
		digits:   map[int]bool{},
	}
	for i := range w.adj {
		sort.Slice(w.adj[i], func(x, y int) bool { return w.rank[w.adj[i][x]] < w.rank[w.adj[i][y]] })
	}

	var roots []int
	for _, start := range w.startOrder() {
		if w.visited[start] {
			continue
		}
		w.parent[start] = -1
		w.discover(start)
		roots = append(roots, start)
	}
	w.assignRings()

	for i, root := range roots {
		if i > 0 {
			w.sb.WriteByte('.')
		}
		w.write(root)
	}

	labels := make([]string, len(w.out))
	labelled := false
	for pos, i := range w.out {
		labels[pos] = w.atoms[i].Label
		if labels[pos] != "" {
			labelled = true
		}
	}
	if labelled {
		w.sb.WriteString(" |$")
		w.sb.WriteString(strings.Join(labels, ";"))
		w.sb.WriteString("$|")
	}
	return w.sb.String()
}

// startOrder prefers terminal atoms, then low rank.
func (w *smilesWriter) startOrder() []int {
	order := make([]int, len(w.atoms))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(x, y int) bool {
		a, b := order[x], order[y]
		da, db := len(w.adj[a]), len(w.adj[b])
		if (da <= 1) != (db <= 1) {
			return da <= 1
		}
		return w.rank[a] < w.rank[b]
	})
	return order
}

func (w *smilesWriter) discover(u int) {
	w.visited[u] = true
	w.preorder[u] = w.seq
	w.seq++
	for _, v := range w.adj[u] {
		if v == w.parent[u] {
			continue
		}
		if w.visited[v] {
			key := edgeKey(u, v)
			if !w.isTreeEdge(u, v) && !w.closures[key] {
				w.closures[key] = true
			}
			continue
		}
		w.parent[v] = u
		w.children[u] = append(w.children[u], v)
		w.discover(v)
	}
}

func (w *smilesWriter) isTreeEdge(u, v int) bool {
	return w.parent[v] == u || w.parent[u] == v
}

func edgeKey(u, v int) [2]int {
	if u > v {
		u, v = v, u
	}
	return [2]int{u, v}
}

// assignRings attaches each ring-closure bond to both of its atoms, ordered
// so that the atom written first opens it.
func (w *smilesWriter) assignRings() {
	keys := make([][2]int, 0, len(w.closures))
	for k := range w.closures {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		a, b := k[0], k[1]
		if w.preorder[a] > w.preorder[b] {
			a, b = b, a
		}
		w.rings[a] = append(w.rings[a], ringBond{partner: b, opens: true})
		w.rings[b] = append(w.rings[b], ringBond{partner: a})
	}
	for i := range w.rings {
		rs := w.rings[i]
		sort.Slice(rs, func(x, y int) bool { return w.preorder[rs[x].partner] < w.preorder[rs[y].partner] })
	}
}

func (w *smilesWriter) write(u int) {
	w.out = append(w.out, u)
	order := make([]int, 0, len(w.adj[u])+1)
	if p := w.parent[u]; p >= 0 {
		order = append(order, p)
	}
	if hasImplicitH(w.atoms[u]) {
		order = append(order, molecule.ImplicitH)
	}

	var ringText strings.Builder
	var freed []int
	for i := range w.rings[u] {
		rb := &w.rings[u][i]
		if rb.opens {
			rb.digit = w.takeDigit()
			w.setPartnerDigit(rb.partner, u, rb.digit)
			ringText.WriteString(w.bondSymbol(u, rb.partner))
		} else {
			freed = append(freed, rb.digit)
		}
		ringText.WriteString(digitText(rb.digit))
		order = append(order, rb.partner)
	}
	for _, d := range freed {
		delete(w.digits, d)
	}
	order = append(order, w.children[u]...)

	w.sb.WriteString(w.atomText(u, order))
	w.sb.WriteString(ringText.String())

	for i, c := range w.children[u] {
		branch := i < len(w.children[u])-1
		if branch {
			w.sb.WriteByte('(')
		}
		w.sb.WriteString(w.bondSymbol(u, c))
		w.write(c)
		if branch {
			w.sb.WriteByte(')')
		}
	}
}

func (w *smilesWriter) setPartnerDigit(partner, opener, digit int) {
	for i := range w.rings[partner] {
		if w.rings[partner][i].partner == opener {
			w.rings[partner][i].digit = digit
		}
	}
}

func (w *smilesWriter) takeDigit() int {
	for d := 1; ; d++ {
		if !w.digits[d] {
			w.digits[d] = true
			return d
		}
	}
}

func digitText(d int) string {
	if d < 10 {
		return strconv.Itoa(d)
	}
	return "%" + strconv.Itoa(d)
}

func (w *smilesWriter) bondSymbol(u, v int) string {
	b, _ := w.m.BondBetween(u, v)
	switch b.Order {
	case molecule.BondDouble:
		return "="
	case molecule.BondTriple:
		return "#"
	case molecule.BondSingle:
		if w.atoms[u].Aromatic && w.atoms[v].Aromatic {
			return "-"
		}
	}
	return ""
}

func hasImplicitH(a molecule.Atom) bool {
	for _, n := range a.Neighbors {
		if n == molecule.ImplicitH {
			return true
		}
	}
	return false
}

// atomText renders atom u; order is its neighbour order as written.
func (w *smilesWriter) atomText(u int, order []int) string {
	a := w.atoms[u]
	sym := a.Symbol
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	if a.IsPlaceholder() {
		if a.Label != "" {
			return "[*]"
		}
		return "*"
	}
	if !a.Bracket && a.Charge == 0 && a.Isotope == 0 && a.Chirality == molecule.ChiralityNone &&
		molecule.OrganicSubset(a.Symbol) {
		return sym
	}

	var sb strings.Builder
	sb.WriteByte('[')
	if a.Isotope > 0 {
		sb.WriteString(strconv.Itoa(a.Isotope))
	}
	sb.WriteString(sym)
	switch chirality(a, order) {
	case molecule.ChiralityCCW:
		sb.WriteString("@")
	case molecule.ChiralityCW:
		sb.WriteString("@@")
	}
	h := a.HCount
	if !a.Bracket {
		h = w.m.ImplicitHydrogens(u)
	}
	switch {
	case h == 1:
		sb.WriteString("H")
	case h > 1:
		sb.WriteString("H" + strconv.Itoa(h))
	}
	switch {
	case a.Charge == 1:
		sb.WriteString("+")
	case a.Charge == -1:
		sb.WriteString("-")
	case a.Charge > 1:
		sb.WriteString("+" + strconv.Itoa(a.Charge))
	case a.Charge < -1:
		sb.WriteString(strconv.Itoa(a.Charge))
	}
	sb.WriteByte(']')
	return sb.String()
}

// chirality re-expresses a's tag relative to the written order.
func chirality(a molecule.Atom, written []int) molecule.Chirality {
	if a.Chirality == molecule.ChiralityNone {
		return a.Chirality
	}
	if permutationOdd(a.Neighbors, written) {
		return a.Chirality.Invert()
	}
	return a.Chirality
}

// permutationOdd reports whether to is an odd permutation of from.  Both must
// hold the same distinct elements.
func permutationOdd(from, to []int) bool {
	pos := make(map[int]int, len(from))
	for i, v := range from {
		pos[v] = i
	}
	p := make([]int, len(to))
	for i, v := range to {
		p[i] = pos[v]
	}
	odd := false
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			if p[i] > p[j] {
				odd = !odd
			}
		}
	}
	return odd
}
