package molecule

// element holds the data needed for formulas, masses and implicit hydrogens.
type element struct {
	number   int
	mass     float64 // standard atomic weight
	monoMass float64 // most abundant isotope
	valences []int   // normal valences, ascending; empty outside the organic subset
}

var elements = map[string]element{
	"H":  {1, 1.008, 1.0078250319, nil},
	"He": {2, 4.0026, 4.0026032, nil},
	"Li": {3, 6.94, 7.0160040, nil},
	"Be": {4, 9.0122, 9.0121821, nil},
	"B":  {5, 10.81, 11.0093055, []int{3}},
	"C":  {6, 12.011, 12.0, []int{4}},
	"N":  {7, 14.007, 14.0030740052, []int{3, 5}},
	"O":  {8, 15.999, 15.9949146221, []int{2}},
	"F":  {9, 18.998, 18.9984032, []int{1}},
	"Ne": {10, 20.180, 19.9924401759, nil},
	"Na": {11, 22.990, 22.98976966, nil},
	"Mg": {12, 24.305, 23.98504187, nil},
	"Al": {13, 26.982, 26.98153841, nil},
	"Si": {14, 28.085, 27.97692649, nil},
	"P":  {15, 30.974, 30.97376151, []int{3, 5}},
	"S":  {16, 32.06, 31.97207069, []int{2, 4, 6}},
	"Cl": {17, 35.45, 34.96885271, []int{1}},
	"Ar": {18, 39.948, 39.962383123, nil},
	"K":  {19, 39.098, 38.9637069, nil},
	"Ca": {20, 40.078, 39.9625912, nil},
	"Fe": {26, 55.845, 55.9349421, nil},
	"Cu": {29, 63.546, 62.9296011, nil},
	"Zn": {30, 65.38, 63.9291466, nil},
	"Se": {34, 78.971, 79.9165218, nil},
	"Br": {35, 79.904, 78.9183376, []int{1}},
	"Sn": {50, 118.71, 119.9021966, nil},
	"I":  {53, 126.90, 126.904468, []int{1}},
	"Pt": {78, 195.08, 194.9647744, nil},
}

// AtomicNumber returns the atomic number of symbol, 0 if unknown.  The
// placeholder "*" is 0 as well.
func AtomicNumber(symbol string) int {
	return elements[symbol].number
}

// KnownElement reports whether symbol is in the element table.
func KnownElement(symbol string) bool {
	_, ok := elements[symbol]
	return ok
}

// OrganicSubset reports whether symbol may be written without brackets.
func OrganicSubset(symbol string) bool {
	return len(elements[symbol].valences) > 0
}

// ImplicitHydrogens returns the hydrogen count of atom i that is not written
// as an atom.  Bracket atoms carry it explicitly; organic-subset atoms take
// the lowest normal valence that accommodates their bonds.
func (m *Molecule) ImplicitHydrogens(i int) int {
	a := m.atoms[i]
	if a.Bracket {
		return a.HCount
	}
	el, ok := elements[a.Symbol]
	if !ok || len(el.valences) == 0 {
		return 0
	}
	used := 0
	for _, b := range m.BondsOf(i) {
		used += b.Order.Valence()
	}
	if a.Aromatic {
		used++
		// Three-connected aromatic n/p and two-connected s carry no H.
		if used == el.valences[0]+1 {
			return 0
		}
	}
	for _, v := range el.valences {
		if v >= used {
			return v - used
		}
	}
	return 0
}
