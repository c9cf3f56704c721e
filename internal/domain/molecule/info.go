package molecule

import (
	"sort"
	"strconv"
	"strings"
)

// Info summarises a molecule.
type Info struct {
	Formula         string   `json:"formula"`
	MolecularWeight float64  `json:"molecular_weight"`
	ExactMass       float64  `json:"exact_mass"`
	AtomCount       int      `json:"atom_count"`
	HeavyAtomCount  int      `json:"heavy_atom_count"`
	BondCount       int      `json:"bond_count"`
	OpenSites       []string `json:"open_sites,omitempty"`
}

// ComputeInfo returns the formula, masses and counts of m.  Placeholder atoms
// contribute nothing to the formula or masses; open sites are listed instead.
func ComputeInfo(m *Molecule) *Info {
	counts := map[string]int{}
	info := &Info{BondCount: len(m.bonds)}
	hydrogen := elements["H"]

	for i, a := range m.atoms {
		if a.IsPlaceholder() {
			continue
		}
		el := elements[a.Symbol]
		counts[a.Symbol]++
		info.AtomCount++
		info.MolecularWeight += el.mass
		info.ExactMass += el.monoMass
		if a.Symbol != "H" {
			info.HeavyAtomCount++
		}

		if h := m.ImplicitHydrogens(i); h > 0 {
			counts["H"] += h
			info.AtomCount += h
			info.MolecularWeight += float64(h) * hydrogen.mass
			info.ExactMass += float64(h) * hydrogen.monoMass
		}
	}

	info.Formula = hillFormula(counts)
	for _, s := range m.OpenSites() {
		info.OpenSites = append(info.OpenSites, s.Label())
	}
	info.MolecularWeight = round4(info.MolecularWeight)
	info.ExactMass = round4(info.ExactMass)
	return info
}

// hillFormula orders carbon first, hydrogen second and the rest
// alphabetically; without carbon every element is alphabetical.
func hillFormula(counts map[string]int) string {
	var syms []string
	for s := range counts {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	var order []string
	if counts["C"] > 0 {
		order = append(order, "C")
		if counts["H"] > 0 {
			order = append(order, "H")
		}
		for _, s := range syms {
			if s != "C" && s != "H" {
				order = append(order, s)
			}
		}
	} else {
		order = syms
	}
	var sb strings.Builder
	for _, s := range order {
		sb.WriteString(s)
		if counts[s] > 1 {
			sb.WriteString(strconv.Itoa(counts[s]))
		}
	}
	return sb.String()
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}
