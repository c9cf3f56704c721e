package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ClairePA/ChemistryToolkit/pkg/types/molecule"
)

const maxCell = 60

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

type validateView []*molecule.ValidateResponse

func (v validateView) JSONValue() interface{} { return []*molecule.ValidateResponse(v) }

func (v validateView) TableHeaders() []string { return []string{"Notation", "Valid", "Reason"} }

func (v validateView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		rows = append(rows, []string{truncate(r.Notation, maxCell), validMark(r.Valid), r.Reason})
	}
	return rows
}

func (v validateView) String() string {
	var sb strings.Builder
	for _, r := range v {
		sb.WriteString(validMark(r.Valid))
		sb.WriteString("  ")
		sb.WriteString(r.Notation)
		if r.Reason != "" {
			sb.WriteString("  (" + r.Reason + ")")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func validMark(ok bool) string {
	if ok {
		return color.GreenString("valid")
	}
	return color.RedString("invalid")
}

func (v validateView) invalid() int {
	n := 0
	for _, r := range v {
		if !r.Valid {
			n++
		}
	}
	return n
}

// notationView prints just the notation in text mode.
type notationView struct{ *molecule.CanonicalResponse }

func (v notationView) JSONValue() interface{} { return v.CanonicalResponse }

func (v notationView) String() string { return v.Notation + "\n" }

func (v notationView) TableHeaders() []string { return []string{"Input", "Notation"} }

func (v notationView) TableRows() [][]string {
	return [][]string{{truncate(v.Input, maxCell), v.Notation}}
}

func infoRows(notation string, in *molecule.Info) [][]string {
	rows := [][]string{{"notation", notation}}
	if in == nil {
		return rows
	}
	sites := "-"
	if len(in.OpenSites) > 0 {
		sites = strings.Join(in.OpenSites, ", ")
	}
	return append(rows,
		[]string{"formula", in.Formula},
		[]string{"molecular_weight", formatFloat(in.MolecularWeight)},
		[]string{"exact_mass", formatFloat(in.ExactMass)},
		[]string{"atoms", strconv.Itoa(in.AtomCount)},
		[]string{"heavy_atoms", strconv.Itoa(in.HeavyAtomCount)},
		[]string{"bonds", strconv.Itoa(in.BondCount)},
		[]string{"open_sites", sites},
	)
}

func keyValueText(rows [][]string) string {
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	var sb strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&sb, "%-*s  %s\n", width, r[0], r[1])
	}
	return sb.String()
}

type infoView struct{ *molecule.InfoResponse }

func (v infoView) JSONValue() interface{} { return v.InfoResponse }
func (v infoView) TableHeaders() []string { return []string{"Property", "Value"} }
func (v infoView) TableRows() [][]string  { return infoRows(v.Notation, v.Info) }
func (v infoView) String() string         { return keyValueText(v.TableRows()) }

type mergeView struct{ *molecule.MergeResponse }

func (v mergeView) JSONValue() interface{} { return v.MergeResponse }
func (v mergeView) TableHeaders() []string { return []string{"Property", "Value"} }

func (v mergeView) TableRows() [][]string {
	rows := [][]string{{"molecule_id", v.MoleculeID}}
	rows = append(rows, infoRows(v.Notation, v.Info)...)
	return append(rows,
		[]string{"self_merge", strconv.FormatBool(v.SelfMerge)},
		[]string{"event_id", v.EventID},
	)
}

func (v mergeView) String() string { return keyValueText(v.TableRows()) }

type fragmentView struct{ *molecule.Fragment }

func (v fragmentView) JSONValue() interface{} { return v.Fragment }
func (v fragmentView) TableHeaders() []string { return []string{"Property", "Value"} }

func (v fragmentView) TableRows() [][]string {
	rows := [][]string{
		{"id", v.ID},
		{"name", v.Name},
		{"notation", v.Notation},
		{"created_at", v.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	for _, a := range v.Attachments {
		rows = append(rows, []string{"attachment " + a.Label, a.CapGroup + "  " + a.Notation})
	}
	return rows
}

func (v fragmentView) String() string { return keyValueText(v.TableRows()) }

type fragmentListView struct{ *molecule.FragmentList }

func (v fragmentListView) JSONValue() interface{} { return v.FragmentList }

func (v fragmentListView) TableHeaders() []string {
	return []string{"ID", "Name", "Notation", "Sites"}
}

func (v fragmentListView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Fragments))
	for _, f := range v.Fragments {
		labels := make([]string, 0, len(f.Attachments))
		for _, a := range f.Attachments {
			labels = append(labels, a.Label)
		}
		rows = append(rows, []string{f.ID, f.Name, truncate(f.Notation, maxCell), strings.Join(labels, ",")})
	}
	return rows
}

func (v fragmentListView) String() string {
	var sb strings.Builder
	for _, f := range v.Fragments {
		fmt.Fprintf(&sb, "%s\t%s\n", f.Name, f.Notation)
	}
	p := v.Pagination
	fmt.Fprintf(&sb, "page %d, %d of %d fragments\n", p.Page, len(v.Fragments), p.Total)
	return sb.String()
}
