// Package molecule defines the request and response bodies of the toolkit
// HTTP API.  It holds plain data only so that pkg/client can be imported
// without pulling in the server.
package molecule

import (
	"time"
)

// Export formats accepted by the API.
const (
	FormatSMILES  = "smiles"
	FormatMolfile = "molfile"
)

// Attachment is the wire form of an attachment template.
type Attachment struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	CapGroup string `json:"cap_group"`
	Notation string `json:"notation"`
}

// NotationRequest is a notation plus the attachment templates of its sites.
// Validate, canonicalize, info, molfile and cap all take this body.
type NotationRequest struct {
	Notation    string       `json:"notation"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// MolfileRequest converts an MDL molfile back to notation.
type MolfileRequest struct {
	Molfile     string       `json:"molfile"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// MergeOperand is one side of a merge.  Fragment names a library fragment
// and replaces Notation and Attachments.
type MergeOperand struct {
	Notation    string       `json:"notation,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Fragment    string       `json:"fragment,omitempty"`
	Site        int          `json:"site"`
}

// MergeRequest joins Left at Left.Site with Right at Right.Site.  An empty
// Right asks for a self merge of Left's two sites.
type MergeRequest struct {
	Left     MergeOperand `json:"left"`
	Right    MergeOperand `json:"right"`
	CapAfter bool         `json:"cap_after,omitempty"`
}

// ExportRequest stores a molecule in the artifact bucket.  URLExpiry is a
// Go duration string such as "15m".
type ExportRequest struct {
	NotationRequest
	Format    string `json:"format"`
	URLExpiry string `json:"url_expiry,omitempty"`
}

// FragmentRequest registers a library fragment.
type FragmentRequest struct {
	Name        string       `json:"name"`
	Notation    string       `json:"notation"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type ValidateResponse struct {
	Notation string `json:"notation"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
}

type CanonicalResponse struct {
	Input    string `json:"input,omitempty"`
	Notation string `json:"notation"`
	Cached   bool   `json:"cached,omitempty"`
}

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

type InfoResponse struct {
	Notation string `json:"notation"`
	Info     *Info  `json:"info"`
}

type MolfileResponse struct {
	Notation string `json:"notation"`
	Molfile  string `json:"molfile"`
}

type MergeResponse struct {
	MoleculeID string `json:"molecule_id"`
	Notation   string `json:"notation"`
	Info       *Info  `json:"info"`
	EventID    string `json:"event_id"`
	SelfMerge  bool   `json:"self_merge"`
	Published  bool   `json:"published"`
}

type Artifact struct {
	Key         string    `json:"key"`
	Bucket      string    `json:"bucket"`
	Size        int64     `json:"size"`
	ETag        string    `json:"etag,omitempty"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExportResponse struct {
	Artifact *Artifact `json:"artifact"`
	URL      string    `json:"url,omitempty"`
}

type LineageResponse struct {
	Notation  string   `json:"notation"`
	Depth     int      `json:"depth"`
	Ancestors []string `json:"ancestors"`
}

type EngineResponse struct {
	Engine string `json:"engine"`
}

// Fragment is a stored library fragment.
type Fragment struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Notation    string       `json:"notation"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Page struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

type FragmentList struct {
	Fragments  []Fragment `json:"fragments"`
	Pagination Page       `json:"pagination"`
}
