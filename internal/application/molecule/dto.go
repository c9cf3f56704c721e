package molecule

import (
	"strings"
	"time"

	domainMol "github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	storage "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/storage/minio"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// NotationInput is a notation plus the attachment templates of its sites.
type NotationInput struct {
	Notation    string                 `json:"notation"`
	Attachments []domainMol.Attachment `json:"attachments,omitempty"`
}

func (in *NotationInput) validate() error {
	if in == nil || strings.TrimSpace(in.Notation) == "" {
		return errors.InvalidParam("notation is required")
	}
	for _, a := range in.Attachments {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (in *NotationInput) attachmentList() *domainMol.AttachmentList {
	if len(in.Attachments) == 0 {
		return nil
	}
	return domainMol.NewAttachmentList(in.Attachments...)
}

// MolfileInput carries an MDL molfile.
type MolfileInput struct {
	Molfile     string                 `json:"molfile"`
	Attachments []domainMol.Attachment `json:"attachments,omitempty"`
}

// MergeOperand is one side of a merge: an inline notation or a library
// fragment, and the R-group index to join at.
type MergeOperand struct {
	NotationInput
	Fragment string `json:"fragment,omitempty"`
	Site     int    `json:"site"`
}

func (op MergeOperand) empty() bool {
	return op.Notation == "" && op.Fragment == ""
}

// MergeInput joins Left at Left.Site with Right at Right.Site.  A Right with
// neither notation nor fragment means a self merge on Left.
type MergeInput struct {
	Left     MergeOperand `json:"left"`
	Right    MergeOperand `json:"right"`
	CapAfter bool         `json:"cap_after,omitempty"`
}

func (in *MergeInput) SelfMerge() bool { return in.Right.empty() }

// ExportInput stores a molecule in the artifact bucket.
type ExportInput struct {
	NotationInput
	Format    string        `json:"format"`
	URLExpiry time.Duration `json:"url_expiry,omitempty"`
}

// FragmentInput creates a library fragment.
type FragmentInput struct {
	Name        string                 `json:"name"`
	Notation    string                 `json:"notation"`
	Attachments []domainMol.Attachment `json:"attachments,omitempty"`
}

type ValidateResult struct {
	Notation string `json:"notation"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
}

type CanonicalResult struct {
	Input    string `json:"input,omitempty"`
	Notation string `json:"notation"`
	Cached   bool   `json:"cached,omitempty"`
}

type InfoResult struct {
	Notation string          `json:"notation"`
	Info     *domainMol.Info `json:"info"`
}

type MolfileResult struct {
	Notation string `json:"notation"`
	Molfile  string `json:"molfile"`
}

type MergeResult struct {
	MoleculeID common.ID       `json:"molecule_id"`
	Notation   string          `json:"notation"`
	Info       *domainMol.Info `json:"info"`
	EventID    string          `json:"event_id"`
	SelfMerge  bool            `json:"self_merge"`
	Published  bool            `json:"published"`
}

type ExportResult struct {
	Artifact *storage.Artifact `json:"artifact"`
	URL      string            `json:"url,omitempty"`
}

type FragmentList struct {
	Fragments  []*domainMol.Fragment `json:"fragments"`
	Pagination common.Pagination     `json:"pagination"`
}
