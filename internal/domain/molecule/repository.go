package molecule

import (
	"context"
	"strings"
	"time"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// Fragment is a named, reusable notation with its attachment templates, such
// as a monomer ("Ala", "ribose") kept in the fragment library.
type Fragment struct {
	ID          common.ID    `json:"id"`
	Name        string       `json:"name"`
	Notation    string       `json:"notation"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewFragment validates the fields and assigns an ID.
func NewFragment(name, notation string, attachments []Attachment) (*Fragment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.InvalidParam("fragment name is required")
	}
	if strings.TrimSpace(notation) == "" {
		return nil, errors.InvalidParam("fragment notation is required")
	}
	list := NewAttachmentList()
	for _, a := range attachments {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if !list.Add(a) {
			return nil, errors.New(errors.ErrCodeAttachmentInvalid, "duplicate attachment id").WithDetail(a.ID)
		}
	}
	now := time.Now().UTC()
	return &Fragment{
		ID:          common.NewID(),
		Name:        name,
		Notation:    notation,
		Attachments: list.Items(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AttachmentList returns the fragment's attachments as a fresh list.
func (f *Fragment) AttachmentList() *AttachmentList {
	return NewAttachmentList(f.Attachments...)
}

// MergeRecord is the persisted trace of one merge.
type MergeRecord struct {
	ID             common.ID `json:"id"`
	EventID        string    `json:"event_id"`
	Engine         string    `json:"engine"`
	LeftNotation   string    `json:"left_notation"`
	LeftSite       string    `json:"left_site"`
	RightNotation  string    `json:"right_notation"`
	RightSite      string    `json:"right_site"`
	ResultNotation string    `json:"result_notation"`
	CreatedAt      time.Time `json:"created_at"`
}

// MergeRecordFromEvent converts an event into a record.
func MergeRecordFromEvent(e MoleculeMergedEvent) *MergeRecord {
	return &MergeRecord{
		ID:             common.ID(e.AggregateID()),
		EventID:        e.EventID(),
		Engine:         e.Engine,
		LeftNotation:   e.Left.Notation,
		LeftSite:       e.Left.Site,
		RightNotation:  e.Right.Notation,
		RightSite:      e.Right.Site,
		ResultNotation: e.ResultNotation,
		CreatedAt:      e.OccurredAt(),
	}
}

// FragmentRepository persists the fragment library.
type FragmentRepository interface {
	Save(ctx context.Context, f *Fragment) error
	FindByID(ctx context.Context, id common.ID) (*Fragment, error)
	FindByName(ctx context.Context, name string) (*Fragment, error)
	List(ctx context.Context, limit, offset int) ([]*Fragment, int64, error)
	Delete(ctx context.Context, id common.ID) error
}

// MergeRecordRepository persists merge records.  Save is idempotent on EventID.
type MergeRecordRepository interface {
	Save(ctx context.Context, r *MergeRecord) error
	ListRecent(ctx context.Context, limit int) ([]*MergeRecord, error)
}

// LineageStore keeps the merge graph: which notations were joined into which.
type LineageStore interface {
	RecordMerge(ctx context.Context, e MoleculeMergedEvent) error
	Ancestors(ctx context.Context, notation string, depth int) ([]string, error)
}
