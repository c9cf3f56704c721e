package molecule

import (
	"strconv"
	"strings"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// Attachment is a capping template for one R-group label, e.g.
//
//	Attachment{ID: "R3-OH", Label: "R3", CapGroup: "OH", Notation: "O[*] |$;_R3$|"}
//
// Notation is a fragment carrying exactly one placeholder with the same label;
// the rest of the fragment replaces the site when it is capped.
type Attachment struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	CapGroup string `json:"cap_group"`
	Notation string `json:"notation"`
}

// NewAttachment validates and returns an Attachment.
func NewAttachment(id, label, capGroup, notation string) (Attachment, error) {
	a := Attachment{ID: id, Label: label, CapGroup: capGroup, Notation: notation}
	if err := a.Validate(); err != nil {
		return Attachment{}, err
	}
	return a, nil
}

// Validate checks the id and label.  The notation is parsed lazily by the
// engine when the cap is applied.
func (a Attachment) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New(errors.ErrCodeAttachmentInvalid, "attachment id is required")
	}
	if _, ok := ParseRLabel(a.Label); !ok {
		return errors.New(errors.ErrCodeAttachmentInvalid, "attachment label must look like R<n>").
			WithDetail("id=" + a.ID + " label=" + a.Label)
	}
	return nil
}

// Index returns the numeric R-group index of the label, or 0 if it is invalid.
func (a Attachment) Index() int {
	n, _ := ParseRLabel(a.Label)
	return n
}

// ParseRLabel parses "R3", "r3" or "_R3" into 3.
func ParseRLabel(label string) (int, bool) {
	s := strings.TrimPrefix(strings.TrimSpace(label), "_")
	if len(s) < 2 || (s[0] != 'R' && s[0] != 'r') {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// RLabel formats an index as "R<n>".
func RLabel(index int) string {
	return "R" + strconv.Itoa(index)
}

// AttachmentList is an ordered collection of attachments, unique by ID.
// The zero value and a nil *AttachmentList are both usable as empty lists.
type AttachmentList struct {
	items []Attachment
}

// NewAttachmentList builds a list from items, dropping later duplicates.
func NewAttachmentList(items ...Attachment) *AttachmentList {
	l := &AttachmentList{}
	for _, it := range items {
		l.Add(it)
	}
	return l
}

// Add appends a and reports whether it was added.  An attachment whose ID is
// already present is ignored.
func (l *AttachmentList) Add(a Attachment) bool {
	if l.Contains(a.ID) {
		return false
	}
	l.items = append(l.items, a)
	return true
}

// AddAll appends every attachment of other not already present.
func (l *AttachmentList) AddAll(other *AttachmentList) {
	for _, a := range other.Items() {
		l.Add(a)
	}
}

// Remove deletes the attachment with the given ID.
func (l *AttachmentList) Remove(id string) bool {
	if l == nil {
		return false
	}
	for i, it := range l.items {
		if it.ID == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether an attachment with id is present.
func (l *AttachmentList) Contains(id string) bool {
	_, ok := l.Get(id)
	return ok
}

// Get returns the attachment with the given ID.
func (l *AttachmentList) Get(id string) (Attachment, bool) {
	if l == nil {
		return Attachment{}, false
	}
	for _, it := range l.items {
		if it.ID == id {
			return it, true
		}
	}
	return Attachment{}, false
}

// ByLabel returns the first attachment for an R-group label ("R1" or "_R1").
func (l *AttachmentList) ByLabel(label string) (Attachment, bool) {
	idx, ok := ParseRLabel(label)
	if !ok {
		return Attachment{}, false
	}
	return l.ByIndex(idx)
}

// ByIndex returns the first attachment whose label has the given index.
func (l *AttachmentList) ByIndex(index int) (Attachment, bool) {
	if l == nil {
		return Attachment{}, false
	}
	for _, it := range l.items {
		if it.Index() == index {
			return it, true
		}
	}
	return Attachment{}, false
}

// Len returns the number of attachments.
func (l *AttachmentList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Items returns a copy of the attachments in insertion order.
func (l *AttachmentList) Items() []Attachment {
	if l == nil {
		return nil
	}
	out := make([]Attachment, len(l.items))
	copy(out, l.items)
	return out
}

// CloneList returns an independent copy.  Changes to either list are not
// visible through the other.
func (l *AttachmentList) CloneList() *AttachmentList {
	return &AttachmentList{items: l.Items()}
}
