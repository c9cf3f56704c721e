package molecule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

func TestNewFragment(t *testing.T) {
	f, err := NewFragment("ribose", "OC1C([*])OC(CO[*])C1O[*] |$;;;_R3;;;;;_R1;;;_R2$|", []Attachment{
		{ID: "R1-H", Label: "R1", CapGroup: "H", Notation: "[*][H] |$_R1;$|"},
		{ID: "R3-OH", Label: "R3", CapGroup: "OH", Notation: "O[*] |$;_R3$|"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, f.CreatedAt, f.UpdatedAt)
	assert.Equal(t, 2, f.AttachmentList().Len())

	l := f.AttachmentList()
	l.Remove("R1-H")
	assert.Len(t, f.Attachments, 2)
}

func TestNewFragment_Validation(t *testing.T) {
	_, err := NewFragment("", "C", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = NewFragment("x", "  ", nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = NewFragment("x", "C[*] |$;_R1$|", []Attachment{{ID: "a", Label: "nope"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAttachmentInvalid))

	_, err = NewFragment("x", "C[*] |$;_R1$|", []Attachment{
		{ID: "a", Label: "R1"},
		{ID: "a", Label: "R1"},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeAttachmentInvalid))
}

func TestMoleculeMergedEvent(t *testing.T) {
	a := chain(t, 2, 1, 2, nil)
	b := chain(t, 2, 1, 2, nil)
	res, err := NewMerger(nil).Merge(a, site(t, a, 1), b, site(t, b, 1))
	require.NoError(t, err)

	left := MergeSide{MoleculeID: a.ID(), Notation: "[*]CC[*]", Site: "R1"}
	right := MergeSide{MoleculeID: b.ID(), Notation: "[*]CC[*]", Site: "R1", CapGroup: "H"}
	ev := NewMoleculeMergedEvent("builtin", res, left, right, "CCCC")

	assert.Equal(t, EventTypeMoleculeMerged, ev.EventType())
	assert.Equal(t, string(res.ID()), ev.AggregateID())
	assert.NotEmpty(t, ev.EventID())
	assert.False(t, ev.SelfMerge)
	assert.GreaterOrEqual(t, ev.Age(time.Now().Add(time.Second)), time.Duration(0))

	self := NewMoleculeMergedEvent("builtin", res, left, left, "C1CC1")
	assert.True(t, self.SelfMerge)

	rec := MergeRecordFromEvent(ev)
	assert.Equal(t, ev.EventID(), rec.EventID)
	assert.Equal(t, "builtin", rec.Engine)
	assert.Equal(t, "R1", rec.LeftSite)
	assert.Equal(t, "CCCC", rec.ResultNotation)
	assert.Equal(t, ev.OccurredAt(), rec.CreatedAt)
}
