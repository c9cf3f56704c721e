package molecule

import (
	"time"

	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

// Event types.
const (
	EventTypeMoleculeMerged = "molecule.merged"
	EventTypeMoleculeCapped = "molecule.capped"
)

// MergeSide describes one input of a merge.
type MergeSide struct {
	MoleculeID common.ID `json:"molecule_id"`
	Notation   string    `json:"notation"`
	Site       string    `json:"site"`
	CapGroup   string    `json:"cap_group,omitempty"`
}

// MoleculeMergedEvent is raised after a successful merge.
type MoleculeMergedEvent struct {
	common.BaseEvent
	Engine         string    `json:"engine"`
	Left           MergeSide `json:"left"`
	Right          MergeSide `json:"right"`
	ResultNotation string    `json:"result_notation"`
	SelfMerge      bool      `json:"self_merge"`
}

// EventType implements common.DomainEvent.
func (e MoleculeMergedEvent) EventType() string { return EventTypeMoleculeMerged }

// NewMoleculeMergedEvent builds the event for result.
func NewMoleculeMergedEvent(engine string, result *Molecule, left, right MergeSide, resultNotation string) MoleculeMergedEvent {
	return MoleculeMergedEvent{
		BaseEvent:      common.NewBaseEvent(string(result.ID())),
		Engine:         engine,
		Left:           left,
		Right:          right,
		ResultNotation: resultNotation,
		SelfMerge:      left.MoleculeID == right.MoleculeID,
	}
}

// Age returns the time since the event occurred.
func (e MoleculeMergedEvent) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}
