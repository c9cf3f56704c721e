package repositories

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

type LineageStoreTestSuite struct {
	suite.Suite
	driver *MockInfraDriver
	tx     *MockInfraTransaction
	store  molecule.LineageStore
}

func (s *LineageStoreTestSuite) SetupTest() {
	s.driver, s.tx = setupMockDriver()
	s.store = NewNeo4jLineageStore(s.driver, logging.NewNopLogger())
}

func mergedEvent() molecule.MoleculeMergedEvent {
	return molecule.MoleculeMergedEvent{
		BaseEvent:      common.NewBaseEvent("9b1f0c1e-7d55-4a0c-8f1d-2a3b4c5d6e7f"),
		Engine:         "builtin",
		Left:           molecule.MergeSide{Notation: "C[*] |$;_R1$|", Site: "R1"},
		Right:          molecule.MergeSide{Notation: "O[*] |$;_R2$|", Site: "R2"},
		ResultNotation: "CO",
	}
}

func (s *LineageStoreTestSuite) TestRecordMerge() {
	ev := mergedEvent()
	s.tx.On("Run", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "MERGED_INTO {event_id: $eventId, site: $leftSite}")
	}), mock.MatchedBy(func(p map[string]any) bool {
		return p["leftNotation"] == "C[*] |$;_R1$|" &&
			p["resultNotation"] == "CO" &&
			p["leftSite"] == "R1" && p["rightSite"] == "R2" &&
			p["eventId"] == ev.EventID()
	})).Return(new(MockResult), nil)

	s.NoError(s.store.RecordMerge(context.Background(), ev))
	s.driver.AssertCalled(s.T(), "ExecuteWrite", mock.Anything)
}

func (s *LineageStoreTestSuite) TestRecordMerge_MissingNotation() {
	ev := mergedEvent()
	ev.ResultNotation = ""
	err := s.store.RecordMerge(context.Background(), ev)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
	s.driver.AssertNotCalled(s.T(), "ExecuteWrite", mock.Anything)
}

func (s *LineageStoreTestSuite) TestRecordMerge_GraphError() {
	s.tx.On("Run", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

	err := s.store.RecordMerge(context.Background(), mergedEvent())
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeGraphStoreFailed))
}

func (s *LineageStoreTestSuite) TestAncestors() {
	res := &MockResult{Records: []*neo4j.Record{notationRecord("C[*] |$;_R1$|"), notationRecord("O[*] |$;_R2$|")}}
	s.tx.On("Run", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "[:MERGED_INTO*1..3]")
	}), map[string]any{"notation": "CO"}).Return(res, nil)

	got, err := s.store.Ancestors(context.Background(), "CO", 3)
	s.Require().NoError(err)
	s.Equal([]string{"C[*] |$;_R1$|", "O[*] |$;_R2$|"}, got)
}

func (s *LineageStoreTestSuite) TestAncestors_DepthIsClamped() {
	s.tx.On("Run", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "[:MERGED_INTO*1..10]")
	}), mock.Anything).Return(new(MockResult), nil).Once()
	s.tx.On("Run", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "[:MERGED_INTO*1..1]")
	}), mock.Anything).Return(new(MockResult), nil).Once()

	got, err := s.store.Ancestors(context.Background(), "CO", 99)
	s.NoError(err)
	s.Empty(got)
	_, err = s.store.Ancestors(context.Background(), "CO", 0)
	s.NoError(err)
	s.tx.AssertExpectations(s.T())
}

func (s *LineageStoreTestSuite) TestAncestors_EmptyNotation() {
	_, err := s.store.Ancestors(context.Background(), "", 2)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
}

func TestLineageStoreTestSuite(t *testing.T) {
	suite.Run(t, new(LineageStoreTestSuite))
}
