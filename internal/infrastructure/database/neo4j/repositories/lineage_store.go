// Package repositories holds the graph-backed implementations of molecule
// domain interfaces.
package repositories

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	driver "github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/neo4j"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

// MaxLineageDepth bounds variable-length traversals.
const MaxLineageDepth = 10

const (
	cypherNotationConstraint = `CREATE CONSTRAINT molecule_notation IF NOT EXISTS FOR (m:Molecule) REQUIRE m.notation IS UNIQUE`

	cypherRecordMerge = `
		MERGE (l:Molecule {notation: $leftNotation})
		MERGE (r:Molecule {notation: $rightNotation})
		MERGE (p:Molecule {notation: $resultNotation})
		ON CREATE SET p.id = $resultId, p.engine = $engine, p.created_at = datetime()
		MERGE (l)-[:MERGED_INTO {event_id: $eventId, site: $leftSite}]->(p)
		MERGE (r)-[:MERGED_INTO {event_id: $eventId, site: $rightSite}]->(p)
	`

	// Depth cannot be a parameter in a variable-length pattern.
	cypherAncestors = `
		MATCH (a:Molecule)-[:MERGED_INTO*1..%d]->(:Molecule {notation: $notation})
		RETURN DISTINCT a.notation AS notation
		ORDER BY notation
	`
)

type neo4jLineageStore struct {
	driver driver.DriverInterface
	log    logging.Logger
}

// NewNeo4jLineageStore returns a molecule.LineageStore on d.
func NewNeo4jLineageStore(d driver.DriverInterface, log logging.Logger) molecule.LineageStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &neo4jLineageStore{driver: d, log: log}
}

// EnsureSchema creates the notation uniqueness constraint.
func EnsureSchema(ctx context.Context, d driver.DriverInterface) error {
	_, err := d.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		_, err := tx.Run(ctx, cypherNotationConstraint, nil)
		return nil, err
	})
	return err
}

// RecordMerge links both inputs to the product with one MERGED_INTO edge per
// side.  Replaying the same event creates nothing new.
func (s *neo4jLineageStore) RecordMerge(ctx context.Context, e molecule.MoleculeMergedEvent) error {
	if e.ResultNotation == "" || e.Left.Notation == "" || e.Right.Notation == "" {
		return errors.InvalidParam("merge event is missing a notation").WithDetail(e.EventID())
	}
	params := map[string]any{
		"leftNotation":   e.Left.Notation,
		"rightNotation":  e.Right.Notation,
		"resultNotation": e.ResultNotation,
		"resultId":       e.AggregateID(),
		"engine":         e.Engine,
		"eventId":        e.EventID(),
		"leftSite":       e.Left.Site,
		"rightSite":      e.Right.Site,
	}
	_, err := s.driver.ExecuteWrite(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, cypherRecordMerge, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		s.log.Error("failed to record merge lineage", logging.String("event_id", e.EventID()), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeGraphStoreFailed, "failed to record merge lineage")
	}
	return nil
}

// Ancestors returns every notation that reached notation through at most
// depth merges, sorted.  depth is clamped to [1, MaxLineageDepth].
func (s *neo4jLineageStore) Ancestors(ctx context.Context, notation string, depth int) ([]string, error) {
	if notation == "" {
		return nil, errors.InvalidParam("notation is required")
	}
	if depth < 1 {
		depth = 1
	}
	if depth > MaxLineageDepth {
		depth = MaxLineageDepth
	}
	query := fmt.Sprintf(cypherAncestors, depth)

	out, err := s.driver.ExecuteRead(ctx, func(tx driver.Transaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"notation": notation})
		if err != nil {
			return nil, err
		}
		return driver.CollectRecords(ctx, res, func(r *neo4j.Record) (string, error) {
			v, ok := r.Get("notation")
			if !ok {
				return "", fmt.Errorf("record has no notation")
			}
			str, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("notation is %T, not string", v)
			}
			return str, nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphStoreFailed, "failed to query lineage")
	}
	ancestors, _ := out.([]string)
	return ancestors, nil
}
