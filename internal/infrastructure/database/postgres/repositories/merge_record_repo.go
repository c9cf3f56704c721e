package repositories

import (
	"context"
	"time"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/postgres"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

const mergeRecordColumns = `id, event_id, engine, left_notation, left_site, right_notation, right_site, result_notation, created_at`

type postgresMergeRecordRepo struct {
	exec queryExecutor
	log  logging.Logger
}

// NewPostgresMergeRecordRepo returns a molecule.MergeRecordRepository on conn.
func NewPostgresMergeRecordRepo(conn *postgres.Connection, log logging.Logger) molecule.MergeRecordRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresMergeRecordRepo{exec: conn.DB(), log: log}
}

// Save inserts rec.  A second record with the same event id is ignored so
// that redelivered events are harmless.
func (r *postgresMergeRecordRepo) Save(ctx context.Context, rec *molecule.MergeRecord) error {
	if rec == nil || rec.EventID == "" {
		return errors.InvalidParam("merge record needs an event id")
	}
	if rec.ID == "" {
		rec.ID = common.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := r.exec.ExecContext(ctx, `
		INSERT INTO merge_records (`+mergeRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`,
		string(rec.ID), rec.EventID, rec.Engine,
		rec.LeftNotation, rec.LeftSite, rec.RightNotation, rec.RightSite,
		rec.ResultNotation, rec.CreatedAt,
	)
	if err != nil {
		r.log.Error("failed to save merge record", logging.String("event_id", rec.EventID), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save merge record")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		r.log.Debug("merge record already stored", logging.String("event_id", rec.EventID))
	}
	return nil
}

// ListRecent returns the newest records first.
func (r *postgresMergeRecordRepo) ListRecent(ctx context.Context, limit int) ([]*molecule.MergeRecord, error) {
	limit = clampLimit(limit, 50, 1000)
	rows, err := r.exec.QueryContext(ctx,
		`SELECT `+mergeRecordColumns+` FROM merge_records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list merge records")
	}
	defer rows.Close()

	var out []*molecule.MergeRecord
	for rows.Next() {
		var (
			rec molecule.MergeRecord
			id  string
		)
		if err := rows.Scan(&id, &rec.EventID, &rec.Engine,
			&rec.LeftNotation, &rec.LeftSite, &rec.RightNotation, &rec.RightSite,
			&rec.ResultNotation, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan merge record")
		}
		rec.ID = common.ID(id)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate merge records")
	}
	return out, nil
}
