package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/postgres"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/common"
)

const fragmentColumns = `id, name, notation, attachments, created_at, updated_at`

type postgresFragmentRepo struct {
	exec queryExecutor
	log  logging.Logger
}

// NewPostgresFragmentRepo returns a molecule.FragmentRepository on conn.
func NewPostgresFragmentRepo(conn *postgres.Connection, log logging.Logger) molecule.FragmentRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresFragmentRepo{exec: conn.DB(), log: log}
}

// Save inserts f, or updates it when a row with the same id exists.
func (r *postgresFragmentRepo) Save(ctx context.Context, f *molecule.Fragment) error {
	if f == nil {
		return errors.InvalidParam("fragment is nil")
	}
	attachments := f.Attachments
	if attachments == nil {
		attachments = []molecule.Attachment{}
	}
	payload, err := json.Marshal(attachments)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode attachments")
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	f.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO fragments (` + fragmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			notation = EXCLUDED.notation,
			attachments = EXCLUDED.attachments,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.exec.ExecContext(ctx, query,
		string(f.ID), f.Name, f.Notation, payload, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return errors.New(errors.ErrCodeFragmentAlreadyExists, "fragment name already exists").WithDetail(f.Name)
		}
		r.log.Error("failed to save fragment", logging.String("id", string(f.ID)), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save fragment")
	}
	return nil
}

func (r *postgresFragmentRepo) FindByID(ctx context.Context, id common.ID) (*molecule.Fragment, error) {
	row := r.exec.QueryRowContext(ctx, `SELECT `+fragmentColumns+` FROM fragments WHERE id = $1`, string(id))
	f, err := scanFragment(row)
	if err != nil {
		return nil, notFoundOr(err, "fragment "+string(id))
	}
	return f, nil
}

func (r *postgresFragmentRepo) FindByName(ctx context.Context, name string) (*molecule.Fragment, error) {
	row := r.exec.QueryRowContext(ctx, `SELECT `+fragmentColumns+` FROM fragments WHERE name = $1`, name)
	f, err := scanFragment(row)
	if err != nil {
		return nil, notFoundOr(err, "fragment "+name)
	}
	return f, nil
}

// List returns one page ordered by name and the total row count.
func (r *postgresFragmentRepo) List(ctx context.Context, limit, offset int) ([]*molecule.Fragment, int64, error) {
	limit = clampLimit(limit, 20, 500)
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count fragments")
	}

	rows, err := r.exec.QueryContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list fragments")
	}
	defer rows.Close()

	out := make([]*molecule.Fragment, 0, limit)
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan fragment")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate fragments")
	}
	return out, total, nil
}

func (r *postgresFragmentRepo) Delete(ctx context.Context, id common.ID) error {
	res, err := r.exec.ExecContext(ctx, `DELETE FROM fragments WHERE id = $1`, string(id))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete fragment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete fragment")
	}
	if n == 0 {
		return errors.New(errors.ErrCodeFragmentNotFound, "fragment not found").WithDetail(string(id))
	}
	return nil
}

func scanFragment(s scanner) (*molecule.Fragment, error) {
	var (
		f       molecule.Fragment
		id      string
		payload []byte
	)
	if err := s.Scan(&id, &f.Name, &f.Notation, &payload, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ID = common.ID(id)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &f.Attachments); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode attachments")
		}
	}
	return &f, nil
}

func notFoundOr(err error, what string) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.New(errors.ErrCodeFragmentNotFound, "fragment not found").WithDetail(what)
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load fragment")
}
