package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/postgres"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

func newMergeRepo(t *testing.T) (molecule.MergeRecordRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresMergeRecordRepo(postgres.NewConnectionWithDB(db, nil), logging.NewNopLogger()), mock
}

func sampleRecord() *molecule.MergeRecord {
	return &molecule.MergeRecord{
		ID:             "3f1c3a53-6f0e-4c55-9a43-0a0d8f1b2c11",
		EventID:        "evt-1",
		Engine:         "builtin",
		LeftNotation:   "C[*] |$;_R1$|",
		LeftSite:       "R1",
		RightNotation:  "O[*] |$;_R1$|",
		RightSite:      "R1",
		ResultNotation: "CO",
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestMergeRecordRepo_Save(t *testing.T) {
	repo, mock := newMergeRepo(t)
	rec := sampleRecord()
	mock.ExpectExec(`INSERT INTO merge_records .* ON CONFLICT \(event_id\) DO NOTHING`).
		WithArgs(string(rec.ID), "evt-1", "builtin", rec.LeftNotation, "R1", rec.RightNotation, "R1", "CO", rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Save(context.Background(), rec))
}

func TestMergeRecordRepo_Save_Redelivered(t *testing.T) {
	repo, mock := newMergeRepo(t)
	mock.ExpectExec("INSERT INTO merge_records").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Save(context.Background(), sampleRecord()))
}

func TestMergeRecordRepo_Save_Errors(t *testing.T) {
	repo, mock := newMergeRepo(t)

	err := repo.Save(context.Background(), &molecule.MergeRecord{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))

	mock.ExpectExec("INSERT INTO merge_records").WillReturnError(errors.New("boom"))
	err = repo.Save(context.Background(), sampleRecord())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func TestMergeRecordRepo_ListRecent(t *testing.T) {
	repo, mock := newMergeRepo(t)
	rec := sampleRecord()
	mock.ExpectQuery("SELECT .* FROM merge_records ORDER BY created_at DESC").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_id", "engine", "left_notation", "left_site",
			"right_notation", "right_site", "result_notation", "created_at",
		}).AddRow(string(rec.ID), rec.EventID, rec.Engine, rec.LeftNotation, rec.LeftSite,
			rec.RightNotation, rec.RightSite, rec.ResultNotation, rec.CreatedAt))

	got, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}
