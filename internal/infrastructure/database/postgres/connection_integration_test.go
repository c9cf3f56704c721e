//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ClairePA/ChemistryToolkit/internal/config"
	"github.com/ClairePA/ChemistryToolkit/internal/domain/molecule"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/postgres"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/database/postgres/repositories"
	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

func setupTestDB(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "ctk",
				"POSTGRES_PASSWORD": "ctk",
				"POSTGRES_DB":       "ctk",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	conn, err := postgres.NewConnection(ctx, config.DatabaseConfig{
		Host: host, Port: port.Int(), User: "ctk", Password: "ctk", DBName: "ctk", SSLMode: "disable",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.MigrateUp())
	return conn
}

func TestMigrations_UpAndRollback(t *testing.T) {
	conn := setupTestDB(t)

	state, err := conn.MigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(2), state.Version)
	assert.False(t, state.Dirty)

	require.NoError(t, conn.MigrateUp(), "second run is a no-op")
	require.NoError(t, conn.Rollback(1))
	state, err = conn.MigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(1), state.Version)
}

func TestFragmentRepository_RoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	repo := repositories.NewPostgresFragmentRepo(conn, nil)
	ctx := context.Background()

	a, err := molecule.NewAttachment("R1-OH", "R1", "OH", "O[*] |$;_R1$|")
	require.NoError(t, err)
	f, err := molecule.NewFragment("acetyl", "CC([*])=O |$;;_R1;$|", []molecule.Attachment{a})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, f))

	got, err := repo.FindByName(ctx, "acetyl")
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, []molecule.Attachment{a}, got.Attachments)

	dup, err := molecule.NewFragment("acetyl", "CC=O", nil)
	require.NoError(t, err)
	err = repo.Save(ctx, dup)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFragmentAlreadyExists))

	items, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)

	require.NoError(t, repo.Delete(ctx, f.ID))
	_, err = repo.FindByID(ctx, f.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFragmentNotFound))
}

func TestMergeRecordRepository_Idempotent(t *testing.T) {
	conn := setupTestDB(t)
	repo := repositories.NewPostgresMergeRecordRepo(conn, nil)
	ctx := context.Background()

	rec := &molecule.MergeRecord{
		EventID: "evt-42", Engine: "builtin",
		LeftNotation: "C[*] |$;_R1$|", LeftSite: "R1",
		RightNotation: "O[*] |$;_R1$|", RightSite: "R1",
		ResultNotation: "CO",
	}
	require.NoError(t, repo.Save(ctx, rec))
	again := *rec
	again.ID = ""
	require.NoError(t, repo.Save(ctx, &again))

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CO", got[0].ResultNotation)
}
