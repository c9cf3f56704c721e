package postgres

import (
	"embed"
	stderrors "errors"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ClairePA/ChemistryToolkit/internal/infrastructure/monitoring/logging"
	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationState is the schema version recorded by golang-migrate.
type MigrationState struct {
	Version uint
	Dirty   bool
}

func (c *Connection) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to open embedded migrations")
	}
	driver, err := migratepgx.WithInstance(c.db, &migratepgx.Config{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, driverName, driver)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create migrate instance")
	}
	return m, nil
}

// MigrateUp applies every pending embedded migration.  No pending migration
// is not an error.
func (c *Connection) MigrateUp() error {
	m, err := c.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to run migrations")
	}
	state, err := c.status(m)
	if err != nil {
		c.logger.Warn("failed to read migration version", logging.Err(err))
		return nil
	}
	c.logger.Info("database migrations completed",
		logging.Int64("version", int64(state.Version)),
		logging.Bool("dirty", state.Dirty),
	)
	return nil
}

// Rollback reverts the last steps migrations.
func (c *Connection) Rollback(steps int) error {
	if steps <= 0 {
		return errors.InvalidParam("rollback steps must be positive")
	}
	m, err := c.newMigrate()
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to roll back migrations")
	}
	return nil
}

// MigrationStatus reports the current schema version.  A fresh database
// reports version 0.
func (c *Connection) MigrationStatus() (MigrationState, error) {
	m, err := c.newMigrate()
	if err != nil {
		return MigrationState{}, err
	}
	return c.status(m)
}

func (c *Connection) status(m *migrate.Migrate) (MigrationState, error) {
	v, dirty, err := m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return MigrationState{}, nil
	}
	if err != nil {
		return MigrationState{}, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return MigrationState{Version: v, Dirty: dirty}, nil
}
