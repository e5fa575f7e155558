package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator applies the SQL files under migrations/ with golang-migrate
type Migrator struct {
	migrate *migrate.Migrate
	source  string
	logger  *zap.Logger
}

// Status describes where the schema stands relative to the migration files
type Status struct {
	Version   uint
	Dirty     bool
	Available int
	Pending   int
}

// zapMigrateLogger adapts zap to the migrate.Logger interface
type zapMigrateLogger struct {
	logger *zap.SugaredLogger
}

func (l zapMigrateLogger) Printf(format string, v ...any) {
	l.logger.Debugf(format, v...)
}

func (l zapMigrateLogger) Verbose() bool {
	return l.logger.Desugar().Core().Enabled(zap.DebugLevel)
}

// New creates a Migrator on an open postgres connection
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("open migrations at %s: %w", migrationsPath, err)
	}
	m.Log = zapMigrateLogger{logger: logger.Sugar()}

	return &Migrator{
		migrate: m,
		source:  migrationsPath,
		logger:  logger.With(zap.String("migrations_path", migrationsPath)),
	}, nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	m.logger.Info("Applying migrations")
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	return m.logVersion("Migrations applied")
}

// Down rolls back every applied migration
func (m *Migrator) Down() error {
	m.logger.Warn("Rolling back all migrations")
	if err := m.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	if n == 0 {
		return nil
	}
	m.logger.Info("Stepping migrations", zap.Int("steps", n))
	if err := m.migrate.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %d steps: %w", n, err)
	}
	return m.logVersion("Migration steps applied")
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	if err := m.migrate.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	return m.logVersion("Migrated to version")
}

// Version returns the applied version, zero when nothing was applied
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Status compares the applied version with the files on disk
func (m *Migrator) Status() (*Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return nil, err
	}
	files, err := ListMigrations(m.source)
	if err != nil {
		return nil, err
	}
	st := &Status{Version: version, Dirty: dirty, Available: len(files)}
	for _, f := range files {
		if f.Version > uint64(version) {
			st.Pending++
		}
	}
	return st, nil
}

// Force marks version as applied without running it, clearing the dirty flag
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) logVersion(msg string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
