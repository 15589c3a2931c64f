package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for golang-migrate
	"github.com/rs/zerolog"
	schema "github.com/yigit/credittransfer/migrations"
)

// Migrator applies the versioned schema
type Migrator struct {
	connString string
	dirPath    string
	logger     zerolog.Logger
}

// NewMigrator creates a new migrator. When dirPath points at an existing
// directory its files are used; otherwise the embedded schema is applied.
func NewMigrator(connString, dirPath string, logger zerolog.Logger) *Migrator {
	return &Migrator{
		connString: connString,
		dirPath:    dirPath,
		logger:     logger,
	}
}

func (m *Migrator) newInstance(db *sql.DB) (*migrate.Migrate, error) {
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	if info, err := os.Stat(m.dirPath); m.dirPath != "" && err == nil && info.IsDir() {
		m.logger.Debug().Str("path", m.dirPath).Msg("Using migrations from directory")
		return migrate.NewWithDatabaseInstance("file://"+m.dirPath, "pgx5", driver)
	}

	source, err := iofs.New(schema.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m.logger.Debug().Msg("Using embedded migrations")
	return migrate.NewWithInstance("iofs", source, "pgx5", driver)
}

// Up applies every pending migration. It is safe to call on an up-to-date
// database.
func (m *Migrator) Up() error {
	db, err := sql.Open("pgx", m.connString)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	mg, err := m.newInstance(db)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := mg.Close()
		if srcErr != nil {
			m.logger.Warn().Err(srcErr).Msg("Failed to close migration source")
		}
		if dbErr != nil {
			m.logger.Warn().Err(dbErr).Msg("Failed to close migration database")
		}
	}()

	err = mg.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info().Msg("No migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, _ := mg.Version()
	m.logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("Applied migrations successfully")
	return nil
}
