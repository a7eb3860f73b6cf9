// Package migrations applies the embedded schema for each supported dialect.
package migrations

import (
	"database/sql"
	"embed"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers pgx5://
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// UpSQLite migrates an open SQLite or libSQL handle. The handle stays open and
// owned by the caller, so the migrator is deliberately not closed.
func UpSQLite(db *sql.DB, log zerolog.Logger) (uint, error) {
	src, err := iofs.New(files, string(SQLite))
	if err != nil {
		return 0, errors.Wrap(err, "open embedded migrations")
	}
	defer src.Close()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return 0, errors.Wrap(err, "create sqlite migrate driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, string(SQLite), driver)
	if err != nil {
		return 0, errors.Wrap(err, "create migrator")
	}
	return up(m, SQLite, log)
}

// UpPostgres migrates the database behind a postgres:// URL over its own
// connection, closed before returning.
func UpPostgres(databaseURL string, log zerolog.Logger) (uint, error) {
	src, err := iofs.New(files, string(Postgres))
	if err != nil {
		return 0, errors.Wrap(err, "open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, PgxURL(databaseURL))
	if err != nil {
		_ = src.Close()
		return 0, errors.Wrap(err, "create migrator")
	}
	defer m.Close()

	return up(m, Postgres, log)
}

// PgxURL rewrites a postgres URL to the scheme golang-migrate's pgx/v5 driver
// registers.
func PgxURL(databaseURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, scheme)
		}
	}
	return databaseURL
}

func up(m *migrate.Migrate, dialect Dialect, log zerolog.Logger) (uint, error) {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, errors.Wrap(err, "read schema version")
	}
	if dirty {
		return version, errors.Errorf("schema version %d is dirty, fix it manually before migrating", version)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug().Uint("version", version).Str("dialect", string(dialect)).Msg("schema up to date")
			return version, nil
		}
		return version, errors.Wrap(err, "apply migrations")
	}

	version, _, err = m.Version()
	if err != nil {
		return 0, errors.Wrap(err, "read schema version")
	}
	log.Info().Uint("version", version).Str("dialect", string(dialect)).Msg("schema migrated")
	return version, nil
}
