package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/migrations"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

type SQLiteRepository struct {
	db *sql.DB
}

// IsRemote reports whether dbURL points at a Turso/libSQL server.
func IsRemote(dbURL string) bool {
	return strings.HasPrefix(dbURL, "libsql://") || strings.HasPrefix(dbURL, "wss://")
}

// NewSQLiteRepository opens dbURL and brings the schema up to date.
func NewSQLiteRepository(dbURL string, log zerolog.Logger) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if IsRemote(dbURL) {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", driverName)
	}
	if driverName == "sqlite" {
		// One writer at a time; also keeps a shared in-memory database alive
		// for the lifetime of the handle.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if _, err := migrations.UpSQLite(db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

const selectColumns = `SELECT id, original_url, slug, expires_at, utm_params, redirect_count, created_at FROM shortened_urls`

func (r *SQLiteRepository) FindBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	return r.findOne(ctx, selectColumns+` WHERE slug = ?`, slug)
}

func (r *SQLiteRepository) FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*domain.Link, error) {
	return r.findOne(ctx, selectColumns+` WHERE slug = ? AND (expires_at IS NULL OR expires_at > ?)`, slug, now.UnixMilli())
}

func (r *SQLiteRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	link, err := scanLink(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select link")
	}
	return link, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO shortened_urls (id, original_url, slug, expires_at, utm_params, redirect_count, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	utm, err := encodeUTM(link.UTMParams)
	if err != nil {
		return err
	}

	var expiresAt sql.NullInt64
	if link.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: link.ExpiresAt.UnixMilli(), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, query,
		link.ID, link.OriginalURL, link.Slug, expiresAt, utm, link.RedirectCount, link.CreatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSlug
		}
		return errors.Wrap(err, "insert link")
	}
	return nil
}

func (r *SQLiteRepository) IncrementRedirectCount(ctx context.Context, slug string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE shortened_urls SET redirect_count = redirect_count + 1 WHERE slug = ?`, slug)
	return errors.Wrap(err, "increment redirect count")
}

// Dump returns every row, expired ones included, oldest first.
func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at, slug`)
	if err != nil {
		return nil, errors.Wrap(err, "select links")
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan link")
		}
		links = append(links, *l)
	}
	return links, errors.Wrap(rows.Err(), "iterate links")
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return errors.Wrap(r.db.PingContext(ctx), "ping database")
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*domain.Link, error) {
	var (
		l         domain.Link
		expiresAt sql.NullInt64
		utm       sql.NullString
		createdAt int64
	)
	if err := row.Scan(&l.ID, &l.OriginalURL, &l.Slug, &expiresAt, &utm, &l.RedirectCount, &createdAt); err != nil {
		return nil, err
	}

	l.CreatedAt = time.UnixMilli(createdAt).UTC()
	if expiresAt.Valid {
		at := time.UnixMilli(expiresAt.Int64).UTC()
		l.ExpiresAt = &at
	}
	if utm.Valid && utm.String != "" {
		var raw map[string]string
		if err := json.Unmarshal([]byte(utm.String), &raw); err != nil {
			return nil, errors.Wrap(err, "decode utm_params")
		}
		l.UTMParams = domain.NewUTMParams(raw)
	}
	return &l, nil
}

func encodeUTM(p domain.UTMParams) (sql.NullString, error) {
	if len(p) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, errors.Wrap(err, "encode utm_params")
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// isUniqueViolation recognises the modernc error code and falls back to the
// message text, which is all the libSQL client exposes. The slug is the only
// UNIQUE column; primary key clashes report a different code.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: shortened_urls.slug")
}

var (
	_ ports.LinkStore    = (*SQLiteRepository)(nil)
	_ ports.LinkExporter = (*SQLiteRepository)(nil)
)
