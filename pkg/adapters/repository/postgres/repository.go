package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/adapters/repository/migrations"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// IsPostgres reports whether dbURL should be served by this adapter.
func IsPostgres(dbURL string) bool {
	return strings.HasPrefix(dbURL, "postgres://") || strings.HasPrefix(dbURL, "postgresql://")
}

// NewPostgresRepository migrates the schema and opens a connection pool.
func NewPostgresRepository(ctx context.Context, dbURL string, log zerolog.Logger) (*PostgresRepository, error) {
	if _, err := migrations.UpPostgres(dbURL, log); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, errors.Wrap(err, "create pgx pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return &PostgresRepository{pool: pool}, nil
}

const selectColumns = `SELECT id::text, original_url, slug, expires_at, utm_params, redirect_count, created_at FROM shortened_urls`

func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	return r.findOne(ctx, selectColumns+` WHERE slug = $1`, slug)
}

func (r *PostgresRepository) FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*domain.Link, error) {
	return r.findOne(ctx, selectColumns+` WHERE slug = $1 AND (expires_at IS NULL OR expires_at > $2)`, slug, now)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	link, err := scanLink(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select link")
	}
	return link, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO shortened_urls (id, original_url, slug, expires_at, utm_params, redirect_count, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var utm []byte
	if len(link.UTMParams) > 0 {
		b, err := json.Marshal(link.UTMParams)
		if err != nil {
			return errors.Wrap(err, "encode utm_params")
		}
		utm = b
	}

	_, err := r.pool.Exec(ctx, query,
		link.ID, link.OriginalURL, link.Slug, link.ExpiresAt, utm, link.RedirectCount, link.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "slug") {
			return domain.ErrDuplicateSlug
		}
		return errors.Wrap(err, "insert link")
	}
	return nil
}

func (r *PostgresRepository) IncrementRedirectCount(ctx context.Context, slug string) error {
	_, err := r.pool.Exec(ctx, `UPDATE shortened_urls SET redirect_count = redirect_count + 1 WHERE slug = $1`, slug)
	return errors.Wrap(err, "increment redirect count")
}

func (r *PostgresRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` ORDER BY created_at, slug`)
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

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return errors.Wrap(r.pool.Ping(ctx), "ping database")
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanLink(row pgx.Row) (*domain.Link, error) {
	var (
		l   domain.Link
		utm []byte
	)
	if err := row.Scan(&l.ID, &l.OriginalURL, &l.Slug, &l.ExpiresAt, &utm, &l.RedirectCount, &l.CreatedAt); err != nil {
		return nil, err
	}

	l.CreatedAt = l.CreatedAt.UTC()
	if l.ExpiresAt != nil {
		at := l.ExpiresAt.UTC()
		l.ExpiresAt = &at
	}
	if len(utm) > 0 {
		var raw map[string]string
		if err := json.Unmarshal(utm, &raw); err != nil {
			return nil, errors.Wrap(err, "decode utm_params")
		}
		l.UTMParams = domain.NewUTMParams(raw)
	}
	return &l, nil
}

var (
	_ ports.LinkStore    = (*PostgresRepository)(nil)
	_ ports.LinkExporter = (*PostgresRepository)(nil)
)
