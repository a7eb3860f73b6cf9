package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
)

// LinkStore is the durable source of truth for links.
// Finders return (nil, nil) when no row matches.
type LinkStore interface {
	FindBySlug(ctx context.Context, slug string) (*domain.Link, error)
	FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*domain.Link, error)
	// Insert fails with domain.ErrDuplicateSlug when the slug is already stored.
	Insert(ctx context.Context, link *domain.Link) error
	IncrementRedirectCount(ctx context.Context, slug string) error
	Ping(ctx context.Context) error
	Close() error
}

// LinkExporter reads every stored link, expired ones included. Used by the CLI.
type LinkExporter interface {
	Dump(ctx context.Context) ([]domain.Link, error)
}

// RedirectCache shadows the store for hot slugs
type RedirectCache interface {
	Get(ctx context.Context, slug string) (domain.Destination, bool, error)
	Set(ctx context.Context, slug string, dest domain.Destination) error
	Delete(ctx context.Context, slug string) error
}

// SlugGenerator produces candidate slugs. It cannot fail.
type SlugGenerator interface {
	Generate() string
}

// RedirectCounter records a successful resolution without blocking the caller
type RedirectCounter interface {
	Enqueue(slug string)
}

// LinkService defines the business logic operations
type LinkService interface {
	CreateLink(ctx context.Context, in domain.NewLink) (string, error)
	ResolveSlug(ctx context.Context, slug string) (string, error)
	GetLink(ctx context.Context, slug string) (*domain.Link, error)
	Ping(ctx context.Context) error
}
