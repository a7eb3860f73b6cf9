package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/metrics"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

const maxSlugLength = 64

// Paths the HTTP router serves itself; a link under them could never resolve.
var reservedSlugs = map[string]struct{}{
	"healthz": {},
	"metrics": {},
}

// LinkService creates links and resolves slugs to destinations.
type LinkService struct {
	store   ports.LinkStore
	cache   ports.RedirectCache
	slugs   ports.SlugGenerator
	counter ports.RedirectCounter
	baseURL string

	now     func() time.Time
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*LinkService)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *LinkService) { s.now = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *LinkService) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LinkService) { s.metrics = m }
}

func NewLinkService(
	store ports.LinkStore,
	cache ports.RedirectCache,
	slugs ports.SlugGenerator,
	counter ports.RedirectCounter,
	baseURL string,
	opts ...Option,
) *LinkService {
	s := &LinkService{
		store:   store,
		cache:   cache,
		slugs:   slugs,
		counter: counter,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLink stores a new link and returns its short URL.
func (s *LinkService) CreateLink(ctx context.Context, in domain.NewLink) (string, error) {
	if !validURL(in.OriginalURL) {
		return "", domain.ErrInvalidURL
	}

	slug := in.Slug
	if slug == "" {
		slug = s.slugs.Generate()
	} else if !validSlug(slug) {
		return "", domain.ErrInvalidSlug
	}

	// Advisory only; the store's unique constraint decides races.
	existing, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		return "", s.storeFailure(err, "find by slug")
	}
	if existing != nil {
		return "", domain.ErrSlugTaken
	}

	link := &domain.Link{
		ID:          uuid.NewString(),
		OriginalURL: in.OriginalURL,
		Slug:        slug,
		UTMParams:   domain.NewUTMParams(in.UTMParams),
		CreatedAt:   s.now().UTC(),
	}
	if in.ExpiresAt != nil {
		at := in.ExpiresAt.UTC()
		link.ExpiresAt = &at
	}

	if err := s.store.Insert(ctx, link); err != nil {
		if errors.Is(err, domain.ErrDuplicateSlug) {
			return "", domain.ErrSlugTaken
		}
		return "", s.storeFailure(err, "insert")
	}

	s.metrics.LinkCreated()
	s.log.Debug().Str("slug", slug).Str("id", link.ID).Msg("link created")
	return s.ShortURL(slug), nil
}

// ResolveSlug returns the redirect target for slug, with UTM parameters
// merged in. Missing and expired slugs both yield domain.ErrNotFoundOrExpired.
func (s *LinkService) ResolveSlug(ctx context.Context, slug string) (string, error) {
	now := s.now()

	dest, ok := s.cached(ctx, slug, now)
	if !ok {
		link, err := s.store.FindActiveBySlug(ctx, slug, now)
		if err != nil {
			s.metrics.Resolution(metrics.ResolveFailed)
			return "", s.storeFailure(err, "find active by slug")
		}
		if link == nil {
			s.metrics.Resolution(metrics.NotFound)
			return "", domain.ErrNotFoundOrExpired
		}

		dest = link.Destination()
		if err := s.cache.Set(ctx, slug, dest); err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("failed to populate redirect cache")
		}
	}

	s.counter.Enqueue(slug)
	s.metrics.Resolution(metrics.Resolved)
	return dest.URL(), nil
}

// cached reports a usable cache hit. Cache errors and entries whose expiry
// has passed count as misses; the latter are evicted.
func (s *LinkService) cached(ctx context.Context, slug string, now time.Time) (domain.Destination, bool) {
	dest, ok, err := s.cache.Get(ctx, slug)
	switch {
	case err != nil:
		s.metrics.CacheLookup(metrics.CacheError)
		s.log.Warn().Err(err).Str("slug", slug).Msg("redirect cache lookup failed")
		return domain.Destination{}, false
	case !ok:
		s.metrics.CacheLookup(metrics.CacheMiss)
		return domain.Destination{}, false
	case dest.ExpiredAt(now):
		s.metrics.CacheLookup(metrics.CacheStale)
		if err := s.cache.Delete(ctx, slug); err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("failed to evict expired cache entry")
		}
		return domain.Destination{}, false
	}
	s.metrics.CacheLookup(metrics.CacheHit)
	return dest, true
}

// GetLink returns the stored record regardless of expiry.
func (s *LinkService) GetLink(ctx context.Context, slug string) (*domain.Link, error) {
	link, err := s.store.FindBySlug(ctx, slug)
	if err != nil {
		return nil, s.storeFailure(err, "find by slug")
	}
	if link == nil {
		return nil, domain.ErrNotFoundOrExpired
	}
	return link, nil
}

func (s *LinkService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return s.storeFailure(err, "ping")
	}
	return nil
}

func (s *LinkService) ShortURL(slug string) string {
	return s.baseURL + "/" + slug
}

func (s *LinkService) storeFailure(err error, op string) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

// ValidateLink applies the creation rules to a record built outside the
// registry, such as one read from an export file.
func ValidateLink(link *domain.Link) error {
	if !validURL(link.OriginalURL) {
		return domain.ErrInvalidURL
	}
	if !validSlug(link.Slug) {
		return domain.ErrInvalidSlug
	}
	return nil
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func validSlug(slug string) bool {
	if slug == "" || len(slug) > maxSlugLength {
		return false
	}
	if _, reserved := reservedSlugs[slug]; reserved {
		return false
	}
	// ServeMux cleans dot segments, so these would never reach the redirect route.
	if slug == "." || slug == ".." {
		return false
	}
	for i := 0; i < len(slug); i++ {
		c := slug[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
		default:
			return false
		}
	}
	return true
}

var _ ports.LinkService = (*LinkService)(nil)
