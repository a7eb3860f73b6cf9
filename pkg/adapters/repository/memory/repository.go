package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

// MemoryRepository keeps links in a map. Nothing survives a restart; it backs
// DATABASE_URL=memory:// and unit tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	links map[string]*domain.Link
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{links: make(map[string]*domain.Link)}
}

func (r *MemoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.links[slug]
	if !ok {
		return nil, nil
	}
	return copyLink(l), nil
}

func (r *MemoryRepository) FindActiveBySlug(ctx context.Context, slug string, now time.Time) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.links[slug]
	if !ok || !l.ActiveAt(now) {
		return nil, nil
	}
	return copyLink(l), nil
}

func (r *MemoryRepository) Insert(ctx context.Context, link *domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.Slug]; exists {
		return domain.ErrDuplicateSlug
	}
	r.links[link.Slug] = copyLink(link)
	return nil
}

func (r *MemoryRepository) IncrementRedirectCount(ctx context.Context, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.links[slug]; ok {
		l.RedirectCount++
	}
	return nil
}

// Dump returns every link ordered by creation time.
func (r *MemoryRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	links := make([]domain.Link, 0, len(r.links))
	for _, l := range r.links {
		links = append(links, *copyLink(l))
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].Slug < links[j].Slug
		}
		return links[i].CreatedAt.Before(links[j].CreatedAt)
	})
	return links, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

func copyLink(l *domain.Link) *domain.Link {
	c := *l
	if l.ExpiresAt != nil {
		at := *l.ExpiresAt
		c.ExpiresAt = &at
	}
	if l.UTMParams != nil {
		c.UTMParams = make(domain.UTMParams, len(l.UTMParams))
		for k, v := range l.UTMParams {
			c.UTMParams[k] = v
		}
	}
	return &c
}

var (
	_ ports.LinkStore    = (*MemoryRepository)(nil)
	_ ports.LinkExporter = (*MemoryRepository)(nil)
)
