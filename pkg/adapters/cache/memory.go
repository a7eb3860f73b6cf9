package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

// Memory is an unbounded process-local cache. Entries live until the link
// expires (or maxTTL passes), then go-cache's janitor removes them.
type Memory struct {
	c      *gocache.Cache
	maxTTL time.Duration
	now    func() time.Time
}

func NewMemory(maxTTL time.Duration) *Memory {
	return &Memory{
		c:      gocache.New(gocache.NoExpiration, time.Minute),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, slug string) (domain.Destination, bool, error) {
	v, ok := m.c.Get(slug)
	if !ok {
		return domain.Destination{}, false, nil
	}
	return v.(domain.Destination), true, nil
}

func (m *Memory) Set(ctx context.Context, slug string, dest domain.Destination) error {
	ttl, ok := entryTTL(dest, m.now(), m.maxTTL)
	if !ok {
		return nil
	}
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(slug, dest, ttl)
	return nil
}

func (m *Memory) Delete(ctx context.Context, slug string) error {
	m.c.Delete(slug)
	return nil
}

func (m *Memory) Len() int {
	return m.c.ItemCount()
}

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

var _ ports.RedirectCache = (*Memory)(nil)
