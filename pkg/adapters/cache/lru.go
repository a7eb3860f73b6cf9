package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

// LRU bounds the process-local cache to a fixed number of slugs. The LRU has
// a single TTL (maxTTL, zero for none); per-link expiry is enforced by
// refusing already-expired entries here and by the registry's read check.
type LRU struct {
	c   *expirable.LRU[string, domain.Destination]
	now func() time.Time
}

func NewLRU(size int, maxTTL time.Duration) *LRU {
	if size <= 0 {
		size = 10000
	}
	return &LRU{
		c:   expirable.NewLRU[string, domain.Destination](size, nil, maxTTL),
		now: time.Now,
	}
}

func (l *LRU) Get(ctx context.Context, slug string) (domain.Destination, bool, error) {
	dest, ok := l.c.Get(slug)
	return dest, ok, nil
}

func (l *LRU) Set(ctx context.Context, slug string, dest domain.Destination) error {
	if dest.ExpiredAt(l.now()) {
		return nil
	}
	l.c.Add(slug, dest)
	return nil
}

func (l *LRU) Delete(ctx context.Context, slug string) error {
	l.c.Remove(slug)
	return nil
}

func (l *LRU) Len() int {
	return l.c.Len()
}

func (l *LRU) Close() error {
	l.c.Purge()
	return nil
}

var _ ports.RedirectCache = (*LRU)(nil)
