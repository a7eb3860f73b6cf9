// Package cache holds RedirectCache implementations. Every backend stores the
// pre-UTM destination together with the record's expiry, and none of them is
// authoritative: a miss always falls through to the link store.
package cache

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

// entryTTL is how long dest may stay cached: the time left before the link
// expires, capped by maxTTL when maxTTL > 0. Zero means no expiry. ok is false
// when dest has already expired and should not be cached at all.
func entryTTL(dest domain.Destination, now time.Time, maxTTL time.Duration) (ttl time.Duration, ok bool) {
	ttl = maxTTL
	if dest.ExpiresAt != nil {
		left := dest.ExpiresAt.Sub(now)
		if left <= 0 {
			return 0, false
		}
		if ttl <= 0 || left < ttl {
			ttl = left
		}
	}
	if ttl < 0 {
		ttl = 0
	}
	return ttl, true
}

// Nop never stores anything; every Get misses.
type Nop struct{}

func (Nop) Get(ctx context.Context, slug string) (domain.Destination, bool, error) {
	return domain.Destination{}, false, nil
}

func (Nop) Set(ctx context.Context, slug string, dest domain.Destination) error { return nil }

func (Nop) Delete(ctx context.Context, slug string) error { return nil }

func (Nop) Close() error { return nil }

var _ ports.RedirectCache = Nop{}
