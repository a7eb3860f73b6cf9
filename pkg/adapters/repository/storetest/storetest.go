// Package storetest holds the behavioural checks every LinkStore adapter must
// pass. Adapter packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/go-slug-shortener/pkg/core/domain"
	"github.com/wadjakorntonsri/go-slug-shortener/pkg/ports"
)

// Store is what the checks exercise.
type Store interface {
	ports.LinkStore
	ports.LinkExporter
}

// Run executes the suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("find missing slug", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		l, err := s.FindBySlug(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, l)

		l, err = s.FindActiveBySlug(ctx, "nope", now)
		require.NoError(t, err)
		assert.Nil(t, l)
	})

	t.Run("insert and find", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		expires := now.Add(time.Hour)
		in := NewLink("abc123", "https://example.com/a?x=1", now)
		in.ExpiresAt = &expires
		in.UTMParams = domain.UTMParams{"utm_source": "google", "utm_medium": "cpc"}
		require.NoError(t, s.Insert(ctx, in))

		got, err := s.FindBySlug(ctx, "abc123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, in.ID, got.ID)
		assert.Equal(t, in.OriginalURL, got.OriginalURL)
		assert.Equal(t, in.Slug, got.Slug)
		assert.Equal(t, in.UTMParams, got.UTMParams)
		assert.Equal(t, int64(0), got.RedirectCount)
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, expires.Equal(*got.ExpiresAt), "expires_at %v != %v", got.ExpiresAt, expires)
		assert.WithinDuration(t, now, got.CreatedAt, time.Second)
	})

	t.Run("empty utm params read back as nil", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, NewLink("plain", "https://example.com", now)))
		got, err := s.FindBySlug(ctx, "plain")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.UTMParams)
		assert.Nil(t, got.ExpiresAt)
	})

	t.Run("duplicate slug", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, NewLink("dup", "https://first.example", now)))
		err := s.Insert(ctx, NewLink("dup", "https://second.example", now))
		assert.True(t, errors.Is(err, domain.ErrDuplicateSlug), "got %v", err)

		got, err := s.FindBySlug(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "https://first.example", got.OriginalURL)
	})

	t.Run("concurrent insert of one slug", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const n = 8
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Insert(ctx, NewLink("race", "https://example.com", now))
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, errors.Is(err, domain.ErrDuplicateSlug), "got %v", err)
		}
		assert.Equal(t, 1, succeeded)

		all, err := s.Dump(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("active filter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		past := now.Add(-time.Minute)
		future := now.Add(time.Minute)

		expired := NewLink("expired", "https://example.com/old", now.Add(-time.Hour))
		expired.ExpiresAt = &past
		live := NewLink("live", "https://example.com/new", now)
		live.ExpiresAt = &future
		forever := NewLink("forever", "https://example.com", now)

		for _, l := range []*domain.Link{expired, live, forever} {
			require.NoError(t, s.Insert(ctx, l))
		}

		got, err := s.FindActiveBySlug(ctx, "expired", now)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = s.FindBySlug(ctx, "expired")
		require.NoError(t, err)
		assert.NotNil(t, got, "expired links stay visible to exact lookups")

		got, err = s.FindActiveBySlug(ctx, "live", now)
		require.NoError(t, err)
		assert.NotNil(t, got)

		got, err = s.FindActiveBySlug(ctx, "forever", now)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("increment redirect count", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, NewLink("hits", "https://example.com", now)))

		const n = 10
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.IncrementRedirectCount(ctx, "hits"))
			}()
		}
		wg.Wait()

		got, err := s.FindBySlug(ctx, "hits")
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.RedirectCount)

		assert.NoError(t, s.IncrementRedirectCount(ctx, "missing"))
	})

	t.Run("dump", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Insert(ctx, NewLink("one", "https://one.example", now)))
		require.NoError(t, s.Insert(ctx, NewLink("two", "https://two.example", now.Add(time.Second))))

		all, err := s.Dump(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "one", all[0].Slug)
		assert.Equal(t, "two", all[1].Slug)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

// NewLink builds a minimal valid record.
func NewLink(slug, originalURL string, createdAt time.Time) *domain.Link {
	return &domain.Link{
		ID:          uuid.NewString(),
		OriginalURL: originalURL,
		Slug:        slug,
		CreatedAt:   createdAt,
	}
}
